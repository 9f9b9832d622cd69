package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mohamdbadhe/campus-hub/internal/auth"
	"github.com/mohamdbadhe/campus-hub/internal/config"
	"github.com/mohamdbadhe/campus-hub/internal/model"
	"github.com/mohamdbadhe/campus-hub/internal/repository"
)

type Server struct {
	cfg   config.Config
	store *repository.Store
	redis *redis.Client
}

func NewServer(cfg config.Config, store *repository.Store, redisClient *redis.Client) *Server {
	return &Server{cfg: cfg, store: store, redis: redisClient}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	r.Get("/libraries", s.handleListLibraries)
	r.Get("/library", s.handleGetLibrary)
	r.Get("/labs", s.handleListLabs)
	r.Get("/classrooms", s.handleListClassrooms)

	r.With(s.authMiddleware).Get("/me", s.handleMe)
	r.With(s.authMiddleware).Post("/role", s.handleRoleChange)

	privileged := s.requireRole(model.RoleManager, model.RoleAdmin)
	r.With(s.authMiddleware, privileged).Post("/libraries", s.handleCreateLibrary)
	r.With(s.authMiddleware, privileged).Post("/labs", s.handleCreateLab)
	r.With(s.authMiddleware, privileged).Post("/classrooms", s.handleCreateClassroom)

	r.With(s.authMiddleware).Post("/library/update", s.handleLibraryUpdate)
	r.With(s.authMiddleware).Post("/lab/{labID}/update", s.handleLabUpdate)
	r.With(s.authMiddleware).Post("/classroom/{classroomID}/update", s.handleClassroomUpdate)

	r.With(s.authMiddleware, privileged).Get("/updates/pending", s.handlePendingUpdates)
	r.With(s.authMiddleware, privileged).Post("/updates/library/{requestID}/approve", s.resolveUpdateHandler(model.KindLibrary, model.StatusApproved))
	r.With(s.authMiddleware, privileged).Post("/updates/library/{requestID}/reject", s.resolveUpdateHandler(model.KindLibrary, model.StatusRejected))
	r.With(s.authMiddleware, privileged).Post("/updates/lab/{requestID}/approve", s.resolveUpdateHandler(model.KindLab, model.StatusApproved))
	r.With(s.authMiddleware, privileged).Post("/updates/lab/{requestID}/reject", s.resolveUpdateHandler(model.KindLab, model.StatusRejected))
	r.With(s.authMiddleware, privileged).Post("/updates/classroom/{requestID}/approve", s.resolveUpdateHandler(model.KindClassroom, model.StatusApproved))
	r.With(s.authMiddleware, privileged).Post("/updates/classroom/{requestID}/reject", s.resolveUpdateHandler(model.KindClassroom, model.StatusRejected))

	r.With(s.authMiddleware).Post("/faults", s.handleCreateFault)
	r.With(s.authMiddleware).Get("/faults", s.handleListFaults)
	r.With(s.authMiddleware).Get("/faults/{faultID}", s.handleGetFault)
	r.With(s.authMiddleware, privileged).Put("/faults/{faultID}", s.handleUpdateFault)
	r.With(s.authMiddleware, privileged).Patch("/faults/{faultID}", s.handleUpdateFault)

	r.With(s.authMiddleware, s.requireRole(model.RoleLecturer)).Post("/room-requests", s.handleCreateRoomRequest)
	r.With(s.authMiddleware).Get("/room-requests", s.handleListRoomRequests)
	r.With(s.authMiddleware, privileged).Post("/room-requests/{requestID}/approve", s.handleApproveRoomRequest)
	r.With(s.authMiddleware, privileged).Post("/room-requests/{requestID}/reject", s.handleRejectRoomRequest)

	admin := s.requireRole(model.RoleAdmin)
	r.With(s.authMiddleware, admin).Get("/admin/users", s.handleListUsers)
	r.With(s.authMiddleware, admin).Get("/admin/role-requests", s.handleListRoleRequests)
	r.With(s.authMiddleware, admin).Post("/admin/role-requests/{requestID}/approve", s.resolveRoleRequestHandler(model.StatusApproved))
	r.With(s.authMiddleware, admin).Post("/admin/role-requests/{requestID}/reject", s.resolveRoleRequestHandler(model.StatusRejected))
	r.With(s.authMiddleware, admin).Get("/admin/stats", s.handleStats)

	return r
}

// Auth

type callerKey struct{}

// caller is the authenticated user together with their profile, loaded
// once per request by authMiddleware.
type caller struct {
	User    model.User
	Profile model.Profile
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		user, err := s.store.GetUserByID(r.Context(), claims.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		profile, err := s.store.GetProfile(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), callerKey{}, &caller{User: user, Profile: profile})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromContext(ctx context.Context) *caller {
	value := ctx.Value(callerKey{})
	c, _ := value.(*caller)
	return c
}

func (s *Server) requireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := callerFromContext(r.Context())
			if c == nil {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range roles {
				if c.Profile.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "You do not have permission to perform this action")
		})
	}
}

// Utilities

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func occupancyPercentage(occupancy, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return math.Round(float64(occupancy)/float64(capacity)*1000) / 10
}
