package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/model"
	"github.com/mohamdbadhe/campus-hub/internal/repository"
)

type adminUserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	Department  string    `json:"department"`
	ManagerType *string   `json:"manager_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]adminUserResponse, 0, len(users))
	for _, entry := range users {
		out = append(out, adminUserResponse{
			ID:          entry.User.ID,
			Email:       entry.User.Email,
			Username:    entry.User.Email,
			Role:        string(entry.Profile.Role),
			Department:  entry.Profile.Department,
			ManagerType: entry.Profile.ManagerType,
			CreatedAt:   entry.User.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out, "count": len(out)})
}

type roleRequestResponse struct {
	ID              string     `json:"id"`
	User            string     `json:"user"`
	RequestedRole   string     `json:"requested_role"`
	ManagerType     *string    `json:"manager_type"`
	Reason          *string    `json:"reason"`
	Status          string     `json:"status"`
	ApprovedBy      *string    `json:"approved_by"`
	RequestedAt     time.Time  `json:"requested_at"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectionReason *string    `json:"rejection_reason"`
}

func mapRoleRequest(request model.RoleRequest) roleRequestResponse {
	return roleRequestResponse{
		ID:              request.ID,
		User:            request.UserEmail,
		RequestedRole:   string(request.RequestedRole),
		ManagerType:     request.ManagerType,
		Reason:          request.Reason,
		Status:          string(request.Status),
		ApprovedBy:      request.ApprovedByEmail,
		RequestedAt:     request.RequestedAt,
		ApprovedAt:      request.ApprovedAt,
		RejectionReason: request.RejectionReason,
	}
}

func (s *Server) handleListRoleRequests(w http.ResponseWriter, r *http.Request) {
	status := model.RequestStatus(r.URL.Query().Get("status"))
	requests, err := s.store.ListRoleRequests(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]roleRequestResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, mapRoleRequest(request))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": out, "count": len(out)})
}

func (s *Server) resolveRoleRequestHandler(status model.RequestStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := callerFromContext(r.Context())
		requestID := chi.URLParam(r, "requestID")

		var body resolveRequestBody
		if err := decodeOptionalBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		request, err := s.store.ResolveRoleRequest(r.Context(), requestID, c.User.ID, status, body.Reason, time.Now().UTC())
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Role request not found")
			return
		}
		if errors.Is(err, repository.ErrNotPending) {
			writeError(w, http.StatusBadRequest, "Request is not pending")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		message := "Role request approved"
		if status == model.StatusRejected {
			message = "Role request rejected"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":    message,
			"request_id": request.ID,
			"role":       string(request.RequestedRole),
		})
	}
}

type statsResponse struct {
	TotalUsers          int `json:"total_users"`
	Students            int `json:"students"`
	Lecturers           int `json:"lecturers"`
	Managers            int `json:"managers"`
	Admins              int `json:"admins"`
	PendingRoleRequests int `json:"pending_role_requests"`
	TotalFaults         int `json:"total_faults"`
	OpenFaults          int `json:"open_faults"`
}

const statsCacheKey = "admin:stats"

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.cachedStats(r.Context()); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	stats, err := s.store.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	resp := statsResponse{
		TotalUsers:          stats.TotalUsers,
		Students:            stats.Students,
		Lecturers:           stats.Lecturers,
		Managers:            stats.Managers,
		Admins:              stats.Admins,
		PendingRoleRequests: stats.PendingRoleRequests,
		TotalFaults:         stats.TotalFaults,
		OpenFaults:          stats.OpenFaults,
	}
	s.storeCachedStats(r.Context(), resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cachedStats(ctx context.Context) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (s *Server) storeCachedStats(ctx context.Context, resp statsResponse) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = s.redis.Set(ctx, statsCacheKey, raw, s.cfg.StatsCacheTTL).Err()
}
