package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/auth"
	"github.com/mohamdbadhe/campus-hub/internal/crypto"
	"github.com/mohamdbadhe/campus-hub/internal/model"
	"github.com/mohamdbadhe/campus-hub/internal/repository"
)

type userResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	Role        string  `json:"role"`
	Department  string  `json:"department"`
	ManagerType *string `json:"manager_type"`
}

func mapUser(user model.User, profile model.Profile) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Email,
		Role:        string(profile.Role),
		Department:  profile.Department,
		ManagerType: profile.ManagerType,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if repository.IsUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "A user with that email already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, user.ID, s.cfg.TokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	profile := model.Profile{UserID: user.ID, Role: model.RoleStudent}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  mapUser(user, profile),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), email)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	profile, err := s.store.GetProfile(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, user.ID, s.cfg.TokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  mapUser(user, profile),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	if c == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	payload := map[string]any{
		"user":            mapUser(c.User, c.Profile),
		"pending_request": false,
	}
	pending, err := s.store.GetPendingRoleRequestForUser(r.Context(), c.User.ID)
	switch {
	case err == nil:
		payload["pending_request"] = true
		payload["pending_role"] = string(pending.RequestedRole)
	case !errors.Is(err, pgx.ErrNoRows):
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type roleChangeRequest struct {
	Role        string  `json:"role"`
	Department  *string `json:"department"`
	ManagerType *string `json:"manager_type"`
	Reason      *string `json:"reason"`
}

// handleRoleChange is the self-service role endpoint. Student applies
// immediately; lecturer and manager go through admin approval; admin is
// never changeable here.
func (s *Server) handleRoleChange(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	if c == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req roleChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	role, err := model.ParseRequestableRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role. Must be one of: student, lecturer, manager")
		return
	}

	// Admin accounts are immutable here, including any profile fields
	// carried in the same body.
	if c.Profile.Role == model.RoleAdmin {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":         "Admin role cannot be changed",
			"role":            string(model.RoleAdmin),
			"pending_request": false,
		})
		return
	}

	if req.Department != nil {
		if err := s.store.UpdateProfileDepartment(r.Context(), c.User.ID, strings.TrimSpace(*req.Department), time.Now().UTC()); err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	now := time.Now().UTC()
	if role == model.RoleStudent {
		if err := s.store.UpdateProfileRole(r.Context(), c.User.ID, model.RoleStudent, nil, now); err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":         "Role updated to student",
			"role":            string(model.RoleStudent),
			"pending_request": false,
		})
		return
	}

	existing, err := s.store.GetPendingRoleRequest(r.Context(), c.User.ID, role)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":         "Request already pending approval",
			"role":            string(model.RoleStudent),
			"pending_request": true,
			"request_id":      existing.ID,
		})
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// manager_type only means something on a manager elevation.
	var managerType *string
	if role == model.RoleManager {
		managerType = req.ManagerType
	}
	request := model.RoleRequest{
		ID:            uuid.NewString(),
		UserID:        c.User.ID,
		RequestedRole: role,
		ManagerType:   managerType,
		Reason:        req.Reason,
		Status:        model.StatusPending,
		RequestedAt:   now,
	}
	if err := s.store.CreateRoleRequest(r.Context(), request); err != nil {
		// A concurrent duplicate loses to the partial unique index.
		if repository.IsUniqueViolation(err) {
			if existing, getErr := s.store.GetPendingRoleRequest(r.Context(), c.User.ID, role); getErr == nil {
				writeJSON(w, http.StatusOK, map[string]any{
					"message":         "Request already pending approval",
					"role":            string(model.RoleStudent),
					"pending_request": true,
					"request_id":      existing.ID,
				})
				return
			}
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// The effective role stays student until an admin approves.
	if err := s.store.UpdateProfileRole(r.Context(), c.User.ID, model.RoleStudent, nil, now); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Role request submitted. Waiting for admin approval.",
		"role":            string(model.RoleStudent),
		"pending_request": true,
		"request_id":      request.ID,
	})
}
