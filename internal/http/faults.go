package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/model"
	"github.com/mohamdbadhe/campus-hub/internal/repository"
)

type faultResponse struct {
	ID              string     `json:"id"`
	Reporter        string     `json:"reporter"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	LocationType    string     `json:"location_type"`
	Building        string     `json:"building"`
	RoomNumber      string     `json:"room_number"`
	Category        string     `json:"category"`
	Severity        string     `json:"severity"`
	Status          string     `json:"status"`
	AssignedTo      string     `json:"assigned_to"`
	ResolutionNotes string     `json:"resolution_notes"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at"`
}

func mapFault(report model.FaultReport) faultResponse {
	return faultResponse{
		ID:              report.ID,
		Reporter:        report.ReporterEmail,
		Title:           report.Title,
		Description:     report.Description,
		LocationType:    report.LocationType,
		Building:        report.Building,
		RoomNumber:      report.RoomNumber,
		Category:        report.Category,
		Severity:        string(report.Severity),
		Status:          string(report.Status),
		AssignedTo:      report.AssignedTo,
		ResolutionNotes: report.ResolutionNotes,
		CreatedAt:       report.CreatedAt,
		UpdatedAt:       report.UpdatedAt,
		ResolvedAt:      report.ResolvedAt,
	}
}

type createFaultRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	LocationType string `json:"location_type"`
	Building     string `json:"building"`
	RoomNumber   string `json:"room_number"`
	Category     string `json:"category"`
	Severity     string `json:"severity"`
}

func (s *Server) handleCreateFault(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	var req createFaultRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	locationType := "classroom"
	if strings.TrimSpace(req.LocationType) != "" {
		parsed, err := model.ParseLocationType(req.LocationType)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid location type")
			return
		}
		locationType = parsed
	}
	category := "other"
	if strings.TrimSpace(req.Category) != "" {
		parsed, err := model.ParseFaultCategory(req.Category)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid category")
			return
		}
		category = parsed
	}
	severity := model.SeverityMedium
	if strings.TrimSpace(req.Severity) != "" {
		parsed, err := model.ParseFaultSeverity(req.Severity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid severity")
			return
		}
		severity = parsed
	}

	now := time.Now().UTC()
	report := model.FaultReport{
		ID:           uuid.NewString(),
		ReporterID:   c.User.ID,
		Title:        title,
		Description:  req.Description,
		LocationType: locationType,
		Building:     strings.TrimSpace(req.Building),
		RoomNumber:   strings.TrimSpace(req.RoomNumber),
		Category:     category,
		Severity:     severity,
		Status:       model.FaultOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateFaultReport(r.Context(), report); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	report.ReporterEmail = c.User.Email
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Fault report submitted",
		"fault":   mapFault(report),
	})
}

func (s *Server) handleListFaults(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	reporterID := c.User.ID
	if c.Profile.Role.Privileged() {
		reporterID = ""
	}
	reports, err := s.store.ListFaultReports(r.Context(), reporterID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]faultResponse, 0, len(reports))
	for _, report := range reports {
		out = append(out, mapFault(report))
	}
	writeJSON(w, http.StatusOK, map[string]any{"faults": out, "count": len(out)})
}

func (s *Server) handleGetFault(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	faultID := chi.URLParam(r, "faultID")

	report, err := s.store.GetFaultReport(r.Context(), faultID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Fault report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if report.ReporterID != c.User.ID && !c.Profile.Role.Privileged() {
		writeError(w, http.StatusForbidden, "You do not have permission to perform this action")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fault": mapFault(report)})
}

type updateFaultRequest struct {
	Status          *string `json:"status"`
	AssignedTo      *string `json:"assigned_to"`
	ResolutionNotes *string `json:"resolution_notes"`
	Severity        *string `json:"severity"`
}

func (s *Server) handleUpdateFault(w http.ResponseWriter, r *http.Request) {
	faultID := chi.URLParam(r, "faultID")

	var req updateFaultRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	existing, err := s.store.GetFaultReport(r.Context(), faultID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Fault report not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var patch repository.FaultPatch
	if req.Status != nil {
		status, err := model.ParseFaultStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		patch.Status = &status
	}
	if req.Severity != nil {
		severity, err := model.ParseFaultSeverity(*req.Severity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid severity")
			return
		}
		patch.Severity = &severity
	}
	patch.AssignedTo = req.AssignedTo
	patch.ResolutionNotes = req.ResolutionNotes

	now := time.Now().UTC()
	var resolvedAt *time.Time
	if patch.Status != nil && patch.Status.Terminal() && existing.ResolvedAt == nil {
		resolvedAt = &now
	}
	if err := s.store.UpdateFaultReport(r.Context(), faultID, patch, resolvedAt, now); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	updated, err := s.store.GetFaultReport(r.Context(), faultID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Fault report updated",
		"fault":   mapFault(updated),
	})
}
