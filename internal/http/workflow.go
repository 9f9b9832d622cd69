package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/model"
	"github.com/mohamdbadhe/campus-hub/internal/repository"
)

const pendingApprovalMessage = "Update request submitted. Waiting for manager approval."

type libraryUpdateRequest struct {
	LibraryID        string  `json:"library_id"`
	Name             string  `json:"name"`
	CurrentOccupancy *int    `json:"current_occupancy"`
	IsOpen           *bool   `json:"is_open"`
	NewName          *string `json:"new_name"`
	MaxCapacity      *int    `json:"max_capacity"`
}

// handleLibraryUpdate routes a library change through the two-tier
// workflow: managers and admins apply immediately, everyone else files a
// pending request that echoes the unchanged library.
func (s *Server) handleLibraryUpdate(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	var req libraryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var library model.Library
	var err error
	switch {
	case strings.TrimSpace(req.LibraryID) != "":
		library, err = s.store.GetLibraryByID(r.Context(), strings.TrimSpace(req.LibraryID))
	case strings.TrimSpace(req.Name) != "":
		library, err = s.store.GetLibraryByName(r.Context(), strings.TrimSpace(req.Name))
	default:
		writeError(w, http.StatusBadRequest, "Library ID or name is required")
		return
	}
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Library not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if c.Profile.Role.Privileged() {
		s.applyLibraryUpdate(w, r, c, library, req)
		return
	}
	if req.CurrentOccupancy == nil && req.IsOpen == nil {
		writeError(w, http.StatusBadRequest, "No changes specified")
		return
	}
	s.submitUpdateRequest(w, r, c, model.KindLibrary, library.ID, req.CurrentOccupancy, req.IsOpen, map[string]any{
		"library": mapLibrary(library),
	})
}

func (s *Server) applyLibraryUpdate(w http.ResponseWriter, r *http.Request, c *caller, library model.Library, req libraryUpdateRequest) {
	if req.CurrentOccupancy == nil && req.IsOpen == nil && req.NewName == nil && req.MaxCapacity == nil {
		writeError(w, http.StatusBadRequest, "No changes specified")
		return
	}
	if req.MaxCapacity != nil && *req.MaxCapacity <= 0 {
		writeError(w, http.StatusBadRequest, "Max capacity must be greater than 0")
		return
	}
	now := time.Now().UTC()
	if req.CurrentOccupancy != nil || req.IsOpen != nil {
		if err := s.store.ApplyResourceState(r.Context(), model.KindLibrary, library.ID, req.CurrentOccupancy, req.IsOpen, c.User.ID, now); err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	if req.NewName != nil || req.MaxCapacity != nil {
		if err := s.store.UpdateLibraryMeta(r.Context(), library.ID, req.NewName, req.MaxCapacity, c.User.ID, now); err != nil {
			if repository.IsUniqueViolation(err) {
				writeError(w, http.StatusBadRequest, "A library with that name already exists")
				return
			}
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	updated, err := s.store.GetLibraryByID(r.Context(), library.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Library updated",
		"library": mapLibrary(updated),
	})
}

type roomStateUpdateRequest struct {
	CurrentOccupancy *int    `json:"current_occupancy"`
	IsAvailable      *bool   `json:"is_available"`
	EquipmentStatus  *string `json:"equipment_status"`
}

func (s *Server) handleLabUpdate(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	labID := chi.URLParam(r, "labID")

	var req roomStateUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	lab, err := s.store.GetLabByID(r.Context(), labID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Lab not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if c.Profile.Role.Privileged() {
		if req.CurrentOccupancy == nil && req.IsAvailable == nil && req.EquipmentStatus == nil {
			writeError(w, http.StatusBadRequest, "No changes specified")
			return
		}
		now := time.Now().UTC()
		if req.CurrentOccupancy != nil || req.IsAvailable != nil {
			if err := s.store.ApplyResourceState(r.Context(), model.KindLab, lab.ID, req.CurrentOccupancy, req.IsAvailable, c.User.ID, now); err != nil {
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
		}
		if req.EquipmentStatus != nil {
			if err := s.store.UpdateLabEquipmentStatus(r.Context(), lab.ID, *req.EquipmentStatus, c.User.ID, now); err != nil {
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
		}
		updated, err := s.store.GetLabByID(r.Context(), lab.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Lab updated",
			"lab":     mapLab(updated),
		})
		return
	}

	if req.CurrentOccupancy == nil && req.IsAvailable == nil {
		writeError(w, http.StatusBadRequest, "No changes specified")
		return
	}
	s.submitUpdateRequest(w, r, c, model.KindLab, lab.ID, req.CurrentOccupancy, req.IsAvailable, map[string]any{
		"lab": mapLab(lab),
	})
}

func (s *Server) handleClassroomUpdate(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	classroomID := chi.URLParam(r, "classroomID")

	var req roomStateUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	classroom, err := s.store.GetClassroomByID(r.Context(), classroomID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Classroom not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if req.CurrentOccupancy == nil && req.IsAvailable == nil {
		writeError(w, http.StatusBadRequest, "No changes specified")
		return
	}

	if c.Profile.Role.Privileged() {
		now := time.Now().UTC()
		if err := s.store.ApplyResourceState(r.Context(), model.KindClassroom, classroom.ID, req.CurrentOccupancy, req.IsAvailable, c.User.ID, now); err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		updated, err := s.store.GetClassroomByID(r.Context(), classroom.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":   "Classroom updated",
			"classroom": mapClassroom(updated),
		})
		return
	}

	s.submitUpdateRequest(w, r, c, model.KindClassroom, classroom.ID, req.CurrentOccupancy, req.IsAvailable, map[string]any{
		"classroom": mapClassroom(classroom),
	})
}

// submitUpdateRequest files the pending change and echoes the entity as
// it was before the request.
func (s *Server) submitUpdateRequest(w http.ResponseWriter, r *http.Request, c *caller, kind model.ResourceKind, resourceID string, occupancy *int, available *bool, entity map[string]any) {
	request := model.UpdateRequest{
		ID:                 uuid.NewString(),
		ResourceKind:       kind,
		ResourceID:         resourceID,
		RequestedBy:        c.User.ID,
		RequestedOccupancy: occupancy,
		RequestedAvailable: available,
		Status:             model.StatusPending,
		RequestedAt:        time.Now().UTC(),
	}
	if err := s.store.CreateUpdateRequest(r.Context(), request); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	payload := map[string]any{
		"message":    pendingApprovalMessage,
		"request_id": request.ID,
		"status":     string(model.StatusPending),
	}
	for key, value := range entity {
		payload[key] = value
	}
	writeJSON(w, http.StatusOK, payload)
}

type pendingUpdateItem struct {
	RequestID          string    `json:"request_id"`
	ResourceID         string    `json:"resource_id"`
	ResourceName       string    `json:"resource_name"`
	RequestedBy        string    `json:"requested_by"`
	RequestedOccupancy *int      `json:"requested_occupancy"`
	RequestedAvailable *bool     `json:"requested_available"`
	CurrentOccupancy   int       `json:"current_occupancy"`
	CurrentlyAvailable bool      `json:"currently_available"`
	RequestedAt        time.Time `json:"requested_at"`
}

func (s *Server) handlePendingUpdates(w http.ResponseWriter, r *http.Request) {
	requests, err := s.store.ListPendingUpdateRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	grouped := map[model.ResourceKind][]pendingUpdateItem{}
	total := 0
	for _, request := range requests {
		item := pendingUpdateItem{
			RequestID:          request.ID,
			ResourceID:         request.ResourceID,
			RequestedBy:        request.RequestedByEmail,
			RequestedOccupancy: request.RequestedOccupancy,
			RequestedAvailable: request.RequestedAvailable,
			RequestedAt:        request.RequestedAt,
		}
		switch request.ResourceKind {
		case model.KindLibrary:
			library, err := s.store.GetLibraryByID(r.Context(), request.ResourceID)
			if err != nil {
				continue
			}
			item.ResourceName = library.Name
			item.CurrentOccupancy = library.CurrentOccupancy
			item.CurrentlyAvailable = library.IsOpen
		case model.KindLab:
			lab, err := s.store.GetLabByID(r.Context(), request.ResourceID)
			if err != nil {
				continue
			}
			item.ResourceName = lab.Name
			item.CurrentOccupancy = lab.CurrentOccupancy
			item.CurrentlyAvailable = lab.IsAvailable
		case model.KindClassroom:
			classroom, err := s.store.GetClassroomByID(r.Context(), request.ResourceID)
			if err != nil {
				continue
			}
			item.ResourceName = classroom.Name
			item.CurrentOccupancy = classroom.CurrentOccupancy
			item.CurrentlyAvailable = classroom.IsAvailable
		}
		grouped[request.ResourceKind] = append(grouped[request.ResourceKind], item)
		total++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"libraries":     emptyIfNil(grouped[model.KindLibrary]),
		"labs":          emptyIfNil(grouped[model.KindLab]),
		"classrooms":    emptyIfNil(grouped[model.KindClassroom]),
		"total_pending": total,
	})
}

func emptyIfNil(items []pendingUpdateItem) []pendingUpdateItem {
	if items == nil {
		return []pendingUpdateItem{}
	}
	return items
}

type resolveRequestBody struct {
	Reason *string `json:"reason"`
}

// decodeOptionalBody tolerates an absent request body on resolve calls.
func decodeOptionalBody(r *http.Request, out interface{}) error {
	err := decodeJSON(r, out)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) resolveUpdateHandler(kind model.ResourceKind, status model.RequestStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := callerFromContext(r.Context())
		requestID := chi.URLParam(r, "requestID")

		var body resolveRequestBody
		if err := decodeOptionalBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		request, err := s.store.ResolveUpdateRequest(r.Context(), kind, requestID, c.User.ID, status, body.Reason, time.Now().UTC())
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Update request not found")
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

		if status == model.StatusRejected {
			writeJSON(w, http.StatusOK, map[string]any{
				"message":    "Update request rejected",
				"request_id": request.ID,
			})
			return
		}

		payload := map[string]any{
			"message":    "Update request approved",
			"request_id": request.ID,
		}
		switch kind {
		case model.KindLibrary:
			if library, err := s.store.GetLibraryByID(r.Context(), request.ResourceID); err == nil {
				payload["library"] = mapLibrary(library)
			}
		case model.KindLab:
			if lab, err := s.store.GetLabByID(r.Context(), request.ResourceID); err == nil {
				payload["lab"] = mapLab(lab)
			}
		case model.KindClassroom:
			if classroom, err := s.store.GetClassroomByID(r.Context(), request.ResourceID); err == nil {
				payload["classroom"] = mapClassroom(classroom)
			}
		}
		writeJSON(w, http.StatusOK, payload)
	}
}
