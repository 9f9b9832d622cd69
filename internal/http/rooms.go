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

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type assignedRoom struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Building   string `json:"building"`
	RoomNumber string `json:"room_number"`
}

type roomRequestResponse struct {
	ID                string        `json:"id"`
	RequestedBy       string        `json:"requested_by"`
	RoomType          string        `json:"room_type"`
	Purpose           string        `json:"purpose"`
	ExpectedAttendees int           `json:"expected_attendees"`
	Date              string        `json:"date"`
	StartTime         string        `json:"start_time"`
	EndTime           string        `json:"end_time"`
	Status            string        `json:"status"`
	AssignedRoom      *assignedRoom `json:"assigned_room"`
	ApprovedBy        *string       `json:"approved_by"`
	RequestedAt       time.Time     `json:"requested_at"`
	ApprovedAt        *time.Time    `json:"approved_at"`
	RejectionReason   *string       `json:"rejection_reason"`
}

func (s *Server) mapRoomRequest(r *http.Request, request model.RoomRequest) roomRequestResponse {
	resp := roomRequestResponse{
		ID:                request.ID,
		RequestedBy:       request.RequestedByEmail,
		RoomType:          string(request.RoomType),
		Purpose:           request.Purpose,
		ExpectedAttendees: request.ExpectedAttendees,
		Date:              request.RequestedDate.Format(dateLayout),
		StartTime:         request.StartTime,
		EndTime:           request.EndTime,
		Status:            string(request.Status),
		ApprovedBy:        request.ApprovedByEmail,
		RequestedAt:       request.RequestedAt,
		ApprovedAt:        request.ApprovedAt,
		RejectionReason:   request.RejectionReason,
	}
	switch {
	case request.ClassroomID != nil:
		if classroom, err := s.store.GetClassroomByID(r.Context(), *request.ClassroomID); err == nil {
			resp.AssignedRoom = &assignedRoom{
				ID:         classroom.ID,
				Name:       classroom.Name,
				Building:   classroom.Building,
				RoomNumber: classroom.RoomNumber,
			}
		}
	case request.LabID != nil:
		if lab, err := s.store.GetLabByID(r.Context(), *request.LabID); err == nil {
			resp.AssignedRoom = &assignedRoom{
				ID:         lab.ID,
				Name:       lab.Name,
				Building:   lab.Building,
				RoomNumber: lab.RoomNumber,
			}
		}
	}
	return resp
}

type createRoomRequestBody struct {
	RoomType          string `json:"room_type"`
	Purpose           string `json:"purpose"`
	ExpectedAttendees *int   `json:"expected_attendees"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	RoomID            string `json:"room_id"`
}

func (s *Server) handleCreateRoomRequest(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	var req createRoomRequestBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	roomType, err := model.ParseRoomType(req.RoomType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room type. Must be classroom or lab")
		return
	}
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		writeError(w, http.StatusBadRequest, "Purpose is required")
		return
	}
	date, err := time.Parse(dateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date. Expected YYYY-MM-DD")
		return
	}
	startTime := strings.TrimSpace(req.StartTime)
	endTime := strings.TrimSpace(req.EndTime)
	if _, err := time.Parse(timeLayout, startTime); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time. Expected HH:MM")
		return
	}
	if _, err := time.Parse(timeLayout, endTime); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end time. Expected HH:MM")
		return
	}
	attendees := 1
	if req.ExpectedAttendees != nil && *req.ExpectedAttendees > 0 {
		attendees = *req.ExpectedAttendees
	}

	request := model.RoomRequest{
		ID:                uuid.NewString(),
		RequestedBy:       c.User.ID,
		RoomType:          roomType,
		Purpose:           purpose,
		ExpectedAttendees: attendees,
		RequestedDate:     date,
		StartTime:         startTime,
		EndTime:           endTime,
		Status:            model.StatusPending,
		RequestedAt:       time.Now().UTC(),
	}

	// A preferred room attaches best-effort; unknown ids are ignored.
	if roomID := strings.TrimSpace(req.RoomID); roomID != "" {
		switch roomType {
		case model.RoomClassroom:
			if classroom, err := s.store.GetClassroomByID(r.Context(), roomID); err == nil {
				request.ClassroomID = &classroom.ID
			}
		case model.RoomLab:
			if lab, err := s.store.GetLabByID(r.Context(), roomID); err == nil {
				request.LabID = &lab.ID
			}
		}
	}

	if err := s.store.CreateRoomRequest(r.Context(), request); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	request.RequestedByEmail = c.User.Email
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Room request submitted",
		"request": s.mapRoomRequest(r, request),
	})
}

func (s *Server) handleListRoomRequests(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	requesterID := c.User.ID
	if c.Profile.Role.Privileged() {
		requesterID = ""
	}
	requests, err := s.store.ListRoomRequests(r.Context(), requesterID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]roomRequestResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, s.mapRoomRequest(r, request))
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": out, "count": len(out)})
}

type approveRoomRequestBody struct {
	RoomID string `json:"room_id"`
}

func (s *Server) handleApproveRoomRequest(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	requestID := chi.URLParam(r, "requestID")

	var body approveRoomRequestBody
	if err := decodeOptionalBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	roomID := strings.TrimSpace(body.RoomID)
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	request, err := s.store.ApproveRoomRequest(r.Context(), requestID, c.User.ID, roomID, time.Now().UTC())
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeError(w, http.StatusNotFound, "Room request not found")
		return
	case errors.Is(err, repository.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "Room not found")
		return
	case errors.Is(err, repository.ErrNotPending):
		writeError(w, http.StatusBadRequest, "Request is not pending")
		return
	case errors.Is(err, repository.ErrRoomUnavailable):
		writeError(w, http.StatusBadRequest, "Room is not available")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Room request approved",
		"request": s.mapRoomRequest(r, request),
	})
}

func (s *Server) handleRejectRoomRequest(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	requestID := chi.URLParam(r, "requestID")

	var body resolveRequestBody
	if err := decodeOptionalBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	request, err := s.store.RejectRoomRequest(r.Context(), requestID, c.User.ID, body.Reason, time.Now().UTC())
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeError(w, http.StatusNotFound, "Room request not found")
		return
	case errors.Is(err, repository.ErrNotPending):
		writeError(w, http.StatusBadRequest, "Request is not pending")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Room request rejected",
		"request": s.mapRoomRequest(r, request),
	})
}
