package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/model"
	"github.com/mohamdbadhe/campus-hub/internal/repository"
)

type libraryResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	CurrentOccupancy    int       `json:"current_occupancy"`
	MaxCapacity         int       `json:"max_capacity"`
	OccupancyPercentage float64   `json:"occupancy_percentage"`
	IsOpen              bool      `json:"is_open"`
	LastUpdated         time.Time `json:"last_updated"`
}

func mapLibrary(library model.Library) libraryResponse {
	return libraryResponse{
		ID:                  library.ID,
		Name:                library.Name,
		CurrentOccupancy:    library.CurrentOccupancy,
		MaxCapacity:         library.MaxCapacity,
		OccupancyPercentage: occupancyPercentage(library.CurrentOccupancy, library.MaxCapacity),
		IsOpen:              library.IsOpen,
		LastUpdated:         library.LastUpdated,
	}
}

type labResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Building            string    `json:"building"`
	RoomNumber          string    `json:"room_number"`
	CurrentOccupancy    int       `json:"current_occupancy"`
	MaxCapacity         int       `json:"max_capacity"`
	OccupancyPercentage float64   `json:"occupancy_percentage"`
	IsAvailable         bool      `json:"is_available"`
	EquipmentStatus     string    `json:"equipment_status"`
	LastUpdated         time.Time `json:"last_updated"`
}

func mapLab(lab model.Lab) labResponse {
	return labResponse{
		ID:                  lab.ID,
		Name:                lab.Name,
		Building:            lab.Building,
		RoomNumber:          lab.RoomNumber,
		CurrentOccupancy:    lab.CurrentOccupancy,
		MaxCapacity:         lab.MaxCapacity,
		OccupancyPercentage: occupancyPercentage(lab.CurrentOccupancy, lab.MaxCapacity),
		IsAvailable:         lab.IsAvailable,
		EquipmentStatus:     lab.EquipmentStatus,
		LastUpdated:         lab.LastUpdated,
	}
}

type classroomResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Building            string    `json:"building"`
	RoomNumber          string    `json:"room_number"`
	CurrentOccupancy    int       `json:"current_occupancy"`
	MaxCapacity         int       `json:"max_capacity"`
	OccupancyPercentage float64   `json:"occupancy_percentage"`
	IsAvailable         bool      `json:"is_available"`
	LastUpdated         time.Time `json:"last_updated"`
}

func mapClassroom(classroom model.Classroom) classroomResponse {
	return classroomResponse{
		ID:                  classroom.ID,
		Name:                classroom.Name,
		Building:            classroom.Building,
		RoomNumber:          classroom.RoomNumber,
		CurrentOccupancy:    classroom.CurrentOccupancy,
		MaxCapacity:         classroom.MaxCapacity,
		OccupancyPercentage: occupancyPercentage(classroom.CurrentOccupancy, classroom.MaxCapacity),
		IsAvailable:         classroom.IsAvailable,
		LastUpdated:         classroom.LastUpdated,
	}
}

// Libraries

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libraries, err := s.store.ListLibraries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]libraryResponse, 0, len(libraries))
	for _, library := range libraries {
		out = append(out, mapLibrary(library))
	}
	writeJSON(w, http.StatusOK, map[string]any{"libraries": out, "count": len(out)})
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	library, err := s.store.GetLibraryByName(r.Context(), name)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "Library not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, mapLibrary(library))
}

type createLibraryRequest struct {
	Name             string `json:"name"`
	MaxCapacity      int    `json:"max_capacity"`
	CurrentOccupancy int    `json:"current_occupancy"`
	IsOpen           *bool  `json:"is_open"`
}

func (s *Server) handleCreateLibrary(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	var req createLibraryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.MaxCapacity <= 0 {
		writeError(w, http.StatusBadRequest, "Max capacity must be greater than 0")
		return
	}
	isOpen := true
	if req.IsOpen != nil {
		isOpen = *req.IsOpen
	}
	library := model.Library{
		ID:               uuid.NewString(),
		Name:             name,
		CurrentOccupancy: req.CurrentOccupancy,
		MaxCapacity:      req.MaxCapacity,
		IsOpen:           isOpen,
		LastUpdated:      time.Now().UTC(),
		UpdatedBy:        &c.User.ID,
	}
	if err := s.store.CreateLibrary(r.Context(), library); err != nil {
		if repository.IsUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "A library with that name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Library created",
		"library": mapLibrary(library),
	})
}

// Labs

func (s *Server) handleListLabs(w http.ResponseWriter, r *http.Request) {
	labs, err := s.store.ListLabs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]labResponse, 0, len(labs))
	for _, lab := range labs {
		out = append(out, mapLab(lab))
	}
	writeJSON(w, http.StatusOK, map[string]any{"labs": out, "count": len(out)})
}

type createLabRequest struct {
	Name            string `json:"name"`
	Building        string `json:"building"`
	RoomNumber      string `json:"room_number"`
	MaxCapacity     *int   `json:"max_capacity"`
	EquipmentStatus string `json:"equipment_status"`
}

const defaultLabCapacity = 30

func (s *Server) handleCreateLab(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	var req createLabRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	building := strings.TrimSpace(req.Building)
	roomNumber := strings.TrimSpace(req.RoomNumber)
	if building == "" || roomNumber == "" {
		writeError(w, http.StatusBadRequest, "Building and room number are required")
		return
	}
	capacity := defaultLabCapacity
	if req.MaxCapacity != nil {
		capacity = *req.MaxCapacity
	}
	if capacity <= 0 {
		writeError(w, http.StatusBadRequest, "Max capacity must be greater than 0")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Lab %s", roomNumber)
	}
	lab := model.Lab{
		ID:              uuid.NewString(),
		Name:            name,
		Building:        building,
		RoomNumber:      roomNumber,
		MaxCapacity:     capacity,
		IsAvailable:     true,
		EquipmentStatus: req.EquipmentStatus,
		LastUpdated:     time.Now().UTC(),
		UpdatedBy:       &c.User.ID,
	}
	if err := s.store.CreateLab(r.Context(), lab); err != nil {
		if repository.IsUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "A lab with that room number already exists in this building")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Lab created",
		"lab":     mapLab(lab),
	})
}

// Classrooms

func (s *Server) handleListClassrooms(w http.ResponseWriter, r *http.Request) {
	classrooms, err := s.store.ListClassrooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	out := make([]classroomResponse, 0, len(classrooms))
	for _, classroom := range classrooms {
		out = append(out, mapClassroom(classroom))
	}
	writeJSON(w, http.StatusOK, map[string]any{"classrooms": out, "count": len(out)})
}

type createClassroomRequest struct {
	Name        string `json:"name"`
	Building    string `json:"building"`
	RoomNumber  string `json:"room_number"`
	MaxCapacity *int   `json:"max_capacity"`
}

const defaultClassroomCapacity = 50

func (s *Server) handleCreateClassroom(w http.ResponseWriter, r *http.Request) {
	c := callerFromContext(r.Context())
	var req createClassroomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	building := strings.TrimSpace(req.Building)
	roomNumber := strings.TrimSpace(req.RoomNumber)
	if building == "" || roomNumber == "" {
		writeError(w, http.StatusBadRequest, "Building and room number are required")
		return
	}
	capacity := defaultClassroomCapacity
	if req.MaxCapacity != nil {
		capacity = *req.MaxCapacity
	}
	if capacity <= 0 {
		writeError(w, http.StatusBadRequest, "Max capacity must be greater than 0")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("Classroom %s", roomNumber)
	}
	classroom := model.Classroom{
		ID:          uuid.NewString(),
		Name:        name,
		Building:    building,
		RoomNumber:  roomNumber,
		MaxCapacity: capacity,
		IsAvailable: true,
		LastUpdated: time.Now().UTC(),
		UpdatedBy:   &c.User.ID,
	}
	if err := s.store.CreateClassroom(r.Context(), classroom); err != nil {
		if repository.IsUniqueViolation(err) {
			writeError(w, http.StatusBadRequest, "A classroom with that room number already exists in this building")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Classroom created",
		"classroom": mapClassroom(classroom),
	})
}
