package model

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// ParseRole accepts any stored role. Self-service elevation additionally
// excludes admin; see ParseRequestableRole.
func ParseRole(value string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(value))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleLecturer:
		return RoleLecturer, nil
	case RoleManager:
		return RoleManager, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("invalid role %q", value)
	}
}

func ParseRequestableRole(value string) (Role, error) {
	role, err := ParseRole(value)
	if err != nil || role == RoleAdmin {
		return "", fmt.Errorf("invalid role %q", value)
	}
	return role, nil
}

func (r Role) Privileged() bool {
	return r == RoleManager || r == RoleAdmin
}

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

type ResourceKind string

const (
	KindLibrary   ResourceKind = "library"
	KindLab       ResourceKind = "lab"
	KindClassroom ResourceKind = "classroom"
)

type RoomType string

const (
	RoomClassroom RoomType = "classroom"
	RoomLab       RoomType = "lab"
)

func ParseRoomType(value string) (RoomType, error) {
	switch RoomType(strings.TrimSpace(strings.ToLower(value))) {
	case RoomClassroom:
		return RoomClassroom, nil
	case RoomLab:
		return RoomLab, nil
	default:
		return "", fmt.Errorf("invalid room type %q", value)
	}
}

type FaultStatus string

const (
	FaultOpen       FaultStatus = "open"
	FaultInProgress FaultStatus = "in_progress"
	FaultResolved   FaultStatus = "resolved"
	FaultDone       FaultStatus = "done"
	FaultClosed     FaultStatus = "closed"
)

func ParseFaultStatus(value string) (FaultStatus, error) {
	switch FaultStatus(strings.TrimSpace(strings.ToLower(value))) {
	case FaultOpen:
		return FaultOpen, nil
	case FaultInProgress:
		return FaultInProgress, nil
	case FaultResolved:
		return FaultResolved, nil
	case FaultDone:
		return FaultDone, nil
	case FaultClosed:
		return FaultClosed, nil
	default:
		return "", fmt.Errorf("invalid fault status %q", value)
	}
}

// Terminal reports whether the status closes the report. The first
// transition into a terminal status stamps resolved_at.
func (s FaultStatus) Terminal() bool {
	return s == FaultResolved || s == FaultDone || s == FaultClosed
}

type FaultSeverity string

const (
	SeverityLow      FaultSeverity = "low"
	SeverityMedium   FaultSeverity = "medium"
	SeverityHigh     FaultSeverity = "high"
	SeverityCritical FaultSeverity = "critical"
)

func ParseFaultSeverity(value string) (FaultSeverity, error) {
	switch FaultSeverity(strings.TrimSpace(strings.ToLower(value))) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	case SeverityCritical:
		return SeverityCritical, nil
	default:
		return "", fmt.Errorf("invalid severity %q", value)
	}
}

var faultCategories = map[string]struct{}{
	"projector":  {},
	"ac":         {},
	"lighting":   {},
	"furniture":  {},
	"computer":   {},
	"network":    {},
	"plumbing":   {},
	"electrical": {},
	"other":      {},
}

func ParseFaultCategory(value string) (string, error) {
	category := strings.TrimSpace(strings.ToLower(value))
	if _, ok := faultCategories[category]; !ok {
		return "", fmt.Errorf("invalid category %q", value)
	}
	return category, nil
}

var locationTypes = map[string]struct{}{
	"classroom":   {},
	"lab":         {},
	"library":     {},
	"common_area": {},
}

func ParseLocationType(value string) (string, error) {
	location := strings.TrimSpace(strings.ToLower(value))
	if _, ok := locationTypes[location]; !ok {
		return "", fmt.Errorf("invalid location type %q", value)
	}
	return location, nil
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Profile struct {
	UserID      string
	Role        Role
	Department  string
	ManagerType *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RoleRequest struct {
	ID              string
	UserID          string
	UserEmail       string
	RequestedRole   Role
	ManagerType     *string
	Reason          *string
	Status          RequestStatus
	ApprovedBy      *string
	ApprovedByEmail *string
	RequestedAt     time.Time
	ApprovedAt      *time.Time
	RejectionReason *string
}

type Library struct {
	ID               string
	Name             string
	CurrentOccupancy int
	MaxCapacity      int
	IsOpen           bool
	LastUpdated      time.Time
	UpdatedBy        *string
}

type Lab struct {
	ID               string
	Name             string
	Building         string
	RoomNumber       string
	CurrentOccupancy int
	MaxCapacity      int
	IsAvailable      bool
	EquipmentStatus  string
	LastUpdated      time.Time
	UpdatedBy        *string
}

type Classroom struct {
	ID               string
	Name             string
	Building         string
	RoomNumber       string
	CurrentOccupancy int
	MaxCapacity      int
	IsAvailable      bool
	LastUpdated      time.Time
	UpdatedBy        *string
}

// UpdateRequest is a pending field-mask change against a resource. Nil
// fields were not requested and keep their current values on approval.
type UpdateRequest struct {
	ID                 string
	ResourceKind       ResourceKind
	ResourceID         string
	RequestedBy        string
	RequestedByEmail   string
	RequestedOccupancy *int
	RequestedAvailable *bool
	Status             RequestStatus
	ApprovedBy         *string
	RequestedAt        time.Time
	ApprovedAt         *time.Time
	RejectionReason    *string
}

type FaultReport struct {
	ID              string
	ReporterID      string
	ReporterEmail   string
	Title           string
	Description     string
	LocationType    string
	Building        string
	RoomNumber      string
	Category        string
	Severity        FaultSeverity
	Status          FaultStatus
	AssignedTo      string
	ResolutionNotes string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time
}

type RoomRequest struct {
	ID                string
	RequestedBy       string
	RequestedByEmail  string
	RoomType          RoomType
	Purpose           string
	ExpectedAttendees int
	RequestedDate     time.Time
	StartTime         string
	EndTime           string
	ClassroomID       *string
	LabID             *string
	Status            RequestStatus
	ApprovedBy        *string
	ApprovedByEmail   *string
	RequestedAt       time.Time
	ApprovedAt        *time.Time
	RejectionReason   *string
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	TotalUsers          int
	Students            int
	Lecturers           int
	Managers            int
	Admins              int
	PendingRoleRequests int
	TotalFaults         int
	OpenFaults          int
}
