package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/model"
)

const faultColumns = `
	f.id, f.reporter_id, u.email, f.title, f.description, f.location_type,
	f.building, f.room_number, f.category, f.severity, f.status,
	f.assigned_to, f.resolution_notes, f.created_at, f.updated_at, f.resolved_at
`

func (s *Store) CreateFaultReport(ctx context.Context, report model.FaultReport) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fault_reports (id, reporter_id, title, description, location_type, building, room_number, category, severity, status, assigned_to, resolution_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, report.ID, report.ReporterID, report.Title, report.Description, report.LocationType, report.Building, report.RoomNumber, report.Category, report.Severity, report.Status, report.AssignedTo, report.ResolutionNotes, report.CreatedAt, report.UpdatedAt)
	return err
}

func (s *Store) GetFaultReport(ctx context.Context, reportID string) (model.FaultReport, error) {
	return scanFaultReport(s.pool.QueryRow(ctx, `
		SELECT `+faultColumns+`
		FROM fault_reports f
		JOIN users u ON u.id = f.reporter_id
		WHERE f.id = $1
	`, reportID))
}

// ListFaultReports returns every report for privileged callers and only
// the caller's own reports otherwise.
func (s *Store) ListFaultReports(ctx context.Context, reporterID string) ([]model.FaultReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+faultColumns+`
		FROM fault_reports f
		JOIN users u ON u.id = f.reporter_id
		WHERE ($1 = '' OR f.reporter_id::text = $1)
		ORDER BY f.created_at DESC
	`, reporterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FaultReport
	for rows.Next() {
		report, err := scanFaultReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// FaultPatch holds the fields a maintenance update may change. Nil
// fields are left untouched.
type FaultPatch struct {
	Status          *model.FaultStatus
	AssignedTo      *string
	ResolutionNotes *string
	Severity        *model.FaultSeverity
}

// UpdateFaultReport applies the patch and stamps resolved_at on the
// first transition into a terminal status. Later edits keep the
// earlier resolution time.
func (s *Store) UpdateFaultReport(ctx context.Context, reportID string, patch FaultPatch, resolvedAt *time.Time, updatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE fault_reports
		SET status = COALESCE($1, status),
		    assigned_to = COALESCE($2, assigned_to),
		    resolution_notes = COALESCE($3, resolution_notes),
		    severity = COALESCE($4, severity),
		    resolved_at = COALESCE(resolved_at, $5),
		    updated_at = $6
		WHERE id = $7
	`, patch.Status, patch.AssignedTo, patch.ResolutionNotes, patch.Severity, resolvedAt, updatedAt, reportID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanFaultReport(row pgx.Row) (model.FaultReport, error) {
	var report model.FaultReport
	err := row.Scan(
		&report.ID,
		&report.ReporterID,
		&report.ReporterEmail,
		&report.Title,
		&report.Description,
		&report.LocationType,
		&report.Building,
		&report.RoomNumber,
		&report.Category,
		&report.Severity,
		&report.Status,
		&report.AssignedTo,
		&report.ResolutionNotes,
		&report.CreatedAt,
		&report.UpdatedAt,
		&report.ResolvedAt,
	)
	return report, err
}
