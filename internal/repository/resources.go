package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/model"
)

// Libraries

func (s *Store) CreateLibrary(ctx context.Context, library model.Library) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO libraries (id, name, current_occupancy, max_capacity, is_open, last_updated, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, library.ID, library.Name, library.CurrentOccupancy, library.MaxCapacity, library.IsOpen, library.LastUpdated, library.UpdatedBy)
	return err
}

func (s *Store) ListLibraries(ctx context.Context) ([]model.Library, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, current_occupancy, max_capacity, is_open, last_updated, updated_by
		FROM libraries
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Library
	for rows.Next() {
		library, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, library)
	}
	return out, rows.Err()
}

func (s *Store) GetLibraryByName(ctx context.Context, name string) (model.Library, error) {
	return scanLibrary(s.pool.QueryRow(ctx, `
		SELECT id, name, current_occupancy, max_capacity, is_open, last_updated, updated_by
		FROM libraries
		WHERE name = $1
	`, name))
}

func (s *Store) GetLibraryByID(ctx context.Context, libraryID string) (model.Library, error) {
	return scanLibrary(s.pool.QueryRow(ctx, `
		SELECT id, name, current_occupancy, max_capacity, is_open, last_updated, updated_by
		FROM libraries
		WHERE id = $1
	`, libraryID))
}

func scanLibrary(row pgx.Row) (model.Library, error) {
	var library model.Library
	err := row.Scan(
		&library.ID,
		&library.Name,
		&library.CurrentOccupancy,
		&library.MaxCapacity,
		&library.IsOpen,
		&library.LastUpdated,
		&library.UpdatedBy,
	)
	return library, err
}

// Labs

func (s *Store) CreateLab(ctx context.Context, lab model.Lab) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO labs (id, name, building, room_number, current_occupancy, max_capacity, is_available, equipment_status, last_updated, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, lab.ID, lab.Name, lab.Building, lab.RoomNumber, lab.CurrentOccupancy, lab.MaxCapacity, lab.IsAvailable, lab.EquipmentStatus, lab.LastUpdated, lab.UpdatedBy)
	return err
}

func (s *Store) ListLabs(ctx context.Context) ([]model.Lab, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, building, room_number, current_occupancy, max_capacity, is_available, equipment_status, last_updated, updated_by
		FROM labs
		ORDER BY building, room_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Lab
	for rows.Next() {
		lab, err := scanLab(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lab)
	}
	return out, rows.Err()
}

func (s *Store) GetLabByID(ctx context.Context, labID string) (model.Lab, error) {
	return scanLab(s.pool.QueryRow(ctx, `
		SELECT id, name, building, room_number, current_occupancy, max_capacity, is_available, equipment_status, last_updated, updated_by
		FROM labs
		WHERE id = $1
	`, labID))
}

func scanLab(row pgx.Row) (model.Lab, error) {
	var lab model.Lab
	err := row.Scan(
		&lab.ID,
		&lab.Name,
		&lab.Building,
		&lab.RoomNumber,
		&lab.CurrentOccupancy,
		&lab.MaxCapacity,
		&lab.IsAvailable,
		&lab.EquipmentStatus,
		&lab.LastUpdated,
		&lab.UpdatedBy,
	)
	return lab, err
}

// Classrooms

func (s *Store) CreateClassroom(ctx context.Context, classroom model.Classroom) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO classrooms (id, name, building, room_number, current_occupancy, max_capacity, is_available, last_updated, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, classroom.ID, classroom.Name, classroom.Building, classroom.RoomNumber, classroom.CurrentOccupancy, classroom.MaxCapacity, classroom.IsAvailable, classroom.LastUpdated, classroom.UpdatedBy)
	return err
}

func (s *Store) ListClassrooms(ctx context.Context) ([]model.Classroom, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, building, room_number, current_occupancy, max_capacity, is_available, last_updated, updated_by
		FROM classrooms
		ORDER BY building, room_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Classroom
	for rows.Next() {
		classroom, err := scanClassroom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, classroom)
	}
	return out, rows.Err()
}

func (s *Store) GetClassroomByID(ctx context.Context, classroomID string) (model.Classroom, error) {
	return scanClassroom(s.pool.QueryRow(ctx, `
		SELECT id, name, building, room_number, current_occupancy, max_capacity, is_available, last_updated, updated_by
		FROM classrooms
		WHERE id = $1
	`, classroomID))
}

func scanClassroom(row pgx.Row) (model.Classroom, error) {
	var classroom model.Classroom
	err := row.Scan(
		&classroom.ID,
		&classroom.Name,
		&classroom.Building,
		&classroom.RoomNumber,
		&classroom.CurrentOccupancy,
		&classroom.MaxCapacity,
		&classroom.IsAvailable,
		&classroom.LastUpdated,
		&classroom.UpdatedBy,
	)
	return classroom, err
}

// ApplyResourceState writes the requested occupancy and availability onto
// the target row. Nil fields keep their current values.
func (s *Store) ApplyResourceState(ctx context.Context, kind model.ResourceKind, resourceID string, occupancy *int, available *bool, updatedBy string, updatedAt time.Time) error {
	return applyResourceState(ctx, s.pool, kind, resourceID, occupancy, available, updatedBy, updatedAt)
}

func applyResourceState(ctx context.Context, q querier, kind model.ResourceKind, resourceID string, occupancy *int, available *bool, updatedBy string, updatedAt time.Time) error {
	var query string
	switch kind {
	case model.KindLibrary:
		query = `
			UPDATE libraries
			SET current_occupancy = COALESCE($1, current_occupancy),
			    is_open = COALESCE($2, is_open),
			    last_updated = $3,
			    updated_by = $4
			WHERE id = $5
		`
	case model.KindLab:
		query = `
			UPDATE labs
			SET current_occupancy = COALESCE($1, current_occupancy),
			    is_available = COALESCE($2, is_available),
			    last_updated = $3,
			    updated_by = $4
			WHERE id = $5
		`
	case model.KindClassroom:
		query = `
			UPDATE classrooms
			SET current_occupancy = COALESCE($1, current_occupancy),
			    is_available = COALESCE($2, is_available),
			    last_updated = $3,
			    updated_by = $4
			WHERE id = $5
		`
	default:
		return fmt.Errorf("unknown resource kind %q", kind)
	}
	tag, err := q.Exec(ctx, query, occupancy, available, updatedAt, updatedBy, resourceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateLibraryMeta renames a library or changes its capacity. Nil
// fields keep their current values.
func (s *Store) UpdateLibraryMeta(ctx context.Context, libraryID string, name *string, maxCapacity *int, updatedBy string, updatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE libraries
		SET name = COALESCE($1, name),
		    max_capacity = COALESCE($2, max_capacity),
		    last_updated = $3,
		    updated_by = $4
		WHERE id = $5
	`, name, maxCapacity, updatedAt, updatedBy, libraryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) UpdateLabEquipmentStatus(ctx context.Context, labID, equipmentStatus, updatedBy string, updatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE labs
		SET equipment_status = $1, last_updated = $2, updated_by = $3
		WHERE id = $4
	`, equipmentStatus, updatedAt, updatedBy, labID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
