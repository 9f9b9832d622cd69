package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/model"
)

const roomRequestColumns = `
	r.id, r.requested_by, u.email, r.room_type, r.purpose, r.expected_attendees,
	r.requested_date, r.start_time, r.end_time, r.classroom_id, r.lab_id,
	r.status, r.approved_by, a.email, r.requested_at, r.approved_at, r.rejection_reason
`

func (s *Store) CreateRoomRequest(ctx context.Context, request model.RoomRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO room_requests (id, requested_by, room_type, purpose, expected_attendees, requested_date, start_time, end_time, classroom_id, lab_id, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, request.ID, request.RequestedBy, request.RoomType, request.Purpose, request.ExpectedAttendees, request.RequestedDate, request.StartTime, request.EndTime, request.ClassroomID, request.LabID, request.Status, request.RequestedAt)
	return err
}

func (s *Store) GetRoomRequest(ctx context.Context, requestID string) (model.RoomRequest, error) {
	return scanRoomRequest(s.pool.QueryRow(ctx, `
		SELECT `+roomRequestColumns+`
		FROM room_requests r
		JOIN users u ON u.id = r.requested_by
		LEFT JOIN users a ON a.id = r.approved_by
		WHERE r.id = $1
	`, requestID))
}

// ListRoomRequests returns every booking for privileged callers and only
// the caller's own bookings otherwise.
func (s *Store) ListRoomRequests(ctx context.Context, requesterID string) ([]model.RoomRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomRequestColumns+`
		FROM room_requests r
		JOIN users u ON u.id = r.requested_by
		LEFT JOIN users a ON a.id = r.approved_by
		WHERE ($1 = '' OR r.requested_by::text = $1)
		ORDER BY r.requested_at DESC
	`, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoomRequest
	for rows.Next() {
		request, err := scanRoomRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, request)
	}
	return out, rows.Err()
}

func scanRoomRequest(row pgx.Row) (model.RoomRequest, error) {
	var request model.RoomRequest
	err := row.Scan(
		&request.ID,
		&request.RequestedBy,
		&request.RequestedByEmail,
		&request.RoomType,
		&request.Purpose,
		&request.ExpectedAttendees,
		&request.RequestedDate,
		&request.StartTime,
		&request.EndTime,
		&request.ClassroomID,
		&request.LabID,
		&request.Status,
		&request.ApprovedBy,
		&request.ApprovedByEmail,
		&request.RequestedAt,
		&request.ApprovedAt,
		&request.RejectionReason,
	)
	return request, err
}

// ApproveRoomRequest assigns the room and flips its availability in one
// transaction. The room row is locked before the availability check so
// two approvals cannot hand out the same room.
func (s *Store) ApproveRoomRequest(ctx context.Context, requestID, adminID, roomID string, resolvedAt time.Time) (model.RoomRequest, error) {
	var request model.RoomRequest
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT id, requested_by, room_type, status
			FROM room_requests
			WHERE id = $1
			FOR UPDATE
		`, requestID)
		if err := row.Scan(&request.ID, &request.RequestedBy, &request.RoomType, &request.Status); err != nil {
			return err
		}
		if request.Status != model.StatusPending {
			return ErrNotPending
		}

		var available bool
		var roomColumn, roomTable string
		switch request.RoomType {
		case model.RoomLab:
			roomColumn, roomTable = "lab_id", "labs"
		default:
			roomColumn, roomTable = "classroom_id", "classrooms"
		}
		err := tx.QueryRow(ctx, `
			SELECT is_available FROM `+roomTable+` WHERE id = $1 FOR UPDATE
		`, roomID).Scan(&available)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if !available {
			return ErrRoomUnavailable
		}

		if _, err := tx.Exec(ctx, `
			UPDATE `+roomTable+`
			SET is_available = FALSE, last_updated = $1, updated_by = $2
			WHERE id = $3
		`, resolvedAt, adminID, roomID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE room_requests
			SET status = $1, `+roomColumn+` = $2, approved_by = $3, approved_at = $4
			WHERE id = $5
		`, model.StatusApproved, roomID, adminID, resolvedAt, requestID)
		return err
	})
	if err != nil {
		return model.RoomRequest{}, err
	}
	return s.GetRoomRequest(ctx, requestID)
}

func (s *Store) RejectRoomRequest(ctx context.Context, requestID, adminID string, rejectionReason *string, resolvedAt time.Time) (model.RoomRequest, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE room_requests
		SET status = $1, approved_by = $2, approved_at = $3, rejection_reason = $4
		WHERE id = $5 AND status = 'pending'
	`, model.StatusRejected, adminID, resolvedAt, rejectionReason, requestID)
	if err != nil {
		return model.RoomRequest{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetRoomRequest(ctx, requestID); getErr != nil {
			return model.RoomRequest{}, getErr
		}
		return model.RoomRequest{}, ErrNotPending
	}
	return s.GetRoomRequest(ctx, requestID)
}

// ReleaseExpiredRooms frees rooms whose last approved booking ended
// before the cutoff. Idempotent; rooms taken offline by hand are only
// touched if a booking holds them.
func (s *Store) ReleaseExpiredRooms(ctx context.Context, cutoff time.Time) (int64, error) {
	var released int64
	for _, table := range []struct {
		name   string
		column string
	}{
		{name: "classrooms", column: "classroom_id"},
		{name: "labs", column: "lab_id"},
	} {
		tag, err := s.pool.Exec(ctx, `
			UPDATE `+table.name+` room
			SET is_available = TRUE, last_updated = $1
			WHERE room.is_available = FALSE
			  AND EXISTS (
			    SELECT 1 FROM room_requests r
			    WHERE r.`+table.column+` = room.id AND r.status = 'approved'
			  )
			  AND NOT EXISTS (
			    SELECT 1 FROM room_requests r
			    WHERE r.`+table.column+` = room.id AND r.status = 'approved'
			      AND r.requested_date + (r.end_time || ':00')::time > $1
			  )
		`, cutoff)
		if err != nil {
			return released, err
		}
		released += tag.RowsAffected()
	}
	return released, nil
}
