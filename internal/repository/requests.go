package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mohamdbadhe/campus-hub/internal/model"
)

// Role requests

func (s *Store) CreateRoleRequest(ctx context.Context, request model.RoleRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO role_requests (id, user_id, requested_role, manager_type, reason, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, request.ID, request.UserID, request.RequestedRole, request.ManagerType, request.Reason, request.Status, request.RequestedAt)
	return err
}

func (s *Store) GetPendingRoleRequest(ctx context.Context, userID string, role model.Role) (model.RoleRequest, error) {
	return scanRoleRequest(s.pool.QueryRow(ctx, `
		SELECT r.id, r.user_id, u.email, r.requested_role, r.manager_type, r.reason, r.status,
		       r.approved_by, a.email, r.requested_at, r.approved_at, r.rejection_reason
		FROM role_requests r
		JOIN users u ON u.id = r.user_id
		LEFT JOIN users a ON a.id = r.approved_by
		WHERE r.user_id = $1 AND r.requested_role = $2 AND r.status = 'pending'
	`, userID, role))
}

func (s *Store) GetPendingRoleRequestForUser(ctx context.Context, userID string) (model.RoleRequest, error) {
	return scanRoleRequest(s.pool.QueryRow(ctx, `
		SELECT r.id, r.user_id, u.email, r.requested_role, r.manager_type, r.reason, r.status,
		       r.approved_by, a.email, r.requested_at, r.approved_at, r.rejection_reason
		FROM role_requests r
		JOIN users u ON u.id = r.user_id
		LEFT JOIN users a ON a.id = r.approved_by
		WHERE r.user_id = $1 AND r.status = 'pending'
		ORDER BY r.requested_at DESC
		LIMIT 1
	`, userID))
}

func (s *Store) ListRoleRequests(ctx context.Context, status model.RequestStatus) ([]model.RoleRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.user_id, u.email, r.requested_role, r.manager_type, r.reason, r.status,
		       r.approved_by, a.email, r.requested_at, r.approved_at, r.rejection_reason
		FROM role_requests r
		JOIN users u ON u.id = r.user_id
		LEFT JOIN users a ON a.id = r.approved_by
		WHERE ($1 = '' OR r.status = $1)
		ORDER BY r.requested_at DESC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoleRequest
	for rows.Next() {
		request, err := scanRoleRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, request)
	}
	return out, rows.Err()
}

func scanRoleRequest(row pgx.Row) (model.RoleRequest, error) {
	var request model.RoleRequest
	err := row.Scan(
		&request.ID,
		&request.UserID,
		&request.UserEmail,
		&request.RequestedRole,
		&request.ManagerType,
		&request.Reason,
		&request.Status,
		&request.ApprovedBy,
		&request.ApprovedByEmail,
		&request.RequestedAt,
		&request.ApprovedAt,
		&request.RejectionReason,
	)
	return request, err
}

// ResolveRoleRequest flips a pending elevation to approved or rejected.
// The status update and the profile change commit together; losing the
// compare-and-set race surfaces as ErrNotPending.
func (s *Store) ResolveRoleRequest(ctx context.Context, requestID, adminID string, status model.RequestStatus, rejectionReason *string, resolvedAt time.Time) (model.RoleRequest, error) {
	var request model.RoleRequest
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE role_requests
			SET status = $1, approved_by = $2, approved_at = $3, rejection_reason = $4
			WHERE id = $5 AND status = 'pending'
			RETURNING id, user_id, requested_role, manager_type, reason, status, approved_by, requested_at, approved_at, rejection_reason
		`, status, adminID, resolvedAt, rejectionReason, requestID)
		err := row.Scan(
			&request.ID,
			&request.UserID,
			&request.RequestedRole,
			&request.ManagerType,
			&request.Reason,
			&request.Status,
			&request.ApprovedBy,
			&request.RequestedAt,
			&request.ApprovedAt,
			&request.RejectionReason,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			if exists, existsErr := s.roleRequestExists(ctx, tx, requestID); existsErr == nil && exists {
				return ErrNotPending
			}
			return pgx.ErrNoRows
		}
		if err != nil {
			return err
		}
		if status == model.StatusApproved {
			managerType := request.ManagerType
			if request.RequestedRole != model.RoleManager {
				managerType = nil
			}
			return updateProfileRole(ctx, tx, request.UserID, request.RequestedRole, managerType, resolvedAt)
		}
		return nil
	})
	return request, err
}

func (s *Store) roleRequestExists(ctx context.Context, q querier, requestID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM role_requests WHERE id = $1)`, requestID).Scan(&exists)
	return exists, err
}

// Resource update requests

func (s *Store) CreateUpdateRequest(ctx context.Context, request model.UpdateRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO resource_update_requests (id, resource_kind, resource_id, requested_by, requested_occupancy, requested_available, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, request.ID, request.ResourceKind, request.ResourceID, request.RequestedBy, request.RequestedOccupancy, request.RequestedAvailable, request.Status, request.RequestedAt)
	return err
}

func (s *Store) ListPendingUpdateRequests(ctx context.Context) ([]model.UpdateRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.resource_kind, r.resource_id, r.requested_by, u.email,
		       r.requested_occupancy, r.requested_available, r.status,
		       r.approved_by, r.requested_at, r.approved_at, r.rejection_reason
		FROM resource_update_requests r
		JOIN users u ON u.id = r.requested_by
		WHERE r.status = 'pending'
		ORDER BY r.requested_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UpdateRequest
	for rows.Next() {
		request, err := scanUpdateRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, request)
	}
	return out, rows.Err()
}

func scanUpdateRequest(row pgx.Row) (model.UpdateRequest, error) {
	var request model.UpdateRequest
	err := row.Scan(
		&request.ID,
		&request.ResourceKind,
		&request.ResourceID,
		&request.RequestedBy,
		&request.RequestedByEmail,
		&request.RequestedOccupancy,
		&request.RequestedAvailable,
		&request.Status,
		&request.ApprovedBy,
		&request.RequestedAt,
		&request.ApprovedAt,
		&request.RejectionReason,
	)
	return request, err
}

// ResolveUpdateRequest flips a pending resource change to approved or
// rejected. Approval applies the requested field mask to the resource in
// the same transaction.
func (s *Store) ResolveUpdateRequest(ctx context.Context, kind model.ResourceKind, requestID, adminID string, status model.RequestStatus, rejectionReason *string, resolvedAt time.Time) (model.UpdateRequest, error) {
	var request model.UpdateRequest
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE resource_update_requests
			SET status = $1, approved_by = $2, approved_at = $3, rejection_reason = $4
			WHERE id = $5 AND resource_kind = $6 AND status = 'pending'
			RETURNING id, resource_kind, resource_id, requested_by, requested_occupancy, requested_available, status, approved_by, requested_at, approved_at, rejection_reason
		`, status, adminID, resolvedAt, rejectionReason, requestID, kind)
		err := row.Scan(
			&request.ID,
			&request.ResourceKind,
			&request.ResourceID,
			&request.RequestedBy,
			&request.RequestedOccupancy,
			&request.RequestedAvailable,
			&request.Status,
			&request.ApprovedBy,
			&request.RequestedAt,
			&request.ApprovedAt,
			&request.RejectionReason,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			if exists, existsErr := s.updateRequestExists(ctx, tx, requestID, kind); existsErr == nil && exists {
				return ErrNotPending
			}
			return pgx.ErrNoRows
		}
		if err != nil {
			return err
		}
		if status == model.StatusApproved {
			return applyResourceState(ctx, tx, request.ResourceKind, request.ResourceID, request.RequestedOccupancy, request.RequestedAvailable, adminID, resolvedAt)
		}
		return nil
	})
	return request, err
}

func (s *Store) updateRequestExists(ctx context.Context, q querier, requestID string, kind model.ResourceKind) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM resource_update_requests WHERE id = $1 AND resource_kind = $2)
	`, requestID, kind).Scan(&exists)
	return exists, err
}
