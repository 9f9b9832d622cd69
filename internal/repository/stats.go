package repository

import (
	"context"

	"github.com/mohamdbadhe/campus-hub/internal/model"
)

// GetStats computes the admin dashboard aggregate in a single round trip.
func (s *Store) GetStats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	row := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM profiles WHERE role = 'student'),
			(SELECT COUNT(*) FROM profiles WHERE role = 'lecturer'),
			(SELECT COUNT(*) FROM profiles WHERE role = 'manager'),
			(SELECT COUNT(*) FROM profiles WHERE role = 'admin'),
			(SELECT COUNT(*) FROM role_requests WHERE status = 'pending'),
			(SELECT COUNT(*) FROM fault_reports),
			(SELECT COUNT(*) FROM fault_reports WHERE status IN ('open', 'in_progress'))
	`)
	err := row.Scan(
		&stats.TotalUsers,
		&stats.Students,
		&stats.Lecturers,
		&stats.Managers,
		&stats.Admins,
		&stats.PendingRoleRequests,
		&stats.TotalFaults,
		&stats.OpenFaults,
	)
	return stats, err
}
