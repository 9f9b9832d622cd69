package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mohamdbadhe/campus-hub/internal/model"
)

// ErrNotPending is returned by the resolve methods when the request was
// already approved or rejected by a concurrent admin.
var ErrNotPending = errors.New("request is not pending")

// ErrRoomUnavailable is returned when a booking approval names a room
// that is already held.
var ErrRoomUnavailable = errors.New("room is not available")

// ErrRoomNotFound is returned when a booking approval names a room that
// does not exist for the requested room type.
var ErrRoomNotFound = errors.New("room not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so query helpers
// can run inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Users and profiles

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO profiles (user_id, role, department, manager_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, user.ID, model.RoleStudent, "", nil, user.CreatedAt, user.UpdatedAt)
		return err
	})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// GetProfile creates the default student profile on first access for
// accounts that predate the profiles table.
func (s *Store) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	profile, err := scanProfile(s.pool.QueryRow(ctx, `
		SELECT user_id, role, department, manager_type, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`, userID))
	if !errors.Is(err, pgx.ErrNoRows) {
		return profile, err
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, role, department, manager_type, created_at, updated_at)
		VALUES ($1, $2, '', NULL, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, model.RoleStudent, now)
	if err != nil {
		return model.Profile{}, err
	}
	return scanProfile(s.pool.QueryRow(ctx, `
		SELECT user_id, role, department, manager_type, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`, userID))
}

func scanProfile(row pgx.Row) (model.Profile, error) {
	var profile model.Profile
	err := row.Scan(
		&profile.UserID,
		&profile.Role,
		&profile.Department,
		&profile.ManagerType,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	return profile, err
}

func (s *Store) UpdateProfileRole(ctx context.Context, userID string, role model.Role, managerType *string, updatedAt time.Time) error {
	return updateProfileRole(ctx, s.pool, userID, role, managerType, updatedAt)
}

func updateProfileRole(ctx context.Context, q querier, userID string, role model.Role, managerType *string, updatedAt time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE profiles
		SET role = $1, manager_type = $2, updated_at = $3
		WHERE user_id = $4
	`, role, managerType, updatedAt, userID)
	return err
}

func (s *Store) UpdateProfileDepartment(ctx context.Context, userID, department string, updatedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET department = $1, updated_at = $2
		WHERE user_id = $3
	`, department, updatedAt, userID)
	return err
}

// UserWithProfile backs the admin user listing.
type UserWithProfile struct {
	User    model.User
	Profile model.Profile
}

func (s *Store) ListUsers(ctx context.Context) ([]UserWithProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email, u.created_at,
		       COALESCE(p.role, 'student'), COALESCE(p.department, ''), p.manager_type
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		ORDER BY u.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserWithProfile
	for rows.Next() {
		var entry UserWithProfile
		if err := rows.Scan(
			&entry.User.ID,
			&entry.User.Email,
			&entry.User.CreatedAt,
			&entry.Profile.Role,
			&entry.Profile.Department,
			&entry.Profile.ManagerType,
		); err != nil {
			return nil, err
		}
		entry.Profile.UserID = entry.User.ID
		out = append(out, entry)
	}
	return out, rows.Err()
}
