package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const openSessionIndex = "attendance_sessions_one_open"

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.SessionRepository {
	return &attendanceRepository{db: db}
}

const sessionColumns = `
	id, user_id, check_in_at, check_out_at,
	check_in_latitude, check_in_longitude, check_in_address, check_in_address_source,
	check_out_latitude, check_out_longitude, check_out_address,
	total_hours, status, notes, created_at, updated_at`

func scanSession(row pgx.Row) (attendance.Session, error) {
	var s attendance.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.CheckInAt, &s.CheckOutAt,
		&s.CheckInLatitude, &s.CheckInLongitude, &s.CheckInAddress, &s.CheckInAddressSource,
		&s.CheckOutLatitude, &s.CheckOutLongitude, &s.CheckOutAddress,
		&s.TotalHours, &s.Status, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func collectSessions(rows pgx.Rows) ([]attendance.Session, error) {
	defer rows.Close()

	sessions := []attendance.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Create implements attendance.SessionRepository.
func (a *attendanceRepository) Create(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	q := GetQuerier(ctx, a.db)

	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query := `
		INSERT INTO attendance_sessions (
			id, user_id, check_in_at, check_in_latitude, check_in_longitude,
			check_in_address, check_in_address_source, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + sessionColumns

	created, err := scanSession(q.QueryRow(ctx, query,
		s.ID, s.UserID, s.CheckInAt, s.CheckInLatitude, s.CheckInLongitude,
		s.CheckInAddress, s.CheckInAddressSource, s.Status, s.Notes, s.CreatedAt, s.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, openSessionIndex) {
			return attendance.Session{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.Session{}, fmt.Errorf("failed to create attendance session: %w", err)
	}
	return created, nil
}

func (a *attendanceRepository) get(ctx context.Context, id string, lock bool) (attendance.Session, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	s, err := scanSession(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Session{}, attendance.ErrSessionNotFound
		}
		return attendance.Session{}, fmt.Errorf("failed to get attendance session: %w", err)
	}
	return s, nil
}

// GetByID implements attendance.SessionRepository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Session, error) {
	return a.get(ctx, id, false)
}

// GetByIDForUpdate implements attendance.SessionRepository.
func (a *attendanceRepository) GetByIDForUpdate(ctx context.Context, id string) (attendance.Session, error) {
	return a.get(ctx, id, true)
}

// GetOpenByUser implements attendance.SessionRepository.
func (a *attendanceRepository) GetOpenByUser(ctx context.Context, userID string) (*attendance.Session, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE user_id = $1 AND status = 'CHECKED_IN' LIMIT 1`

	s, err := scanSession(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	return &s, nil
}

const sessionUpdateSet = `
	check_out_at = $2, check_out_latitude = $3, check_out_longitude = $4, check_out_address = $5,
	total_hours = $6, status = $7, notes = $8, updated_at = $9`

func sessionUpdateArgs(s attendance.Session) []interface{} {
	return []interface{}{
		s.ID, s.CheckOutAt, s.CheckOutLatitude, s.CheckOutLongitude, s.CheckOutAddress,
		s.TotalHours, s.Status, s.Notes, s.UpdatedAt,
	}
}

// Update implements attendance.SessionRepository.
func (a *attendanceRepository) Update(ctx context.Context, s attendance.Session) error {
	q := GetQuerier(ctx, a.db)

	tag, err := q.Exec(ctx, `UPDATE attendance_sessions SET `+sessionUpdateSet+` WHERE id = $1`, sessionUpdateArgs(s)...)
	if err != nil {
		if isUniqueViolation(err, openSessionIndex) {
			return attendance.ErrAlreadyCheckedIn
		}
		return fmt.Errorf("failed to update attendance session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrSessionNotFound
	}
	return nil
}

// CloseIfOpen implements attendance.SessionRepository.
func (a *attendanceRepository) CloseIfOpen(ctx context.Context, s attendance.Session) (bool, error) {
	q := GetQuerier(ctx, a.db)

	tag, err := q.Exec(ctx,
		`UPDATE attendance_sessions SET `+sessionUpdateSet+` WHERE id = $1 AND status = 'CHECKED_IN'`,
		sessionUpdateArgs(s)...,
	)
	if err != nil {
		return false, fmt.Errorf("failed to close attendance session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUser implements attendance.SessionRepository.
func (a *attendanceRepository) ListByUser(ctx context.Context, userID string, filter attendance.MyAttendanceFilter) ([]attendance.Session, int64, error) {
	q := GetQuerier(ctx, a.db)

	where := `user_id = $1 AND ($2::timestamptz IS NULL OR check_in_at >= $2) AND ($3::timestamptz IS NULL OR check_in_at < $3)`
	args := []interface{}{userID, filter.From, filter.To}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_sessions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance sessions: %w", err)
	}

	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE ` + where +
		` ORDER BY check_in_at DESC, id LIMIT $4 OFFSET $5`
	rows, err := q.Query(ctx, query, append(args, filter.Limit, (filter.Page-1)*filter.Limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance sessions: %w", err)
	}

	sessions, err := collectSessions(rows)
	return sessions, total, err
}

// ListOpenBefore implements attendance.SessionRepository.
func (a *attendanceRepository) ListOpenBefore(ctx context.Context, t time.Time) ([]attendance.Session, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions
		WHERE status = 'CHECKED_IN' AND check_in_at < $1
		ORDER BY check_in_at, id`
	rows, err := q.Query(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	return collectSessions(rows)
}

// ListBetween implements attendance.SessionRepository.
func (a *attendanceRepository) ListBetween(ctx context.Context, from, to time.Time, userIDs []string) ([]attendance.Session, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions
		WHERE check_in_at >= $1 AND check_in_at < $2
		  AND (cardinality($3::uuid[]) = 0 OR user_id = ANY($3::uuid[]))
		ORDER BY check_in_at, id`
	if userIDs == nil {
		userIDs = []string{}
	}
	rows, err := q.Query(ctx, query, from, to, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return collectSessions(rows)
}
