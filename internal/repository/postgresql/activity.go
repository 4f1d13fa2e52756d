package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const openStageIndex = "activity_stages_one_open"

type activityRepositoryImpl struct {
	db *database.DB
}

func NewActivityRepository(db *database.DB) activity.ActivityRepository {
	return &activityRepositoryImpl{db: db}
}

const activityColumns = `
	id, user_id, ticket_id, type, title, description, start_time, end_time, duration,
	latitude, longitude, created_at, updated_at`

func scanActivity(row pgx.Row) (activity.Activity, error) {
	var a activity.Activity
	err := row.Scan(
		&a.ID, &a.UserID, &a.TicketID, &a.Type, &a.Title, &a.Description, &a.StartTime, &a.EndTime, &a.Duration,
		&a.Latitude, &a.Longitude, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func collectActivities(rows pgx.Rows) ([]activity.Activity, error) {
	defer rows.Close()

	activities := []activity.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// Create implements activity.ActivityRepository.
func (r *activityRepositoryImpl) Create(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	q := GetQuerier(ctx, r.db)

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	query := `
		INSERT INTO daily_activities (
			id, user_id, ticket_id, type, title, description, start_time, end_time, duration,
			latitude, longitude, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + activityColumns

	created, err := scanActivity(q.QueryRow(ctx, query,
		a.ID, a.UserID, a.TicketID, a.Type, a.Title, a.Description, a.StartTime, a.EndTime, a.Duration,
		a.Latitude, a.Longitude, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return activity.Activity{}, fmt.Errorf("failed to create activity: %w", err)
	}
	return created, nil
}

func (r *activityRepositoryImpl) get(ctx context.Context, id string, lock bool) (activity.Activity, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + activityColumns + ` FROM daily_activities WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	a, err := scanActivity(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return activity.Activity{}, activity.ErrActivityNotFound
		}
		return activity.Activity{}, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// GetByID implements activity.ActivityRepository.
func (r *activityRepositoryImpl) GetByID(ctx context.Context, id string) (activity.Activity, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate implements activity.ActivityRepository.
func (r *activityRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (activity.Activity, error) {
	return r.get(ctx, id, true)
}

// Update implements activity.ActivityRepository.
func (r *activityRepositoryImpl) Update(ctx context.Context, a activity.Activity) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE daily_activities
		SET title = $2, description = $3, end_time = $4, duration = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := q.Exec(ctx, query, a.ID, a.Title, a.Description, a.EndTime, a.Duration, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return activity.ErrActivityNotFound
	}
	return nil
}

// ListOpenByUserBetween implements activity.ActivityRepository.
func (r *activityRepositoryImpl) ListOpenByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]activity.Activity, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + activityColumns + ` FROM daily_activities
		WHERE user_id = $1 AND end_time IS NULL AND start_time >= $2 AND start_time < $3
		ORDER BY start_time, id
		FOR UPDATE`
	rows, err := q.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list open activities: %w", err)
	}
	return collectActivities(rows)
}

// ListByUser implements activity.ActivityRepository.
func (r *activityRepositoryImpl) ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]activity.Activity, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + activityColumns + ` FROM daily_activities
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
		  AND ($3::timestamptz IS NULL OR start_time < $3)
		ORDER BY start_time DESC, id`
	rows, err := q.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return collectActivities(rows)
}

// CountByUserDay implements activity.ActivityRepository.
func (r *activityRepositoryImpl) CountByUserDay(ctx context.Context, from, to time.Time, loc *time.Location) ([]activity.DayCount, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT user_id, to_char(start_time AT TIME ZONE $3, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM daily_activities
		WHERE start_time >= $1 AND start_time < $2
		GROUP BY user_id, day
	`
	rows, err := q.Query(ctx, query, from, to, loc.String())
	if err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}
	defer rows.Close()

	counts := []activity.DayCount{}
	for rows.Next() {
		var c activity.DayCount
		if err := rows.Scan(&c.UserID, &c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan activity count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

type stageRepositoryImpl struct {
	db *database.DB
}

func NewStageRepository(db *database.DB) activity.StageRepository {
	return &stageRepositoryImpl{db: db}
}

const stageColumns = `id, activity_id, stage, start_time, end_time, notes, latitude, longitude, created_at`

func scanStage(row pgx.Row) (activity.ActivityStage, error) {
	var s activity.ActivityStage
	err := row.Scan(&s.ID, &s.ActivityID, &s.Stage, &s.StartTime, &s.EndTime, &s.Notes, &s.Latitude, &s.Longitude, &s.CreatedAt)
	return s, err
}

// Create implements activity.StageRepository.
func (r *stageRepositoryImpl) Create(ctx context.Context, s activity.ActivityStage) (activity.ActivityStage, error) {
	q := GetQuerier(ctx, r.db)

	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query := `
		INSERT INTO activity_stages (id, activity_id, stage, start_time, end_time, notes, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + stageColumns

	created, err := scanStage(q.QueryRow(ctx, query,
		s.ID, s.ActivityID, s.Stage, s.StartTime, s.EndTime, s.Notes, s.Latitude, s.Longitude, s.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, openStageIndex) {
			return activity.ActivityStage{}, activity.ErrStageAlreadyOpen
		}
		return activity.ActivityStage{}, fmt.Errorf("failed to create stage: %w", err)
	}
	return created, nil
}

func (r *stageRepositoryImpl) get(ctx context.Context, id string, lock bool) (activity.ActivityStage, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + stageColumns + ` FROM activity_stages WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	s, err := scanStage(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return activity.ActivityStage{}, activity.ErrStageNotFound
		}
		return activity.ActivityStage{}, fmt.Errorf("failed to get stage: %w", err)
	}
	return s, nil
}

// GetByID implements activity.StageRepository.
func (r *stageRepositoryImpl) GetByID(ctx context.Context, id string) (activity.ActivityStage, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate implements activity.StageRepository.
func (r *stageRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (activity.ActivityStage, error) {
	return r.get(ctx, id, true)
}

// GetOpenByActivity implements activity.StageRepository.
func (r *stageRepositoryImpl) GetOpenByActivity(ctx context.Context, activityID string) (*activity.ActivityStage, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + stageColumns + ` FROM activity_stages WHERE activity_id = $1 AND end_time IS NULL LIMIT 1`
	s, err := scanStage(q.QueryRow(ctx, query, activityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open stage: %w", err)
	}
	return &s, nil
}

// CloseOpenByActivity implements activity.StageRepository.
func (r *stageRepositoryImpl) CloseOpenByActivity(ctx context.Context, activityID string, end time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE activity_stages SET end_time = GREATEST($2, start_time) WHERE activity_id = $1 AND end_time IS NULL`
	tag, err := q.Exec(ctx, query, activityID, end)
	if err != nil {
		return 0, fmt.Errorf("failed to close open stages: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Update implements activity.StageRepository.
func (r *stageRepositoryImpl) Update(ctx context.Context, s activity.ActivityStage) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE activity_stages SET end_time = $2, notes = $3 WHERE id = $1`, s.ID, s.EndTime, s.Notes)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return activity.ErrStageNotFound
	}
	return nil
}

// ListByActivity implements activity.StageRepository.
func (r *stageRepositoryImpl) ListByActivity(ctx context.Context, activityID string) ([]activity.ActivityStage, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+stageColumns+` FROM activity_stages WHERE activity_id = $1 ORDER BY start_time, created_at, id`, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	stages := []activity.ActivityStage{}
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}
