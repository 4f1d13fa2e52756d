package activity

import (
	"context"
	"time"
)

// DayCount is the number of activities a user started on one local day.
type DayCount struct {
	UserID string
	Day    string // YYYY-MM-DD
	Count  int
}

type ActivityRepository interface {
	Create(ctx context.Context, a Activity) (Activity, error)
	GetByID(ctx context.Context, id string) (Activity, error)

	// GetByIDForUpdate locks the row for the rest of the transaction in ctx.
	GetByIDForUpdate(ctx context.Context, id string) (Activity, error)

	Update(ctx context.Context, a Activity) error

	// ListOpenByUserBetween returns open activities started in [from, to).
	ListOpenByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]Activity, error)

	ListByUser(ctx context.Context, userID string, from, to *time.Time) ([]Activity, error)

	// CountByUserDay counts activities per user and local day for the range.
	CountByUserDay(ctx context.Context, from, to time.Time, loc *time.Location) ([]DayCount, error)
}

type StageRepository interface {
	// Create inserts a stage. It returns ErrStageAlreadyOpen when the stage
	// is open and another open stage exists for the activity.
	Create(ctx context.Context, s ActivityStage) (ActivityStage, error)

	GetByID(ctx context.Context, id string) (ActivityStage, error)
	GetByIDForUpdate(ctx context.Context, id string) (ActivityStage, error)
	GetOpenByActivity(ctx context.Context, activityID string) (*ActivityStage, error)

	// CloseOpenByActivity sets end_time on every open stage of the activity
	// and returns how many were closed.
	CloseOpenByActivity(ctx context.Context, activityID string, end time.Time) (int, error)

	Update(ctx context.Context, s ActivityStage) error
	ListByActivity(ctx context.Context, activityID string) ([]ActivityStage, error)
}
