package activity

import (
	"context"
	"time"
)

// ActivityService logs work activities and drives their stage sub-machine.
type ActivityService interface {
	CreateActivity(ctx context.Context, req CreateActivityRequest) (ActivityResponse, error)
	EndActivity(ctx context.Context, id string) (ActivityResponse, error)
	GetMyActivities(ctx context.Context, filter MyActivitiesFilter) ([]ActivityResponse, error)

	// CreateStage closes the open stage of the activity and starts a new one
	CreateStage(ctx context.Context, req CreateStageRequest) (StageResponse, error)

	// EndStage closes a stage, and the activity when nothing remains open
	EndStage(ctx context.Context, stageID string) (StageResponse, error)

	ListStages(ctx context.Context, activityID string) ([]StageResponse, error)

	// LogTicketTransition records a closed TICKET_WORK activity for a status change
	LogTicketTransition(ctx context.Context, req TicketWorkLog) error

	// AutoCloseOpen closes the user's activities opened in [from, to) at end
	AutoCloseOpen(ctx context.Context, userID string, from, to, end time.Time) (int, error)
}
