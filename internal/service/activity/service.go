package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type ActivityServiceImpl struct {
	tx database.Transactor
	activity.ActivityRepository
	activity.StageRepository
	attendance.SessionRepository
	audit.Writer

	clock    clock.Clock
	location *time.Location
}

func NewActivityService(
	tx database.Transactor,
	activityRepo activity.ActivityRepository,
	stageRepo activity.StageRepository,
	sessionRepo attendance.SessionRepository,
	auditWriter audit.Writer,
	clk clock.Clock,
	loc *time.Location,
) activity.ActivityService {
	return &ActivityServiceImpl{
		tx:                 tx,
		ActivityRepository: activityRepo,
		StageRepository:    stageRepo,
		SessionRepository:  sessionRepo,
		Writer:             auditWriter,
		clock:              clk,
		location:           loc,
	}
}

// requireCheckedIn returns the caller when they hold an open attendance session.
func (s *ActivityServiceImpl) requireCheckedIn(ctx context.Context) (user.Actor, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return user.Actor{}, err
	}
	open, err := s.SessionRepository.GetOpenByUser(ctx, actor.UserID)
	if err != nil {
		return user.Actor{}, fmt.Errorf("failed to get open session: %w", err)
	}
	if open == nil {
		return user.Actor{}, attendance.ErrNotCheckedIn
	}
	return actor, nil
}

// lockOwnActivity locks the activity for the rest of the transaction and
// checks it belongs to actor.
func (s *ActivityServiceImpl) lockOwnActivity(ctx context.Context, actor user.Actor, id string) (activity.Activity, error) {
	a, err := s.ActivityRepository.GetByIDForUpdate(ctx, id)
	if err != nil {
		return activity.Activity{}, err
	}
	if a.UserID != actor.UserID {
		return activity.Activity{}, activity.ErrActivityAccessDenied
	}
	return a, nil
}

func (s *ActivityServiceImpl) audit(ctx context.Context, action audit.Action, entityType, entityID, actorID string, details map[string]interface{}) error {
	if err := s.Writer.Append(ctx, audit.Entry{
		ID:         uuid.NewString(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Details:    details,
		CreatedAt:  s.clock.Now(),
	}); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// CreateActivity implements activity.ActivityService.
func (s *ActivityServiceImpl) CreateActivity(ctx context.Context, req activity.CreateActivityRequest) (activity.ActivityResponse, error) {
	if err := req.Validate(); err != nil {
		return activity.ActivityResponse{}, err
	}
	actor, err := s.requireCheckedIn(ctx)
	if err != nil {
		return activity.ActivityResponse{}, err
	}

	now := s.clock.Now()
	a := activity.Activity{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		TicketID:    req.TicketID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   now,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var started activity.ActivityStage

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		created, err := s.ActivityRepository.Create(txCtx, a)
		if err != nil {
			return fmt.Errorf("failed to create activity: %w", err)
		}
		a = created

		started, err = s.StageRepository.Create(txCtx, activity.ActivityStage{
			ID:         uuid.NewString(),
			ActivityID: a.ID,
			Stage:      activity.StageStarted,
			StartTime:  now,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			CreatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("failed to create activity stage: %w", err)
		}

		return s.audit(txCtx, audit.ActionActivityCreated, audit.EntityActivity, a.ID, actor.UserID,
			map[string]interface{}{"after": activity.NewActivityResponse(a)})
	})
	if err != nil {
		return activity.ActivityResponse{}, err
	}

	resp := activity.NewActivityResponse(a)
	resp.Stages = []activity.StageResponse{activity.NewStageResponse(started)}
	return resp, nil
}

// EndActivity implements activity.ActivityService.
func (s *ActivityServiceImpl) EndActivity(ctx context.Context, id string) (activity.ActivityResponse, error) {
	actor, err := s.requireCheckedIn(ctx)
	if err != nil {
		return activity.ActivityResponse{}, err
	}

	var ended activity.Activity
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		a, err := s.lockOwnActivity(txCtx, actor, id)
		if err != nil {
			return err
		}
		if !a.IsOpen() {
			return activity.ErrActivityAlreadyClosed
		}

		now := s.clock.Now()
		if _, err := s.StageRepository.CloseOpenByActivity(txCtx, a.ID, now); err != nil {
			return fmt.Errorf("failed to close activity stages: %w", err)
		}
		a.Close(now)
		if err := s.ActivityRepository.Update(txCtx, a); err != nil {
			return fmt.Errorf("failed to update activity: %w", err)
		}

		ended = a
		return s.audit(txCtx, audit.ActionActivityEnded, audit.EntityActivity, a.ID, actor.UserID,
			map[string]interface{}{"after": activity.NewActivityResponse(a)})
	})
	if err != nil {
		return activity.ActivityResponse{}, err
	}

	return activity.NewActivityResponse(ended), nil
}

// GetMyActivities implements activity.ActivityService.
func (s *ActivityServiceImpl) GetMyActivities(ctx context.Context, filter activity.MyActivitiesFilter) ([]activity.ActivityResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := filter.Validate(s.location, s.clock.Now()); err != nil {
		return nil, err
	}

	activities, err := s.ActivityRepository.ListByUser(ctx, actor.UserID, &filter.From, &filter.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	out := make([]activity.ActivityResponse, 0, len(activities))
	for _, a := range activities {
		stages, err := s.StageRepository.ListByActivity(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list activity stages: %w", err)
		}
		resp := activity.NewActivityResponse(a)
		resp.Stages = make([]activity.StageResponse, 0, len(stages))
		for _, st := range stages {
			resp.Stages = append(resp.Stages, activity.NewStageResponse(st))
		}
		out = append(out, resp)
	}
	return out, nil
}

// LogTicketTransition implements activity.ActivityService.
func (s *ActivityServiceImpl) LogTicketTransition(ctx context.Context, req activity.TicketWorkLog) error {
	ticketID := req.TicketID
	description := fmt.Sprintf("Status changed from %s to %s", req.FromStatus, req.ToStatus)
	zero := 0
	at := req.At

	a := activity.Activity{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		TicketID:    &ticketID,
		Type:        activity.TypeTicketWork,
		Title:       fmt.Sprintf("%s: %s", req.Title, req.ToStatus),
		Description: &description,
		StartTime:   at,
		EndTime:     &at,
		Duration:    &zero,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		CreatedAt:   at,
		UpdatedAt:   at,
	}

	return s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		created, err := s.ActivityRepository.Create(txCtx, a)
		if err != nil {
			return fmt.Errorf("failed to log ticket work: %w", err)
		}
		return s.audit(txCtx, audit.ActionActivityCreated, audit.EntityActivity, created.ID, req.UserID,
			map[string]interface{}{"after": activity.NewActivityResponse(created), "source": "ticket_transition"})
	})
}

// AutoCloseOpen implements activity.ActivityService. It joins the caller's
// transaction when ctx carries one.
func (s *ActivityServiceImpl) AutoCloseOpen(ctx context.Context, userID string, from, to, end time.Time) (int, error) {
	actorID := user.SystemActorID
	if actor, err := user.ActorFromContext(ctx); err == nil {
		actorID = actor.UserID
	}

	closed := 0
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		open, err := s.ActivityRepository.ListOpenByUserBetween(txCtx, userID, from, to)
		if err != nil {
			return fmt.Errorf("failed to list open activities: %w", err)
		}

		for _, a := range open {
			if _, err := s.StageRepository.CloseOpenByActivity(txCtx, a.ID, end); err != nil {
				return fmt.Errorf("failed to close activity stages: %w", err)
			}
			a.Close(end)
			if err := s.ActivityRepository.Update(txCtx, a); err != nil {
				return fmt.Errorf("failed to close activity: %w", err)
			}
			if err := s.audit(txCtx, audit.ActionActivityAutoClosed, audit.EntityActivity, a.ID, actorID,
				map[string]interface{}{"end_time": end, "duration": *a.Duration}); err != nil {
				return err
			}
			closed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if closed > 0 {
		slog.InfoContext(ctx, "activities auto-closed", "user_id", userID, "count", closed)
	}
	return closed, nil
}
