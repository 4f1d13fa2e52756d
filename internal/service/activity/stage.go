package activity

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/google/uuid"
)

// CreateStage implements activity.ActivityService.
func (s *ActivityServiceImpl) CreateStage(ctx context.Context, req activity.CreateStageRequest) (activity.StageResponse, error) {
	if err := req.Validate(); err != nil {
		return activity.StageResponse{}, err
	}
	actor, err := s.requireCheckedIn(ctx)
	if err != nil {
		return activity.StageResponse{}, err
	}

	var resp activity.StageResponse
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		a, err := s.lockOwnActivity(txCtx, actor, req.ActivityID)
		if err != nil {
			return err
		}
		if !a.IsOpen() {
			return activity.ErrActivityAlreadyClosed
		}

		now := s.clock.Now()
		if _, err := s.StageRepository.CloseOpenByActivity(txCtx, a.ID, now); err != nil {
			return fmt.Errorf("failed to close open stage: %w", err)
		}

		st := activity.ActivityStage{
			ID:         uuid.NewString(),
			ActivityID: a.ID,
			Stage:      req.Stage,
			StartTime:  now,
			Notes:      req.Notes,
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			CreatedAt:  now,
		}
		completed := req.Stage == activity.StageCompleted
		if completed {
			st.EndTime = &now
		}

		st, err = s.StageRepository.Create(txCtx, st)
		if err != nil {
			return fmt.Errorf("failed to create activity stage: %w", err)
		}

		if completed {
			a.Close(now)
			if err := s.ActivityRepository.Update(txCtx, a); err != nil {
				return fmt.Errorf("failed to close activity: %w", err)
			}
		}

		resp = activity.NewStageResponse(st)
		resp.ActivityClosed = completed
		return s.audit(txCtx, audit.ActionActivityStageCreated, audit.EntityStage, st.ID, actor.UserID,
			map[string]interface{}{"activity_id": a.ID, "stage": st.Stage, "activity_closed": completed})
	})
	if err != nil {
		return activity.StageResponse{}, err
	}
	return resp, nil
}

// EndStage implements activity.ActivityService.
func (s *ActivityServiceImpl) EndStage(ctx context.Context, stageID string) (activity.StageResponse, error) {
	actor, err := s.requireCheckedIn(ctx)
	if err != nil {
		return activity.StageResponse{}, err
	}

	var resp activity.StageResponse
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		st, err := s.StageRepository.GetByID(txCtx, stageID)
		if err != nil {
			return err
		}
		a, err := s.lockOwnActivity(txCtx, actor, st.ActivityID)
		if err != nil {
			return err
		}
		// Re-read under the activity lock
		st, err = s.StageRepository.GetByIDForUpdate(txCtx, stageID)
		if err != nil {
			return err
		}
		if !st.IsOpen() {
			return activity.ErrStageAlreadyClosed
		}

		now := s.clock.Now()
		end := now
		if end.Before(st.StartTime) {
			end = st.StartTime
		}
		st.EndTime = &end
		if err := s.StageRepository.Update(txCtx, st); err != nil {
			return fmt.Errorf("failed to end activity stage: %w", err)
		}

		closeParent := st.Stage == activity.StageCompleted
		if !closeParent {
			open, err := s.StageRepository.GetOpenByActivity(txCtx, a.ID)
			if err != nil {
				return fmt.Errorf("failed to get open stage: %w", err)
			}
			closeParent = open == nil
		}

		activityClosed := false
		if closeParent && a.IsOpen() {
			if _, err := s.StageRepository.CloseOpenByActivity(txCtx, a.ID, now); err != nil {
				return fmt.Errorf("failed to close activity stages: %w", err)
			}
			a.Close(now)
			if err := s.ActivityRepository.Update(txCtx, a); err != nil {
				return fmt.Errorf("failed to close activity: %w", err)
			}
			activityClosed = true
		}

		resp = activity.NewStageResponse(st)
		resp.ActivityClosed = activityClosed
		return s.audit(txCtx, audit.ActionActivityStageEnded, audit.EntityStage, st.ID, actor.UserID,
			map[string]interface{}{"activity_id": a.ID, "stage": st.Stage, "activity_closed": activityClosed})
	})
	if err != nil {
		return activity.StageResponse{}, err
	}
	return resp, nil
}

// ListStages implements activity.ActivityService.
func (s *ActivityServiceImpl) ListStages(ctx context.Context, activityID string) ([]activity.StageResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	a, err := s.ActivityRepository.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if a.UserID != actor.UserID && actor.Role != user.RoleAdmin {
		return nil, activity.ErrActivityAccessDenied
	}

	stages, err := s.StageRepository.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity stages: %w", err)
	}

	out := make([]activity.StageResponse, 0, len(stages))
	for _, st := range stages {
		out = append(out, activity.NewStageResponse(st))
	}
	return out, nil
}
