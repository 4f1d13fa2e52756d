package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/ticket"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/utils"
	"github.com/google/uuid"
)

// UpdateStatus implements ticket.TicketService.
func (s *TicketServiceImpl) UpdateStatus(ctx context.Context, req ticket.UpdateStatusRequest) (ticket.TicketResponse, error) {
	if err := req.Validate(); err != nil {
		return ticket.TicketResponse{}, err
	}

	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return ticket.TicketResponse{}, err
	}

	// Photos are stored before the transaction so row locks are not held
	// across storage calls. A failed upload keeps only its metadata.
	photos := []ticket.PhotoRef{}
	if len(req.Photos) > 0 {
		photos, err = s.fileService.StorePhotos(ctx, req.TicketID, req.Photos)
		if err != nil {
			slog.WarnContext(ctx, "ticket photos degraded to metadata",
				"ticket_id", req.TicketID,
				"error", err,
			)
		}
	}

	var (
		updated  ticket.Ticket
		previous ticket.Status
	)
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		t, err := s.TicketRepository.GetByIDForUpdate(txCtx, req.TicketID)
		if err != nil {
			return err
		}

		if !canAccess(actor, t) {
			return ticket.ErrTicketAccessDenied
		}
		if !ticket.IsValidTransition(t.Status, req.Status) {
			return &ticket.InvalidTransitionError{From: t.Status, To: req.Status}
		}
		if !ticket.CanRoleEnter(actor.Role, req.Status) {
			return ticket.ErrRoleCannotEnterStatus
		}

		before := ticket.NewTicketResponse(t)
		previous = t.Status
		now := s.clock.Now()

		timeInStatus := minutesBetween(t.LastStatusChange, now)
		totalTimeOpen := minutesBetween(t.CreatedAt, now)
		loc := req.Location.ToLocation(now)

		applyStatusFields(&t, req, loc, now)
		if loc != nil {
			t.LocationHistory = append(t.LocationHistory, ticket.LocationSnapshot{
				Location:   *loc,
				Status:     req.Status,
				RecordedAt: now,
				RecordedBy: actor.UserID,
			})
		}

		t.Status = req.Status
		t.LastStatusChange = now
		t.TimeInStatus = timeInStatus
		t.TotalTimeOpen = totalTimeOpen
		t.UpdatedAt = now

		if err := s.TicketRepository.Update(txCtx, t); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}

		prev := previous
		if _, err := s.HistoryRepository.Append(txCtx, ticket.StatusHistoryEntry{
			ID:             uuid.NewString(),
			TicketID:       t.ID,
			Status:         req.Status,
			PreviousStatus: &prev,
			ChangedByID:    actor.UserID,
			ChangedAt:      now,
			Notes:          req.Comments,
			Location:       loc,
			Photos:         photos,
			TimeInStatus:   timeInStatus,
			TotalTimeOpen:  totalTimeOpen,
		}); err != nil {
			return fmt.Errorf("failed to append ticket history: %w", err)
		}

		if err := s.Writer.Append(txCtx, audit.Entry{
			ID:         uuid.NewString(),
			Action:     audit.ActionTicketStatusChanged,
			EntityType: audit.EntityTicket,
			EntityID:   t.ID,
			ActorID:    actor.UserID,
			Details: map[string]interface{}{
				"from":   previous,
				"to":     req.Status,
				"before": before,
				"after":  ticket.NewTicketResponse(t),
			},
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}

		updated = t
		return nil
	})
	if err != nil {
		s.discardPhotos(ctx, photos)
		return ticket.TicketResponse{}, err
	}

	slog.InfoContext(ctx, "ticket status changed",
		"ticket_id", updated.ID,
		"from", previous,
		"to", updated.Status,
		"actor_id", actor.UserID,
	)

	s.afterTransition(ctx, actor, updated, previous, req)

	return ticket.NewTicketResponse(updated), nil
}

// discardPhotos removes uploads whose transition was rolled back.
func (s *TicketServiceImpl) discardPhotos(ctx context.Context, photos []ticket.PhotoRef) {
	for _, p := range photos {
		if !p.Stored {
			continue
		}
		key := p.ID
		s.runner.Go(ctx, "ticket.discard_photo", func(ctx context.Context) error {
			return s.fileService.DeleteFile(ctx, key)
		})
	}
}

// applyStatusFields sets the milestone fields of the target status.
func applyStatusFields(t *ticket.Ticket, req ticket.UpdateStatusRequest, loc *ticket.Location, now time.Time) {
	stamp := now
	switch req.Status {
	case ticket.StatusOnsiteVisitPlanned:
		t.VisitPlannedAt = &stamp
	case ticket.StatusOnsiteVisitStarted:
		t.VisitStartedAt = &stamp
		if loc != nil {
			start := *loc
			t.StartLocation = &start
		}
	case ticket.StatusOnsiteVisitReached:
		t.VisitReachedAt = &stamp
		if loc != nil && t.StartLocation != nil {
			meters := utils.HaversineDistance(
				t.StartLocation.Latitude, t.StartLocation.Longitude,
				loc.Latitude, loc.Longitude,
			)
			t.TravelDistanceMeters = &meters
		}
	case ticket.StatusOnsiteVisitInProgress:
		t.VisitInProgressAt = &stamp
	case ticket.StatusOnsiteVisitResolved:
		t.VisitResolvedAt = &stamp
	case ticket.StatusOnsiteVisitPending:
		t.VisitPendingAt = &stamp
	case ticket.StatusOnsiteVisitCompleted:
		t.VisitCompletedAt = &stamp
		if loc != nil {
			end := *loc
			t.EndLocation = &end
		}
	case ticket.StatusResolved:
		t.ResolvedAt = &stamp
		t.ResolutionSummary = req.Comments
	case ticket.StatusClosedPending:
		t.ClosedPendingAt = &stamp
	case ticket.StatusClosed:
		t.ClosedAt = &stamp
		t.Feedback = req.Feedback
		t.Rating = req.Rating
	case ticket.StatusReopened:
		t.ReopenedAt = &stamp
		t.ResolvedAt = nil
		t.ClosedPendingAt = nil
		t.ClosedAt = nil
		t.ResolutionSummary = nil
	}
}

// afterTransition runs the best-effort side effects of a committed
// transition. Their failures never reach the caller.
func (s *TicketServiceImpl) afterTransition(ctx context.Context, actor user.Actor, t ticket.Ticket, from ticket.Status, req ticket.UpdateStatusRequest) {
	if s.activityService != nil {
		log := activity.TicketWorkLog{
			UserID:     actor.UserID,
			TicketID:   t.ID,
			Title:      t.Title,
			FromStatus: string(from),
			ToStatus:   string(t.Status),
			At:         t.LastStatusChange,
		}
		if req.Location != nil {
			log.Latitude = req.Location.Latitude
			log.Longitude = req.Location.Longitude
		}
		s.runner.Go(ctx, "ticket.log_activity", func(taskCtx context.Context) error {
			return s.activityService.LogTicketTransition(taskCtx, log)
		})
	}

	notifType := notification.TypeTicketStatusChanged
	switch t.Status {
	case ticket.StatusClosed:
		notifType = notification.TypeTicketClosed
	case ticket.StatusReopened:
		notifType = notification.TypeTicketReopened
	}

	s.notify(ctx, actor.UserID, participants(t), notifType, t,
		"Ticket status updated",
		fmt.Sprintf("Ticket %q moved from %s to %s", t.Title, from, t.Status),
		map[string]any{"from": from, "to": t.Status})
}

// participants returns the distinct owner, assignee and sub-owner of t.
func participants(t ticket.Ticket) []string {
	ids := []string{t.OwnerID}
	if t.AssignedToID != nil {
		ids = append(ids, *t.AssignedToID)
	}
	if t.SubOwnerID != nil {
		ids = append(ids, *t.SubOwnerID)
	}
	return ids
}

func (s *TicketServiceImpl) notify(ctx context.Context, senderID string, recipients []string, notifType notification.Type, t ticket.Ticket, title, message string, details map[string]any) {
	if s.notifier == nil {
		return
	}

	seen := make(map[string]struct{}, len(recipients))
	drafts := make([]notification.Draft, 0, len(recipients))
	for _, id := range recipients {
		if id == "" || id == senderID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sender := senderID
		drafts = append(drafts, notification.Draft{
			RecipientID: id,
			SenderID:    &sender,
			Type:        notifType,
			Title:       title,
			Message:     message,
			Subject:     &notification.Subject{Kind: notification.SubjectTicket, ID: t.ID},
			Details:     details,
		})
	}
	if len(drafts) == 0 {
		return
	}

	s.runner.Go(ctx, "ticket.notify", func(taskCtx context.Context) error {
		return s.notifier.EnqueueAll(taskCtx, drafts)
	})
}
