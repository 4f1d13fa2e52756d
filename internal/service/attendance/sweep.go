package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
)

// autoCheckoutAt returns when the sweep closes a session that started at
// checkIn: the cut-off of that day, or the last second of the day when the
// check-in came after the cut-off. It never exceeds now.
func (s *AttendanceServiceImpl) autoCheckoutAt(checkIn, now time.Time) time.Time {
	loc := s.config.Location
	closeAt := attendance.CutoffFor(checkIn, loc, s.config.CutoffHour)
	if !checkIn.Before(closeAt) {
		local := checkIn.In(loc)
		closeAt = time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
	}
	if closeAt.After(now) {
		closeAt = now
	}
	return closeAt
}

// AutoCheckout implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) AutoCheckout(ctx context.Context, now time.Time) (attendance.SweepResult, error) {
	// Before today's cut-off only earlier days are due.
	threshold := attendance.CutoffFor(now, s.config.Location, s.config.CutoffHour)
	if now.Before(threshold) {
		threshold, _ = attendance.Day(now, s.config.Location)
	}

	open, err := s.SessionRepository.ListOpenBefore(ctx, threshold)
	if err != nil {
		return attendance.SweepResult{}, fmt.Errorf("failed to list open sessions: %w", err)
	}

	var result attendance.SweepResult
	for _, sess := range open {
		result.Processed++

		closed, ok, err := s.autoCheckoutOne(ctx, sess, now)
		switch {
		case err != nil:
			result.Failed++
			slog.ErrorContext(ctx, "auto-checkout failed",
				"session_id", sess.ID,
				"user_id", sess.UserID,
				"error", err,
			)
		case !ok:
			result.Skipped++
		default:
			result.Closed++
			s.notifyAutoCheckout(ctx, closed)
		}
	}

	return result, nil
}

// autoCheckoutOne closes one session in its own transaction. It reports
// false when the session was closed by someone else first.
func (s *AttendanceServiceImpl) autoCheckoutOne(ctx context.Context, sess attendance.Session, now time.Time) (attendance.Session, bool, error) {
	closeAt := s.autoCheckoutAt(sess.CheckInAt, now)
	hours := attendance.HoursBetween(sess.CheckInAt, closeAt)

	closed := sess
	closed.CheckOutAt = &closeAt
	closed.TotalHours = &hours
	closed.Status = attendance.StatusCheckedOut
	closed.AppendNote(attendance.AutoCheckoutTag)
	closed.UpdatedAt = now

	applied := false
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		ok, err := s.SessionRepository.CloseIfOpen(txCtx, closed)
		if err != nil {
			return fmt.Errorf("failed to close attendance session: %w", err)
		}
		if !ok {
			return nil
		}

		dayStart, dayEnd := attendance.Day(sess.CheckInAt, s.config.Location)
		autoClosed, err := s.activityService.AutoCloseOpen(txCtx, sess.UserID, dayStart, dayEnd, closeAt)
		if err != nil {
			return err
		}

		applied = true
		return s.audit(txCtx, audit.ActionAttendanceAutoClose, sess.ID, user.SystemActorID, map[string]interface{}{
			"before":                 attendance.NewSessionResponse(sess),
			"after":                  attendance.NewSessionResponse(closed),
			"auto_closed_activities": autoClosed,
		})
	})
	if err != nil {
		return attendance.Session{}, false, err
	}
	return closed, applied, nil
}

func (s *AttendanceServiceImpl) notifyAutoCheckout(ctx context.Context, sess attendance.Session) {
	if s.notifier == nil || s.runner == nil {
		return
	}
	draft := notification.Draft{
		RecipientID: sess.UserID,
		Type:        notification.TypeAttendanceAutoCheckout,
		Title:       "Automatic check-out",
		Message:     fmt.Sprintf("You were checked out automatically at %s", sess.CheckOutAt.In(s.config.Location).Format("15:04")),
		Subject:     &notification.Subject{Kind: notification.SubjectAttendanceSession, ID: sess.ID},
	}
	s.runner.Go(ctx, "attendance.notify_auto_checkout", func(taskCtx context.Context) error {
		return s.notifier.Enqueue(taskCtx, draft)
	})
}
