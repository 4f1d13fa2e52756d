package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
)

// UpdateSession implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) UpdateSession(ctx context.Context, req attendance.UpdateSessionRequest) (attendance.SessionResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.SessionResponse{}, err
	}
	if actor.Role != user.RoleAdmin {
		return attendance.SessionResponse{}, user.ErrAdminPrivilegeRequired
	}
	if err := req.Validate(); err != nil {
		return attendance.SessionResponse{}, err
	}

	var corrected attendance.Session
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		sess, err := s.SessionRepository.GetByIDForUpdate(txCtx, req.ID)
		if err != nil {
			return err
		}
		before := attendance.NewSessionResponse(sess)
		now := s.clock.Now()

		if err := applyCorrection(&sess, req); err != nil {
			return err
		}
		if sess.Status != attendance.StatusCheckedIn && sess.CheckOutAt == nil {
			sess.CheckOutAt = &now
		}
		if sess.CheckOutAt != nil {
			hours := attendance.HoursBetween(sess.CheckInAt, *sess.CheckOutAt)
			sess.TotalHours = &hours
		} else {
			sess.TotalHours = nil
		}
		sess.UpdatedAt = now

		if err := s.SessionRepository.Update(txCtx, sess); err != nil {
			if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
				return err
			}
			return fmt.Errorf("failed to correct attendance session: %w", err)
		}

		corrected = sess
		return s.audit(txCtx, audit.ActionAttendanceCorrected, sess.ID, actor.UserID, map[string]interface{}{
			"before": before,
			"after":  attendance.NewSessionResponse(sess),
		})
	})
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	return attendance.NewSessionResponse(corrected), nil
}

func applyCorrection(sess *attendance.Session, req attendance.UpdateSessionRequest) error {
	var errs validator.ValidationErrors

	if req.Notes != nil {
		notes := *req.Notes
		sess.Notes = &notes
	}
	if req.Status != nil {
		sess.Status = *req.Status
		if sess.Status == attendance.StatusCheckedIn {
			if req.CheckOutAt != nil {
				errs.Add("check_out_at", "a checked-in session cannot have a check-out time")
			}
			sess.CheckOutAt = nil
		}
	}
	if req.CheckOutAt != nil && req.Status == nil && sess.Status == attendance.StatusCheckedIn {
		sess.Status = attendance.StatusCheckedOut
	}
	if req.CheckOutAt != nil && sess.Status != attendance.StatusCheckedIn {
		checkOut, _ := validator.IsValidDateTime(*req.CheckOutAt)
		if checkOut.Before(sess.CheckInAt) {
			errs.Add("check_out_at", "check_out_at must not be before the check-in time")
		}
		sess.CheckOutAt = &checkOut
	}

	return errs.Err()
}
