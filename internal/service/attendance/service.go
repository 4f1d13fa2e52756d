package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/activity"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/geocode"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/sideeffect"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
)

const DefaultCutoffHour = 19

// Config holds the attendance rules shared by every user.
type Config struct {
	Location   *time.Location
	CutoffHour int // local hour after which a checkout is not early; default 19
}

type AttendanceServiceImpl struct {
	tx database.Transactor
	attendance.SessionRepository
	audit.Writer

	activityService activity.ActivityService
	geocoder        geocode.Geocoder
	notifier        notification.Service
	runner          *sideeffect.Runner
	clock           clock.Clock
	config          Config
}

func NewAttendanceService(
	tx database.Transactor,
	sessionRepo attendance.SessionRepository,
	auditWriter audit.Writer,
	activityService activity.ActivityService,
	geocoder geocode.Geocoder,
	notifier notification.Service,
	runner *sideeffect.Runner,
	clk clock.Clock,
	cfg Config,
) attendance.AttendanceService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CutoffHour <= 0 || cfg.CutoffHour > 23 {
		cfg.CutoffHour = DefaultCutoffHour
	}
	return &AttendanceServiceImpl{
		tx:                tx,
		SessionRepository: sessionRepo,
		Writer:            auditWriter,
		activityService:   activityService,
		geocoder:          geocoder,
		notifier:          notifier,
		runner:            runner,
		clock:             clk,
		config:            cfg,
	}
}

// resolveAddress picks the stored address for a coordinate. A manual source
// with an address is taken verbatim; everything else is reverse geocoded.
func (s *AttendanceServiceImpl) resolveAddress(ctx context.Context, lat, lng float64, source string, address *string) (string, attendance.AddressSource) {
	if attendance.AddressSource(source) == attendance.AddressSourceManual && address != nil && !validator.IsEmpty(*address) {
		return *address, attendance.AddressSourceManual
	}

	if s.geocoder == nil {
		r := geocode.Fallback(lat, lng, nil)
		return r.Address, attendance.AddressSource(r.Source)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, geocode.DefaultTimeout)
	defer cancel()

	r := s.geocoder.ReverseGeocode(lookupCtx, lat, lng)
	if r.Address == "" {
		r = geocode.Fallback(lat, lng, r.Err)
	}
	return r.Address, attendance.AddressSource(r.Source)
}

func (s *AttendanceServiceImpl) audit(ctx context.Context, action audit.Action, sessionID, actorID string, details map[string]interface{}) error {
	if err := s.Writer.Append(ctx, audit.Entry{
		ID:         uuid.NewString(),
		Action:     action,
		EntityType: audit.EntityAttendance,
		EntityID:   sessionID,
		ActorID:    actorID,
		Details:    details,
		CreatedAt:  s.clock.Now(),
	}); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// isEarly reports whether t falls before the cut-off hour of its local day.
func (s *AttendanceServiceImpl) isEarly(t time.Time) bool {
	return t.In(s.config.Location).Hour() < s.config.CutoffHour
}

// CheckIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.SessionResponse{}, err
	}
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	address, source := s.resolveAddress(ctx, *req.Latitude, *req.Longitude, req.LocationSource, req.Address)
	now := s.clock.Now()

	sess := attendance.Session{
		ID:                   uuid.NewString(),
		UserID:               actor.UserID,
		CheckInAt:            now,
		CheckInLatitude:      *req.Latitude,
		CheckInLongitude:     *req.Longitude,
		CheckInAddress:       address,
		CheckInAddressSource: source,
		Status:               attendance.StatusCheckedIn,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if req.Notes != nil {
		sess.AppendNote(*req.Notes)
	}

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		open, err := s.SessionRepository.GetOpenByUser(txCtx, actor.UserID)
		if err != nil {
			return fmt.Errorf("failed to get open session: %w", err)
		}
		if open != nil {
			return attendance.ErrAlreadyCheckedIn
		}

		created, err := s.SessionRepository.Create(txCtx, sess)
		if err != nil {
			if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
				return err
			}
			return fmt.Errorf("failed to create attendance session: %w", err)
		}
		sess = created

		return s.audit(txCtx, audit.ActionAttendanceCheckIn, sess.ID, actor.UserID,
			map[string]interface{}{"after": attendance.NewSessionResponse(sess)})
	})
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	slog.InfoContext(ctx, "attendance checked in",
		"session_id", sess.ID,
		"user_id", actor.UserID,
		"address_source", source,
	)
	return attendance.NewSessionResponse(sess), nil
}

// CheckOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.CheckOutResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.CheckOutResponse{}, err
	}
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.CheckOutResponse{}, err
	}

	sess, err := s.SessionRepository.GetByID(ctx, req.AttendanceID)
	if err != nil {
		return attendance.CheckOutResponse{}, err
	}
	if sess.UserID != actor.UserID {
		return attendance.CheckOutResponse{}, attendance.ErrSessionAccessDenied
	}
	if !sess.IsOpen() {
		return attendance.CheckOutResponse{}, attendance.ErrSessionNotOpen
	}

	early := s.isEarly(s.clock.Now())
	if early && !req.ConfirmEarlyCheckout {
		return attendance.CheckOutResponse{}, attendance.ErrEarlyCheckoutConfirmationRequired
	}

	address, _ := s.resolveAddress(ctx, *req.Latitude, *req.Longitude, req.LocationSource, req.Address)

	var (
		closed     attendance.Session
		autoClosed int
	)
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := s.SessionRepository.GetByIDForUpdate(txCtx, sess.ID)
		if err != nil {
			return err
		}
		if !current.IsOpen() {
			return attendance.ErrSessionNotOpen
		}
		before := attendance.NewSessionResponse(current)

		now := s.clock.Now()
		hours := attendance.HoursBetween(current.CheckInAt, now)
		current.CheckOutAt = &now
		current.CheckOutLatitude = req.Latitude
		current.CheckOutLongitude = req.Longitude
		current.CheckOutAddress = &address
		current.TotalHours = &hours
		current.Status = attendance.StatusCheckedOut
		if s.isEarly(now) {
			current.Status = attendance.StatusEarlyCheckout
		}
		if req.Notes != nil {
			current.AppendNote(*req.Notes)
		}
		current.UpdatedAt = now

		ok, err := s.SessionRepository.CloseIfOpen(txCtx, current)
		if err != nil {
			return fmt.Errorf("failed to close attendance session: %w", err)
		}
		if !ok {
			return attendance.ErrSessionNotOpen
		}

		dayStart, dayEnd := attendance.Day(now, s.config.Location)
		autoClosed, err = s.activityService.AutoCloseOpen(txCtx, current.UserID, dayStart, dayEnd, now)
		if err != nil {
			return err
		}

		closed = current
		return s.audit(txCtx, audit.ActionAttendanceCheckOut, current.ID, actor.UserID, map[string]interface{}{
			"before":                 before,
			"after":                  attendance.NewSessionResponse(current),
			"auto_closed_activities": autoClosed,
		})
	})
	if err != nil {
		return attendance.CheckOutResponse{}, err
	}

	slog.InfoContext(ctx, "attendance checked out",
		"session_id", closed.ID,
		"user_id", actor.UserID,
		"status", closed.Status,
		"auto_closed_activities", autoClosed,
	)
	return attendance.CheckOutResponse{
		Session:              attendance.NewSessionResponse(closed),
		AutoClosedActivities: autoClosed,
	}, nil
}

// ReCheckIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ReCheckIn(ctx context.Context, id string) (attendance.SessionResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	var reopened attendance.Session
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		sess, err := s.SessionRepository.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if sess.UserID != actor.UserID {
			return attendance.ErrSessionAccessDenied
		}
		if sess.Status != attendance.StatusCheckedOut && sess.Status != attendance.StatusEarlyCheckout {
			return attendance.ErrReCheckInNotAllowed
		}

		now := s.clock.Now()
		today, _ := attendance.Day(now, s.config.Location)
		sessionDay, _ := attendance.Day(sess.CheckInAt, s.config.Location)
		if !today.Equal(sessionDay) {
			return attendance.ErrReCheckInNotAllowed
		}

		open, err := s.SessionRepository.GetOpenByUser(txCtx, actor.UserID)
		if err != nil {
			return fmt.Errorf("failed to get open session: %w", err)
		}
		if open != nil {
			return attendance.ErrAlreadyCheckedIn
		}

		before := attendance.NewSessionResponse(sess)
		sess.CheckOutAt = nil
		sess.CheckOutLatitude = nil
		sess.CheckOutLongitude = nil
		sess.CheckOutAddress = nil
		sess.TotalHours = nil
		sess.Status = attendance.StatusCheckedIn
		sess.UpdatedAt = now

		if err := s.SessionRepository.Update(txCtx, sess); err != nil {
			if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
				return err
			}
			return fmt.Errorf("failed to re-open attendance session: %w", err)
		}

		reopened = sess
		return s.audit(txCtx, audit.ActionAttendanceReCheckIn, sess.ID, actor.UserID, map[string]interface{}{
			"before": before,
			"after":  attendance.NewSessionResponse(sess),
		})
	})
	if err != nil {
		return attendance.SessionResponse{}, err
	}

	return attendance.NewSessionResponse(reopened), nil
}

// GetStatus implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetStatus(ctx context.Context) (attendance.StatusResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.StatusResponse{}, err
	}

	open, err := s.SessionRepository.GetOpenByUser(ctx, actor.UserID)
	if err != nil {
		return attendance.StatusResponse{}, fmt.Errorf("failed to get open session: %w", err)
	}

	dayStart, dayEnd := attendance.Day(s.clock.Now(), s.config.Location)
	today, err := s.SessionRepository.ListBetween(ctx, dayStart, dayEnd, []string{actor.UserID})
	if err != nil {
		return attendance.StatusResponse{}, fmt.Errorf("failed to list today's sessions: %w", err)
	}

	resp := attendance.StatusResponse{
		IsCheckedIn: open != nil,
		Today:       make([]attendance.SessionResponse, 0, len(today)),
	}
	if open != nil {
		o := attendance.NewSessionResponse(*open)
		resp.Open = &o
	}
	for _, sess := range today {
		resp.Today = append(resp.Today, attendance.NewSessionResponse(sess))
	}
	return resp, nil
}

// GetMySessions implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetMySessions(ctx context.Context, filter attendance.MyAttendanceFilter) (attendance.ListSessionsResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.ListSessionsResponse{}, err
	}
	if err := filter.Validate(s.config.Location); err != nil {
		return attendance.ListSessionsResponse{}, err
	}

	sessions, total, err := s.SessionRepository.ListByUser(ctx, actor.UserID, filter)
	if err != nil {
		return attendance.ListSessionsResponse{}, fmt.Errorf("failed to list attendance sessions: %w", err)
	}

	out := make([]attendance.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, attendance.NewSessionResponse(sess))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := "0 of 0"
	if total > 0 {
		start := (filter.Page-1)*filter.Limit + 1
		end := start + len(out) - 1
		showing = fmt.Sprintf("%d-%d of %d", start, end, total)
	}

	return attendance.ListSessionsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Sessions:   out,
	}, nil
}

// RequireOpenSession implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RequireOpenSession(ctx context.Context, userID string) (attendance.Session, error) {
	open, err := s.SessionRepository.GetOpenByUser(ctx, userID)
	if err != nil {
		return attendance.Session{}, fmt.Errorf("failed to get open session: %w", err)
	}
	if open == nil {
		return attendance.Session{}, attendance.ErrNotCheckedIn
	}
	return *open, nil
}
