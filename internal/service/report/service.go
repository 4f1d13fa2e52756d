package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"golang.org/x/sync/errgroup"
)

type ReportServiceImpl struct {
	report.Repository
	clock    clock.Clock
	location *time.Location
}

func NewReportService(repo report.Repository, clk clock.Clock, loc *time.Location) report.ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportServiceImpl{
		Repository: repo,
		clock:      clk,
		location:   loc,
	}
}

// scopeQuery narrows the requested filters to what the actor may see.
func scopeQuery(actor user.Actor, filter report.ReportFilter, q *report.Query) error {
	q.ZoneID = filter.ZoneID
	q.UserID = filter.UserID
	q.Search = filter.Search

	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleZoneManager:
		if actor.ZoneID == nil {
			return user.ErrZoneRequired
		}
		if filter.ZoneID != nil && *filter.ZoneID != "" && *filter.ZoneID != *actor.ZoneID {
			return report.ErrReportScopeDenied
		}
		q.ZoneID = actor.ZoneID
	case user.RoleFieldStaff:
		if filter.UserID != nil && *filter.UserID != "" && *filter.UserID != actor.UserID {
			return report.ErrReportScopeDenied
		}
		self := actor.UserID
		q.UserID = &self
	default:
		return report.ErrReportScopeDenied
	}

	if q.ZoneID != nil && *q.ZoneID == "" {
		q.ZoneID = nil
	}
	if q.UserID != nil && *q.UserID == "" {
		q.UserID = nil
	}
	return nil
}

// AttendanceReport implements report.ReportService.
func (s *ReportServiceImpl) AttendanceReport(ctx context.Context, filter report.ReportFilter) (report.ReportResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return report.ReportResponse{}, err
	}
	if !user.HasPermission(actor.Role, user.PermissionReportsView) {
		return report.ReportResponse{}, user.ErrInsufficientPermissions
	}

	now := s.clock.Now()
	if err := filter.Validate(s.location, now); err != nil {
		return report.ReportResponse{}, err
	}

	q := report.Query{
		From:     filter.FromDay,
		To:       filter.ToDay.AddDate(0, 0, 1),
		Location: s.location,
	}
	if err := scopeQuery(actor, filter, &q); err != nil {
		return report.ReportResponse{}, err
	}

	var (
		roster   []user.User
		sessions []attendance.Session
		counts   map[report.DayKey]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roster, err = s.Repository.Roster(gctx, q)
		if err != nil {
			return fmt.Errorf("failed to load roster: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sessions, err = s.Repository.Sessions(gctx, q)
		if err != nil {
			return fmt.Errorf("failed to load attendance sessions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		counts, err = s.Repository.ActivityCounts(gctx, q)
		if err != nil {
			return fmt.Errorf("failed to load activity counts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.ReportResponse{}, err
	}

	records := report.Consolidate(report.Input{
		Sessions:       sessions,
		Roster:         roster,
		ActivityCounts: counts,
		From:           filter.FromDay,
		To:             filter.ToDay,
		Now:            now,
		Location:       s.location,
		Scope:          report.ScopeFor(actor),
	})
	if filter.Status != nil && *filter.Status != "" {
		records = report.FilterByStatus(records, *filter.Status)
	}

	summary := report.Summarize(records)
	page := report.Paginate(records, filter.Page, filter.Limit)

	slog.DebugContext(ctx, "attendance report built",
		"actor_id", actor.UserID,
		"from", filter.FromDay.Format("2006-01-02"),
		"to", filter.ToDay.Format("2006-01-02"),
		"records", len(records),
	)

	return report.ReportResponse{
		Attendance: page,
		Pagination: report.NewPagination(filter.Page, filter.Limit, len(records)),
		Summary:    summary,
	}, nil
}
