package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
)

// CatchUpSchedule re-runs the sweep hourly so a missed cut-off run is
// recovered.
const CatchUpSchedule = "5 * * * *"

type AttendanceJobs struct {
	attendanceService attendance.AttendanceService
	clock             clock.Clock
}

func NewAttendanceJobs(attendanceService attendance.AttendanceService, clk clock.Clock) *AttendanceJobs {
	return &AttendanceJobs{attendanceService: attendanceService, clock: clk}
}

// RegisterJobs schedules the auto-checkout sweep at the cut-off and on the
// catch-up schedule. An empty catchUpSchedule uses CatchUpSchedule.
func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, cutoffSchedule, catchUpSchedule string) error {
	if catchUpSchedule == "" {
		catchUpSchedule = CatchUpSchedule
	}
	if err := scheduler.AddJob("auto_checkout", cutoffSchedule, j.AutoCheckout); err != nil {
		return err
	}
	return scheduler.AddJob("auto_checkout_catch_up", catchUpSchedule, j.AutoCheckout)
}

func (j *AttendanceJobs) AutoCheckout(ctx context.Context) error {
	slog.InfoContext(ctx, "Cron: Starting auto-checkout sweep")

	result, err := j.attendanceService.AutoCheckout(ctx, j.clock.Now())
	if err != nil {
		return fmt.Errorf("auto-checkout sweep failed: %w", err)
	}

	slog.InfoContext(ctx, "Cron: Auto-checkout sweep finished",
		slog.Int("processed", result.Processed),
		slog.Int("closed", result.Closed),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)
	if result.Failed > 0 {
		return fmt.Errorf("auto-checkout sweep: %d sessions failed", result.Failed)
	}
	return nil
}
