package cron

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepStub struct {
	attendance.AttendanceService
	result attendance.SweepResult
	calls  []time.Time
}

func (s *sweepStub) AutoCheckout(_ context.Context, now time.Time) (attendance.SweepResult, error) {
	s.calls = append(s.calls, now)
	return s.result, nil
}

func TestAttendanceJobs_AutoCheckout(t *testing.T) {
	now := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)

	t.Run("passes clock time to the sweep", func(t *testing.T) {
		stub := &sweepStub{result: attendance.SweepResult{Processed: 2, Closed: 2}}
		jobs := NewAttendanceJobs(stub, clock.Fixed(now))

		require.NoError(t, jobs.AutoCheckout(context.Background()))
		assert.Equal(t, []time.Time{now}, stub.calls)
	})

	t.Run("reports failed sessions", func(t *testing.T) {
		stub := &sweepStub{result: attendance.SweepResult{Processed: 3, Closed: 2, Failed: 1}}
		jobs := NewAttendanceJobs(stub, clock.Fixed(now))

		err := jobs.AutoCheckout(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 sessions failed")
	})
}

func TestAttendanceJobs_RegisterJobs(t *testing.T) {
	stub := &sweepStub{}
	jobs := NewAttendanceJobs(stub, clock.Fixed(time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)))
	s := NewScheduler(time.UTC, nil)

	require.NoError(t, jobs.RegisterJobs(s, "0 19 * * *", ""))
	s.RunOnce(context.Background())

	assert.Len(t, stub.calls, 2)
	assert.Error(t, jobs.RegisterJobs(NewScheduler(time.UTC, nil), "0 19 * * *", "hourly-ish"))
}
