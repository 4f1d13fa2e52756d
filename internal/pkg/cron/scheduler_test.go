package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type denyLocker struct{ calls int }

func (d *denyLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	d.calls++
	return nil, false, nil
}

func TestScheduler_AddJobRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, nil)

	err := s.AddJob("broken", "every evening", func(context.Context) error { return nil })

	assert.Error(t, err)
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler(time.UTC, nil)
	var ran []string
	require.NoError(t, s.AddJob("a", "0 19 * * *", func(context.Context) error {
		ran = append(ran, "a")
		return nil
	}))
	require.NoError(t, s.AddJob("b", CatchUpSchedule, func(context.Context) error {
		ran = append(ran, "b")
		return errors.New("logged, not returned")
	}))

	s.RunOnce(context.Background())

	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestScheduler_ExecuteJobHonoursLock(t *testing.T) {
	locker := &denyLocker{}
	s := NewScheduler(time.UTC, locker)
	ran := false

	s.executeJob(Job{Name: "auto_checkout", Fn: func(context.Context) error {
		ran = true
		return nil
	}})

	assert.False(t, ran)
	assert.Equal(t, 1, locker.calls)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(time.UTC, nil)
	require.NoError(t, s.AddJob("noop", "0 19 * * *", func(context.Context) error { return nil }))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, s.Stop(ctx))
}
