package sideeffect

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (s *recordingSink) DeadLetter(_ context.Context, name string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.errs = append(s.errs, err)
	return nil
}

func newTestRunner(sink DeadLetterSink) (*Runner, *[]time.Duration) {
	r := NewRunner(Options{Attempts: 3, AttemptTimeout: 50 * time.Millisecond, Backoff: 10 * time.Millisecond}, sink)
	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

func TestRunner_SucceedsAfterRetry(t *testing.T) {
	sink := &recordingSink{}
	r, waits := newTestRunner(sink)
	calls := 0

	err := r.Run(context.Background(), "notify", func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("temporary")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, *waits)
	assert.Empty(t, sink.names)
}

func TestRunner_DeadLettersAfterAllAttempts(t *testing.T) {
	sink := &recordingSink{}
	r, waits := newTestRunner(sink)
	boom := errors.New("boom")
	calls := 0

	err := r.Run(context.Background(), "activity-log", func(ctx context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *waits)
	require.Len(t, sink.names, 1)
	assert.Equal(t, "activity-log", sink.names[0])
	assert.ErrorIs(t, sink.errs[0], boom)
}

func TestRunner_AttemptTimeout(t *testing.T) {
	sink := &recordingSink{}
	r, _ := newTestRunner(sink)

	err := r.Run(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, sink.names, 1)
}

func TestRunner_RecoversPanic(t *testing.T) {
	sink := &recordingSink{}
	r, _ := newTestRunner(sink)

	err := r.Run(context.Background(), "panicky", func(ctx context.Context) error {
		panic("nil map")
	})

	assert.Error(t, err)
	assert.Equal(t, []string{"panicky"}, sink.names)
}

func TestRunner_GoSurvivesCancelledParent(t *testing.T) {
	r, _ := newTestRunner(&recordingSink{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	r.Go(ctx, "after-commit", func(ctx context.Context) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ran.Store(true)
		return nil
	})

	waitCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, r.Wait(waitCtx))
	assert.True(t, ran.Load())
}
