// Package sideeffect runs post-commit work such as notifications and
// activity logging. Each task is retried with exponential backoff and, once
// attempts are exhausted, handed to a dead-letter sink. Delivery is
// at-least-once: a task may run again after a partial failure, so tasks
// must tolerate repeats.
package sideeffect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultAttempts       = 3
	DefaultAttemptTimeout = 5 * time.Second
	DefaultBackoff        = 200 * time.Millisecond
)

// Task is one unit of post-commit work.
type Task func(ctx context.Context) error

// DeadLetterSink receives tasks that failed every attempt.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, name string, err error) error
}

type Options struct {
	Attempts       int
	AttemptTimeout time.Duration
	Backoff        time.Duration
}

type Runner struct {
	opts  Options
	sink  DeadLetterSink
	wg    sync.WaitGroup
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(opts Options, sink DeadLetterSink) *Runner {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if sink == nil {
		sink = LogSink{}
	}
	return &Runner{opts: opts, sink: sink, sleep: sleepCtx}
}

// Go runs task in the background. The task keeps the values of ctx but not
// its cancellation, so it survives the request that scheduled it.
func (r *Runner) Go(ctx context.Context, name string, task Task) {
	detached := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.Run(detached, name, task)
	}()
}

// Run executes task synchronously with retries and returns the last error
// after dead-lettering it.
func (r *Runner) Run(ctx context.Context, name string, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("side effect %s panicked: %v", name, p)
			r.deadLetter(ctx, name, err)
		}
	}()

	backoff := r.opts.Backoff
	for attempt := 1; attempt <= r.opts.Attempts; attempt++ {
		err = r.attempt(ctx, task)
		if err == nil {
			return nil
		}

		slog.WarnContext(ctx, "side effect attempt failed",
			slog.String("side_effect", name),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt == r.opts.Attempts {
			break
		}
		if sleepErr := r.sleep(ctx, backoff); sleepErr != nil {
			err = errors.Join(err, sleepErr)
			break
		}
		backoff *= 2
	}

	r.deadLetter(ctx, name, err)
	return err
}

func (r *Runner) attempt(ctx context.Context, task Task) error {
	attemptCtx, cancel := context.WithTimeout(ctx, r.opts.AttemptTimeout)
	defer cancel()
	return task(attemptCtx)
}

func (r *Runner) deadLetter(ctx context.Context, name string, err error) {
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.AttemptTimeout)
	defer cancel()
	if sinkErr := r.sink.DeadLetter(sinkCtx, name, err); sinkErr != nil {
		slog.ErrorContext(ctx, "failed to dead-letter side effect",
			slog.String("side_effect", name),
			slog.String("error", err.Error()),
			slog.String("sink_error", sinkErr.Error()),
		)
	}
}

// Wait blocks until background tasks finish or ctx ends.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSink records dead letters in the application log.
type LogSink struct{}

func (LogSink) DeadLetter(ctx context.Context, name string, err error) error {
	slog.ErrorContext(ctx, "side effect dead-lettered",
		slog.String("side_effect", name),
		slog.String("error", err.Error()),
	)
	return nil
}
