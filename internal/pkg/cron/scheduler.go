package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	robfig "github.com/robfig/cron/v3"
)

const defaultLockTTL = 10 * time.Minute

// Job represents a scheduled job
type Job struct {
	Name string
	Spec string
	Fn   func(ctx context.Context) error
}

// Scheduler runs jobs on cron expressions in a fixed time zone. A job never
// overlaps itself within a process, and the Locker keeps instances from
// running the same job at once.
type Scheduler struct {
	cron    *robfig.Cron
	locker  Locker
	lockTTL time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	jobs    []Job
}

// NewScheduler creates a new cron scheduler. A nil locker disables
// cross-instance locking.
func NewScheduler(loc *time.Location, locker Locker) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if locker == nil {
		locker = NoopLocker{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: robfig.New(
			robfig.WithLocation(loc),
			robfig.WithChain(robfig.Recover(cronLogger{}), robfig.SkipIfStillRunning(cronLogger{})),
		),
		locker:  locker,
		lockTTL: defaultLockTTL,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob registers fn under a standard five-field cron spec.
func (s *Scheduler) AddJob(name, spec string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := Job{Name: name, Spec: spec, Fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { s.executeJob(job) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.jobs = append(s.jobs, job)

	slog.Info("Cron job registered", "name", name, "spec", spec)
	return nil
}

// Start begins running all scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop waits for running jobs to return, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	slog.Info("Stopping cron scheduler...")
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		s.cancel()
		slog.Info("Cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// executeJob executes a job and logs results
func (s *Scheduler) executeJob(job Job) {
	release, acquired, err := s.locker.TryLock(s.ctx, "cron:"+job.Name, s.lockTTL)
	if err != nil {
		slog.Error("Cron job lock failed", "name", job.Name, "error", err)
		return
	}
	if !acquired {
		slog.Info("Cron job skipped, another instance holds the lock", "name", job.Name)
		return
	}
	defer release()

	start := time.Now()
	slog.Debug("Cron job starting", "name", job.Name)

	if err := job.Fn(s.ctx); err != nil {
		slog.Error("Cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
	} else {
		slog.Debug("Cron job completed", "name", job.Name, "duration", time.Since(start))
	}
}

// RunOnce runs all jobs once (useful for testing)
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		if err := job.Fn(ctx); err != nil {
			slog.Error("Cron job failed", "name", job.Name, "error", err)
		}
	}
}

// cronLogger adapts slog to the robfig logger interface.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
