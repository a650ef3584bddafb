package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"

	"coinpath/internal/log"
)

// Job is one scheduled run. now is the time the run started.
type Job func(ctx context.Context, now time.Time) error

// Scheduler runs a job on a cron schedule until its context ends.
// Overlapping runs are skipped.
type Scheduler struct {
	spec   string
	job    Job
	logger *log.Logger
	clock  func() time.Time

	mu      sync.Mutex
	running bool
}

// NewScheduler validates spec ("@daily", "@every 1h", or six cron fields
// with seconds).
func NewScheduler(spec string, job Job, logger *log.Logger) (*Scheduler, error) {
	if _, err := cron.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Scheduler{
		spec:   spec,
		job:    job,
		logger: logger.WithComponent(log.ComponentWorker),
		clock:  time.Now,
	}, nil
}

// Run executes the job once immediately and then on every tick, blocking
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.RunOnce(ctx)

	c := cron.New()
	if err := c.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	c.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "schedule", s.spec)

	<-ctx.Done()
	c.Stop()
	s.logger.InfoContext(ctx, "Scheduler stopped")
	return nil
}

// RunOnce executes the job unless a previous run is still going, and
// reports whether it ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Previous run still in progress, skipping")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return false
	}
	start := s.clock()
	if err := s.job(ctx, start); err != nil {
		s.logger.ErrorContext(ctx, "Scheduled job failed", log.FieldError, err)
	} else {
		s.logger.InfoContext(ctx, "Scheduled job completed", log.FieldDuration, time.Since(start).Milliseconds())
	}
	return true
}
