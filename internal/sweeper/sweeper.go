// Package sweeper runs expiry jobs on a cron schedule.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule runs the sweep once a day.
const DefaultSchedule = "@every 24h"

// Job deletes expired entries and reports how many were removed.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Sweeper runs every job on a schedule and once at startup. A failing or
// panicking job is logged and does not affect the others.
type Sweeper struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
	logger  *zap.Logger
}

// New registers jobs under schedule. Timeout bounds a single job run.
func New(schedule string, timeout time.Duration, logger *zap.Logger, jobs ...Job) (*Sweeper, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	s := &Sweeper{cron: c, jobs: jobs, timeout: timeout, logger: logger}

	if _, err := c.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start runs the jobs immediately in the background and starts the schedule.
func (s *Sweeper) Start() {
	go s.RunOnce(context.Background())

	s.cron.Start()
}

// RunOnce runs every job sequentially and returns the number of entries
// each removed. Failed jobs are absent from the result.
func (s *Sweeper) RunOnce(ctx context.Context) map[string]int {
	removed := make(map[string]int, len(s.jobs))

	for _, job := range s.jobs {
		if n, ok := s.run(ctx, job); ok {
			removed[job.Name] = n
		}
	}

	return removed
}

func (s *Sweeper) run(ctx context.Context, job Job) (n int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep job panicked", zap.String("job", job.Name), zap.Any("panic", r))

			ok = false
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	n, err := job.Run(ctx)
	if err != nil {
		s.logger.Error("sweep job failed", zap.String("job", job.Name), zap.Error(err))

		return 0, false
	}

	s.logger.Info("sweep job completed", zap.String("job", job.Name), zap.Int("removed", n))

	return n, true
}

// Shutdown stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Shutdown() error {
	<-s.cron.Stop().Done()

	return nil
}

type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
