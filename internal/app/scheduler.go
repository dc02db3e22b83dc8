package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"finnews-scraper/internal/observability"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron expression until its context ends.
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger
	// ctx is set by Start before the cron loop runs.
	ctx context.Context
}

func NewScheduler(expr, timezone string, job Job, logger *observability.Logger) (*Scheduler, error) {
	loc := time.UTC
	if timezone != "" {
		var err error
		if loc, err = time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	s := &Scheduler{cron: c, logger: logger}

	_, err := c.AddFunc(expr, func() {
		s.runJob(job)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	return s, nil
}

// Start blocks until ctx is done, then waits for a running job to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("Scheduler started", "entries", len(s.cron.Entries()))

	<-ctx.Done()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runJob(job Job) {
	ctx := s.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}

	start := time.Now()
	if err := job(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("Scheduled run failed", "error", err.Error())
		return
	}
	s.logger.Info("Scheduled run finished", "duration", time.Since(start).String())
}

type cronLogger struct {
	logger *observability.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err.Error())...)
}
