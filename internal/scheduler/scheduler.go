// Package scheduler turns a cron schedule into refresh requests.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"adstats/internal/amqp"
	applog "adstats/internal/log"

	"github.com/robfig/cron/v3"
)

// RefreshPublisher enqueues refresh requests for the workers.
type RefreshPublisher interface {
	PublishRefreshRequest(ctx context.Context, source string) (string, error)
}

// Scheduler manages the refresh cron job.
type Scheduler struct {
	cron      *cron.Cron
	publisher RefreshPublisher
	schedule  string
	timeout   time.Duration
	logger    *applog.Logger

	published int64
	failed    int64
}

// NewScheduler creates a scheduler; nothing runs until Start.
func NewScheduler(publisher RefreshPublisher, schedule string, logger *applog.Logger) *Scheduler {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentScheduler)
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))

	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		publisher: publisher,
		schedule:  schedule,
		timeout:   10 * time.Second,
		logger:    logger,
	}
}

// Start registers the refresh job and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Trigger); err != nil {
		return fmt.Errorf("schedule refresh job %q: %w", s.schedule, err)
	}
	s.logger.Info("Scheduled refresh job", "schedule", s.schedule)
	s.cron.Start()
	return nil
}

// Trigger publishes one refresh request. Failures are logged; the next
// tick tries again.
func (s *Scheduler) Trigger() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	id, err := s.publisher.PublishRefreshRequest(ctx, amqp.SourceScheduler)
	if err != nil {
		atomic.AddInt64(&s.failed, 1)
		s.logger.ErrorContext(ctx, "Failed to publish scheduled refresh request",
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err.Error())
		return
	}
	atomic.AddInt64(&s.published, 1)
	s.logger.InfoContext(ctx, "Scheduled refresh requested", "message_id", id)
}

// Next returns the next activation time of the refresh job.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stats returns the number of published and failed requests.
func (s *Scheduler) Stats() (published, failed int64) {
	return atomic.LoadInt64(&s.published), atomic.LoadInt64(&s.failed)
}

// Stop gracefully stops the cron scheduler. The returned context is done
// once a running job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
