package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"adstats/internal/core"
	applog "adstats/internal/log"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned by Refresh while another run is in flight.
var ErrRunInProgress = errors.New("aggregation run already in progress")

// Aggregation produces one summary per call.
type Aggregation interface {
	Run(ctx context.Context) (core.EarningsSummary, error)
}

// Session ends the signed-in user session.
type Session interface {
	SignOut(ctx context.Context) error
}

// SummaryPublisher is notified with the result of every finished run.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, result core.RunResult) error
}

// RunnerConfig holds configuration for the runner
type RunnerConfig struct {
	// RunTimeout bounds one aggregation run (default: 60s, 0 disables)
	RunTimeout time.Duration

	// Now stamps results (default: time.Now)
	Now func() time.Time
}

// DefaultRunnerConfig returns sensible defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		RunTimeout: 60 * time.Second,
		Now:        time.Now,
	}
}

// Runner owns the latest RunResult and guarantees at most one run at a time.
type Runner struct {
	agg       Aggregation
	session   Session
	publisher SummaryPublisher
	config    RunnerConfig
	logger    *applog.Logger
	runLog    *applog.StructuredLogger

	busy atomic.Bool

	mu     sync.RWMutex
	result core.RunResult
}

// NewRunner creates a runner. session and publisher may be nil.
func NewRunner(agg Aggregation, session Session, publisher SummaryPublisher, config RunnerConfig, logger *applog.Logger) *Runner {
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Runner{
		agg:       agg,
		session:   session,
		publisher: publisher,
		config:    config,
		logger:    logger.WithComponent(applog.ComponentAggregator),
		runLog:    applog.NewStructuredLogger(logger),
		result:    core.IdleResult(config.Now()),
	}
}

// Result returns the latest result.
func (r *Runner) Result() core.RunResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.result
}

// Busy reports whether a run is in flight.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

func (r *Runner) setResult(res core.RunResult) {
	r.mu.Lock()
	r.result = res
	r.mu.Unlock()
}

// Refresh runs one aggregation and returns its result. It fails with
// ErrRunInProgress, leaving the current result untouched, when a run is
// already in flight.
func (r *Runner) Refresh(ctx context.Context) (core.RunResult, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return r.Result(), ErrRunInProgress
	}
	defer r.busy.Store(false)

	runID := uuid.NewString()
	ctx = ContextWithRunID(ctx, runID)
	startedAt := r.config.Now()
	r.setResult(core.LoadingResult(runID, startedAt))
	r.logger.InfoContext(ctx, "Aggregation started", applog.FieldRunID, runID)

	runCtx := ctx
	if r.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.config.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	summary, err := r.agg.Run(runCtx)

	var res core.RunResult
	if err != nil {
		res = core.ErrorResult(runID, core.Classify(err), r.config.Now())
	} else {
		res = core.ReadyResult(runID, summary, r.config.Now())
	}
	res = res.StartedOn(startedAt)
	r.setResult(res)
	r.runLog.LogRunFinished(ctx, runID, string(res.Status), string(res.ErrorKind), time.Since(start).Milliseconds())

	if r.publisher != nil {
		if err := r.publisher.PublishSummary(ctx, res); err != nil {
			r.logger.WarnContext(ctx, "Failed to publish run result",
				applog.FieldRunID, runID,
				applog.FieldOperation, applog.OpPublish,
				applog.FieldError, err.Error())
		}
	}
	return res, nil
}

// SignOut ends the session and clears the result. Provider failures are
// logged and otherwise ignored so the local sign-out always completes.
func (r *Runner) SignOut(ctx context.Context) {
	if r.session != nil {
		if err := r.session.SignOut(ctx); err != nil {
			r.logger.WarnContext(ctx, "Sign-out failed",
				applog.FieldOperation, applog.OpSignOut,
				applog.FieldError, err.Error())
		}
	}
	r.setResult(core.IdleResult(r.config.Now()))
}
