package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adstats/internal/amqp"
	"adstats/internal/core"
	applog "adstats/internal/log"
	"adstats/internal/services"
)

// Refresher runs one aggregation.
type Refresher interface {
	Result() core.RunResult
	Refresh(ctx context.Context) (core.RunResult, error)
}

// RefreshWorker turns refresh requests from the queue into aggregation runs.
type RefreshWorker struct {
	runner Refresher
	// staleAfter drops requests queued longer than this (0 keeps all)
	staleAfter time.Duration
	now        func() time.Time
	logger     *applog.Logger
}

func NewRefreshWorker(runner Refresher, staleAfter time.Duration, logger *applog.Logger) *RefreshWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &RefreshWorker{
		runner:     runner,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleRefreshRequest processes a single refresh request from AMQP.
//
// Requests that arrive while a run is in flight, or that were queued before
// the latest finished run started, are coalesced into that run and
// acknowledged. A request queued during a run triggers a new one, since the
// earlier run may have fetched its data before the request was made.
// A failed run is a finished run: its outcome is published by the runner
// and the request is not retried.
func (w *RefreshWorker) HandleRefreshRequest(ctx context.Context, msg *amqp.RefreshRequestMessage) error {
	if msg == nil {
		return fmt.Errorf("nil refresh request")
	}

	if w.staleAfter > 0 && w.now().Sub(msg.RequestedAt) > w.staleAfter {
		w.logger.InfoContext(ctx, "Dropping stale refresh request",
			"message_id", msg.ID,
			"source", msg.Source,
			"requested_at", msg.RequestedAt.Format(time.RFC3339))
		return nil
	}

	if last := w.runner.Result(); servedBy(last, msg.RequestedAt) {
		w.logger.InfoContext(ctx, "Refresh request already served by a later run",
			"message_id", msg.ID,
			applog.FieldRunID, last.RunID)
		return nil
	}

	res, err := w.runner.Refresh(ctx)
	if errors.Is(err, services.ErrRunInProgress) {
		w.logger.InfoContext(ctx, "Refresh request coalesced into running aggregation",
			"message_id", msg.ID,
			applog.FieldRunID, res.RunID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	w.logger.InfoContext(ctx, "Refresh request processed",
		"message_id", msg.ID,
		"source", msg.Source,
		applog.FieldRunID, res.RunID,
		applog.FieldState, string(res.Status))
	return nil
}

// servedBy reports whether the finished run behind last started after the
// request was made, so its data already answers the request.
func servedBy(last core.RunResult, requestedAt time.Time) bool {
	if last.Status != core.StatusReady && last.Status != core.StatusError {
		return false
	}
	return !last.StartedAt.IsZero() && requestedAt.Before(last.StartedAt)
}

// StartupRefresh runs one aggregation when the worker starts so consumers
// of summary events receive a fresh value without waiting for the schedule.
func (w *RefreshWorker) StartupRefresh(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Running startup refresh")
	res, err := w.runner.Refresh(ctx)
	if err != nil && !errors.Is(err, services.ErrRunInProgress) {
		return fmt.Errorf("startup refresh: %w", err)
	}

	w.logger.InfoContext(ctx, "Startup refresh completed",
		applog.FieldRunID, res.RunID,
		applog.FieldState, string(res.Status),
		applog.FieldErrorKind, string(res.ErrorKind))
	return nil
}
