package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"adstats/internal/amqp"
	"adstats/internal/core"
	"adstats/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

type fakeRefresher struct {
	result core.RunResult
	next   core.RunResult
	err    error
	calls  int
}

func (f *fakeRefresher) Result() core.RunResult { return f.result }

func (f *fakeRefresher) Refresh(ctx context.Context) (core.RunResult, error) {
	f.calls++
	if f.err != nil {
		return f.result, f.err
	}
	f.result = f.next
	return f.result, nil
}

func newWorker(r Refresher, staleAfter time.Duration) *RefreshWorker {
	w := NewRefreshWorker(r, staleAfter, nil)
	w.now = func() time.Time { return now }
	return w
}

func request(at time.Time) *amqp.RefreshRequestMessage {
	return &amqp.RefreshRequestMessage{ID: "m-1", Source: amqp.SourceScheduler, RequestedAt: at}
}

func TestHandleRefreshRequest_Runs(t *testing.T) {
	r := &fakeRefresher{
		result: core.IdleResult(now.Add(-time.Hour)),
		next:   core.ReadyResult("run-1", core.EarningsSummary{CurrencyCode: "USD"}, now),
	}
	w := newWorker(r, 0)

	require.NoError(t, w.HandleRefreshRequest(context.Background(), request(now.Add(-time.Minute))))
	assert.Equal(t, 1, r.calls)
}

func TestHandleRefreshRequest_FailedRunIsAcknowledged(t *testing.T) {
	r := &fakeRefresher{
		result: core.IdleResult(now),
		next:   core.ErrorResult("run-1", core.Classify(&core.AuthError{}), now),
	}
	w := newWorker(r, 0)

	assert.NoError(t, w.HandleRefreshRequest(context.Background(), request(now)))
	assert.Equal(t, 1, r.calls)
}

func TestHandleRefreshRequest_Coalesces(t *testing.T) {
	t.Run("run in progress", func(t *testing.T) {
		r := &fakeRefresher{result: core.LoadingResult("run-1", now), err: services.ErrRunInProgress}
		w := newWorker(r, 0)

		assert.NoError(t, w.HandleRefreshRequest(context.Background(), request(now)))
		assert.Equal(t, 1, r.calls)
	})

	t.Run("served by later run", func(t *testing.T) {
		started := now.Add(-time.Minute)
		r := &fakeRefresher{result: core.ReadyResult("run-1", core.EarningsSummary{}, now).StartedOn(started)}
		w := newWorker(r, 0)

		assert.NoError(t, w.HandleRefreshRequest(context.Background(), request(started.Add(-time.Second))))
		assert.Equal(t, 0, r.calls)
	})

	t.Run("stale request dropped", func(t *testing.T) {
		r := &fakeRefresher{result: core.IdleResult(now)}
		w := newWorker(r, 10*time.Minute)

		assert.NoError(t, w.HandleRefreshRequest(context.Background(), request(now.Add(-time.Hour))))
		assert.Equal(t, 0, r.calls)
	})
}

func TestHandleRefreshRequest_QueuedDuringRunTriggersNewRun(t *testing.T) {
	started := now.Add(-2 * time.Minute)
	last := core.ReadyResult("run-1", core.EarningsSummary{}, now).StartedOn(started)

	tests := []struct {
		name        string
		requestedAt time.Time
		wantCalls   int
	}{
		{name: "queued before the run started", requestedAt: started.Add(-time.Second), wantCalls: 0},
		{name: "queued while the run was in flight", requestedAt: started.Add(time.Minute), wantCalls: 1},
		{name: "queued after the run finished", requestedAt: now.Add(time.Second), wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRefresher{result: last, next: core.ReadyResult("run-2", core.EarningsSummary{}, now)}
			w := newWorker(r, 0)

			require.NoError(t, w.HandleRefreshRequest(context.Background(), request(tt.requestedAt)))
			assert.Equal(t, tt.wantCalls, r.calls)
		})
	}
}

func TestHandleRefreshRequest_ResultWithoutStartRuns(t *testing.T) {
	r := &fakeRefresher{
		result: core.ErrorResult("run-1", core.Classify(&core.AuthError{}), now),
		next:   core.ReadyResult("run-2", core.EarningsSummary{}, now),
	}
	w := newWorker(r, 0)

	require.NoError(t, w.HandleRefreshRequest(context.Background(), request(now.Add(-time.Hour))))
	assert.Equal(t, 1, r.calls)
}

func TestHandleRefreshRequest_Errors(t *testing.T) {
	r := &fakeRefresher{result: core.IdleResult(now), err: errors.New("boom")}
	w := newWorker(r, 0)

	assert.Error(t, w.HandleRefreshRequest(context.Background(), nil))
	assert.ErrorContains(t, w.HandleRefreshRequest(context.Background(), request(now)), "boom")
}

func TestStartupRefresh(t *testing.T) {
	r := &fakeRefresher{next: core.ReadyResult("run-1", core.EarningsSummary{}, now)}
	require.NoError(t, newWorker(r, 0).StartupRefresh(context.Background()))
	assert.Equal(t, 1, r.calls)

	busy := &fakeRefresher{err: services.ErrRunInProgress}
	assert.NoError(t, newWorker(busy, 0).StartupRefresh(context.Background()))
}

func TestRefreshWorker_WithRunner(t *testing.T) {
	agg := aggregationFunc(func(ctx context.Context) (core.EarningsSummary, error) {
		return core.EarningsSummary{CurrencyCode: "EUR"}, nil
	})
	runner := services.NewRunner(agg, nil, nil, services.RunnerConfig{Now: func() time.Time { return now }}, nil)
	w := newWorker(runner, 0)

	require.NoError(t, w.HandleRefreshRequest(context.Background(), request(now)))
	assert.Equal(t, core.StatusReady, runner.Result().Status)
	assert.Equal(t, "EUR", runner.Result().Summary.CurrencyCode)
	assert.True(t, runner.Result().StartedAt.Equal(now))

	// A request made before that run started is already answered.
	require.NoError(t, w.HandleRefreshRequest(context.Background(), request(now.Add(-time.Second))))
	assert.Equal(t, "EUR", runner.Result().Summary.CurrencyCode)
}

type aggregationFunc func(ctx context.Context) (core.EarningsSummary, error)

func (f aggregationFunc) Run(ctx context.Context) (core.EarningsSummary, error) { return f(ctx) }
