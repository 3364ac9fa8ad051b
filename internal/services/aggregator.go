// Package services provides the earnings aggregation pipeline and the
// runner that exposes its latest result to presentation layers.
package services

import (
	"context"
	"sync"
	"time"

	"adstats/internal/adsense"
	"adstats/internal/core"
	applog "adstats/internal/log"

	"golang.org/x/sync/errgroup"
)

// State is the position of a run in the aggregation pipeline.
type State string

const (
	StateIdle              State = "idle"
	StateAuthenticating    State = "authenticating"
	StateResolvingAccount  State = "resolving_account"
	StateFetchingThisMonth State = "fetching_this_month"
	StateFetchingLastMonth State = "fetching_last_month"
	StateFetchingLast7Days State = "fetching_last_7_days"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// TokenSource yields the credential for one run.
type TokenSource interface {
	Token(ctx context.Context) (core.Credential, error)
}

// AggregatorConfig holds configuration for the aggregator
type AggregatorConfig struct {
	// Concurrency caps in-flight report fetches. 1 fetches strictly in
	// order: this month, last month, then each day oldest first.
	Concurrency int

	// Now supplies the wall clock the windows are computed from (default: time.Now)
	Now func() time.Time
}

// DefaultAggregatorConfig returns sensible defaults
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Concurrency: 3,
		Now:         time.Now,
	}
}

// Aggregator sequences token, account and report fetches into one summary.
type Aggregator struct {
	tokens   TokenSource
	resolver *AccountResolver
	fetcher  *ReportFetcher
	config   AggregatorConfig
	logger   *applog.Logger

	mu    sync.RWMutex
	state State
}

// NewAggregator creates an aggregator over backend.
func NewAggregator(tokens TokenSource, backend adsense.Backend, config AggregatorConfig, logger *applog.Logger) *Aggregator {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Aggregator{
		tokens:   tokens,
		resolver: NewAccountResolver(backend),
		fetcher:  NewReportFetcher(backend),
		config:   config,
		logger:   logger.WithComponent(applog.ComponentAggregator),
		state:    StateIdle,
	}
}

// State returns the state of the current or last run.
func (a *Aggregator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Aggregator) setState(ctx context.Context, s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
	a.logger.DebugContext(ctx, "Aggregation state changed",
		applog.FieldRunID, RunIDFromContext(ctx),
		applog.FieldState, string(s))
}

// fetchJob is one of the report fetches of a run. Jobs are launched in
// slice order; state marks the phase entered when the job starts.
type fetchJob struct {
	window core.DateWindow
	state  State
}

func planFetches(w core.Windows) []fetchJob {
	jobs := make([]fetchJob, 0, 2+core.TrailingDays)
	jobs = append(jobs,
		fetchJob{window: w.ThisMonth, state: StateFetchingThisMonth},
		fetchJob{window: w.LastMonth, state: StateFetchingLastMonth},
	)
	for i, day := range w.Last7Days {
		job := fetchJob{window: day}
		if i == 0 {
			job.state = StateFetchingLast7Days
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Run performs one aggregation. It returns either a complete summary or a
// *core.RunError holding the first failure; later failures are discarded.
func (a *Aggregator) Run(ctx context.Context) (core.EarningsSummary, error) {
	runID := RunIDFromContext(ctx)
	start := time.Now()

	a.setState(ctx, StateAuthenticating)
	cred, err := a.tokens.Token(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	a.setState(ctx, StateResolvingAccount)
	account, err := a.resolver.Resolve(ctx, cred)
	if err != nil {
		return a.fail(ctx, err)
	}

	windows := core.ComputeWindows(a.config.Now())
	jobs := planFetches(windows)
	results := make([]core.Earnings, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Concurrency)
	for i, job := range jobs {
		// Go blocks while the limit is reached, so phases advance as slots free up.
		if gctx.Err() != nil {
			break
		}
		if job.state != "" {
			a.setState(ctx, job.state)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fetchStart := time.Now()
			e, err := a.fetcher.Fetch(gctx, cred, account.Name, job.window)
			if err != nil {
				return err
			}
			results[i] = e
			a.logger.DebugContext(ctx, "Fetched earnings",
				applog.NewFields().
					WithRunID(runID).
					WithOperation(applog.OpFetchEarnings).
					WithReport(account.Name, job.window.String(), time.Since(fetchStart).Milliseconds()).
					ToSlice()...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return a.fail(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return a.fail(ctx, err)
	}

	summary := a.reduce(ctx, windows, results)
	a.setState(ctx, StateDone)
	a.logger.InfoContext(ctx, "Aggregation completed",
		applog.FieldRunID, runID,
		applog.FieldAccount, account.Name,
		applog.FieldEarnings, summary.EarningsThisMonth.StringFixed(2),
		applog.FieldCurrency, summary.CurrencyCode,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return summary, nil
}

// reduce builds the summary from results ordered as planFetches plans them.
func (a *Aggregator) reduce(ctx context.Context, windows core.Windows, results []core.Earnings) core.EarningsSummary {
	thisMonth, lastMonth := results[0], results[1]

	summary := core.EarningsSummary{
		EarningsThisMonth: thisMonth.Amount,
		EarningsLastMonth: lastMonth.Amount,
		EarningsLast7Days: make([]core.DailyEarnings, 0, core.TrailingDays),
		PercentageChange:  core.PercentageChange(thisMonth.Amount, lastMonth.Amount),
		CurrencyCode:      thisMonth.CurrencyCode,
	}
	for i, day := range windows.Last7Days {
		summary.EarningsLast7Days = append(summary.EarningsLast7Days, core.DailyEarnings{
			Date:     day.Start,
			Earnings: results[2+i].Amount,
		})
	}

	for _, r := range results[1:] {
		if r.HasData && r.CurrencyCode != summary.CurrencyCode {
			summary.MixedCurrencies = true
			a.logger.WarnContext(ctx, "Reports disagree on currency",
				applog.FieldRunID, RunIDFromContext(ctx),
				applog.FieldCurrency, summary.CurrencyCode,
				"other_currency", r.CurrencyCode)
			break
		}
	}
	return summary
}

func (a *Aggregator) fail(ctx context.Context, err error) (core.EarningsSummary, error) {
	runErr := core.Classify(err)
	a.setState(ctx, StateFailed)
	a.logger.WarnContext(ctx, "Aggregation failed",
		applog.NewFields().
			WithRunID(RunIDFromContext(ctx)).
			WithOperation(applog.OpAggregate).
			WithError(err).
			ToSlice()...)
	return core.EarningsSummary{}, runErr
}

type runIDKey struct{}

// ContextWithRunID tags ctx with the id of the run it belongs to.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id set by ContextWithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
