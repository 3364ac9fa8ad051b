package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DailyEarnings is one point of the trailing series.
type DailyEarnings struct {
	Date     Date            `json:"date"`
	Earnings decimal.Decimal `json:"earnings"`
}

// EarningsSummary is the result of one successful aggregation run.
// It is never partially filled and never mutated after construction.
type EarningsSummary struct {
	EarningsThisMonth decimal.Decimal `json:"earningsThisMonth"`
	EarningsLastMonth decimal.Decimal `json:"earningsLastMonth"`
	// EarningsLast7Days is ordered oldest to newest.
	EarningsLast7Days []DailyEarnings `json:"earningsLast7Days"`
	PercentageChange  decimal.Decimal `json:"percentageChange"`
	CurrencyCode      string          `json:"currencyCode"`
	// MixedCurrencies is set when a non-empty report disagreed with CurrencyCode.
	MixedCurrencies bool `json:"mixedCurrencies,omitempty"`
}

// PercentageChange is (this-last)/last*100, or zero when last is not positive.
func PercentageChange(thisMonth, lastMonth decimal.Decimal) decimal.Decimal {
	if !lastMonth.IsPositive() {
		return decimal.Zero
	}
	return thisMonth.Sub(lastMonth).Div(lastMonth).Mul(hundred)
}

// TrendUp reports whether the month-over-month change is zero or positive.
func (s EarningsSummary) TrendUp() bool {
	return !s.PercentageChange.IsNegative()
}

// RunStatus is the presentation state of the latest aggregation.
type RunStatus string

const (
	StatusIdle    RunStatus = "idle"
	StatusLoading RunStatus = "loading"
	StatusError   RunStatus = "error"
	StatusReady   RunStatus = "ready"
)

// RunResult is the immutable value handed to the presentation layer.
// Exactly one of ErrorKind/Message or Summary is set, depending on Status.
type RunResult struct {
	Status    RunStatus        `json:"status"`
	RunID     string           `json:"runId,omitempty"`
	ErrorKind ErrorKind        `json:"errorKind,omitempty"`
	Message   string           `json:"message,omitempty"`
	Summary   *EarningsSummary `json:"summary,omitempty"`
	// StartedAt is when the run that produced this result began; zero when idle.
	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func IdleResult(at time.Time) RunResult {
	return RunResult{Status: StatusIdle, UpdatedAt: at}
}

func LoadingResult(runID string, at time.Time) RunResult {
	return RunResult{Status: StatusLoading, RunID: runID, StartedAt: at, UpdatedAt: at}
}

func ErrorResult(runID string, err *RunError, at time.Time) RunResult {
	return RunResult{Status: StatusError, RunID: runID, ErrorKind: err.Kind, Message: err.Message, UpdatedAt: at}
}

func ReadyResult(runID string, s EarningsSummary, at time.Time) RunResult {
	return RunResult{Status: StatusReady, RunID: runID, Summary: &s, UpdatedAt: at}
}

// StartedOn returns a copy of r recording when its run began.
func (r RunResult) StartedOn(at time.Time) RunResult {
	r.StartedAt = at
	return r
}
