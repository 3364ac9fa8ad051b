package http

import (
	"html/template"
	"time"

	"adstats/internal/core"
)

var templateFuncs = template.FuncMap{
	"trendArrow": func(up bool) string {
		if up {
			return "▲"
		}
		return "▼"
	},
}

type dayView struct {
	Date   string
	Amount string
}

// dashboardView is the render model of one RunResult.
type dashboardView struct {
	Status    string
	Busy      bool
	ErrorKind string
	Error     string

	HasSummary      bool
	ThisMonth       string
	LastMonth       string
	Change          string
	TrendUp         bool
	MixedCurrencies bool
	Days            []dayView

	UpdatedAt string
}

func newDashboardView(res core.RunResult, busy bool) dashboardView {
	v := dashboardView{
		Status:    string(res.Status),
		Busy:      busy || res.Status == core.StatusLoading,
		ErrorKind: string(res.ErrorKind),
		Error:     res.Message,
	}
	if !res.UpdatedAt.IsZero() {
		v.UpdatedAt = res.UpdatedAt.Format(time.RFC1123)
	}

	s := res.Summary
	if res.Status != core.StatusReady || s == nil {
		return v
	}

	v.HasSummary = true
	v.ThisMonth = core.FormatAmount(s.CurrencyCode, s.EarningsThisMonth)
	v.LastMonth = core.FormatAmount(s.CurrencyCode, s.EarningsLastMonth)
	v.Change = core.FormatPercent(s.PercentageChange)
	v.TrendUp = s.TrendUp()
	v.MixedCurrencies = s.MixedCurrencies
	v.Days = make([]dayView, 0, len(s.EarningsLast7Days))
	for _, d := range s.EarningsLast7Days {
		v.Days = append(v.Days, dayView{
			Date:   d.Date.String(),
			Amount: core.FormatAmount(s.CurrencyCode, d.Earnings),
		})
	}
	return v
}
