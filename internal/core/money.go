// Package core provides the earnings domain: calendar dates and report
// windows, decimal money handling, report extraction and the summary shape.
//
// This file contains functions for parsing monetary amounts reported by the
// API and formatting them for display.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a report carries no currency metadata.
const DefaultCurrency = "USD"

var ErrInvalidAmount = errors.New("invalid amount")

// ParseEarnings converts a reported metric value to a decimal.
//
// The reporting API encodes currency metrics as plain decimal strings
// ("12.34"). Leading and trailing whitespace is ignored. Negative values are
// accepted here since adjustments can be reported as negatives; callers that
// need a non-negative amount check it themselves.
//
// Examples:
//
//	ParseEarnings("12.34") -> 12.34, nil
//	ParseEarnings(" 0 ")   -> 0, nil
//	ParseEarnings("n/a")   -> 0, ErrInvalidAmount
func ParseEarnings(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// NormalizeCurrency upper-cases a currency code and applies the default.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}

// FormatAmount renders an amount as "<CUR> 0.00" for display.
func FormatAmount(currency string, amount decimal.Decimal) string {
	return NormalizeCurrency(currency) + " " + amount.StringFixed(2)
}

// FormatPercent renders the magnitude of a percentage with two decimals.
// Direction is conveyed separately (see EarningsSummary.TrendUp).
func FormatPercent(p decimal.Decimal) string {
	return p.Abs().StringFixed(2) + "%"
}
