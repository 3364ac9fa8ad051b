package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MetricEstimatedEarnings is the report metric every fetch asks for.
const MetricEstimatedEarnings = "ESTIMATED_EARNINGS"

type (
	// ReportHeader describes one column of a generated report.
	ReportHeader struct {
		Name         string
		CurrencyCode string
	}

	// ReportTable is a generated report in a transport-neutral shape:
	// Rows[i][j] is the value of column Headers[j] in row i.
	ReportTable struct {
		Headers []ReportHeader
		Rows    [][]string
	}

	// Earnings is the single metric extracted from one report.
	// HasData is false when the report had no rows and the zero default applies.
	Earnings struct {
		Amount       decimal.Decimal
		CurrencyCode string
		HasData      bool
	}
)

// ColumnIndex returns the index of the named column or -1.
func (t ReportTable) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if strings.TrimSpace(h.Name) == name {
			return i
		}
	}
	return -1
}

// EstimatedEarnings extracts the estimated earnings metric from the first row.
//
// A report without rows means no data for the window and yields zero in the
// default currency. A non-empty report without the metric column, or with a
// non-numeric value, is a MalformedResponseError.
func (t ReportTable) EstimatedEarnings() (Earnings, error) {
	if len(t.Rows) == 0 {
		return Earnings{Amount: decimal.Zero, CurrencyCode: DefaultCurrency}, nil
	}

	col := t.ColumnIndex(MetricEstimatedEarnings)
	if col == -1 {
		return Earnings{}, &MalformedResponseError{
			Reason: fmt.Sprintf("%s metric not found in headers", MetricEstimatedEarnings),
		}
	}

	row := t.Rows[0]
	if col >= len(row) {
		return Earnings{}, &MalformedResponseError{
			Reason: fmt.Sprintf("first row has %d cells, %s is column %d", len(row), MetricEstimatedEarnings, col),
		}
	}

	amount, err := ParseEarnings(row[col])
	if err != nil {
		return Earnings{}, &MalformedResponseError{
			Reason: fmt.Sprintf("%s value %q is not numeric", MetricEstimatedEarnings, row[col]),
		}
	}

	return Earnings{
		Amount:       amount,
		CurrencyCode: NormalizeCurrency(t.Headers[col].CurrencyCode),
		HasData:      true,
	}, nil
}
