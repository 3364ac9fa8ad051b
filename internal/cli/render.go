package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"adstats/internal/core"

	"github.com/dustin/go-humanize"
)

// Output formats accepted by the render helpers.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

func renderJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// RenderResult prints a run result in the requested format.
func RenderResult(w io.Writer, res core.RunResult, format string, now time.Time) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, res)
	case FormatTable:
		return renderResultTable(w, res, now)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func renderResultTable(w io.Writer, res core.RunResult, now time.Time) error {
	switch res.Status {
	case core.StatusError:
		fmt.Fprintf(w, "Error (%s): %s\n", res.ErrorKind, res.Message)
		return nil
	case core.StatusReady:
	default:
		fmt.Fprintf(w, "No data (%s)\n", res.Status)
		return nil
	}

	s := res.Summary
	if s == nil {
		return fmt.Errorf("ready result without summary")
	}
	arrow := "▼"
	if s.TrendUp() {
		arrow = "▲"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "This month\t%s\t%s %s\n", core.FormatAmount(s.CurrencyCode, s.EarningsThisMonth), arrow, core.FormatPercent(s.PercentageChange))
	fmt.Fprintf(tw, "Last month\t%s\t\n", core.FormatAmount(s.CurrencyCode, s.EarningsLastMonth))
	fmt.Fprintln(tw, "\t\t")
	for _, d := range s.EarningsLast7Days {
		fmt.Fprintf(tw, "%s\t%s\t\n", d.Date, core.FormatAmount(s.CurrencyCode, d.Earnings))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if s.MixedCurrencies {
		fmt.Fprintf(w, "\nWarning: reports used different currencies; amounts shown in %s.\n", core.NormalizeCurrency(s.CurrencyCode))
	}
	fmt.Fprintf(w, "\nUpdated %s (run %s)\n", humanize.RelTime(res.UpdatedAt, now, "ago", "from now"), res.RunID)
	return nil
}

// RenderAccounts prints the accounts visible to the signed-in identity.
func RenderAccounts(w io.Writer, accounts []core.Account, format string) error {
	switch format {
	case FormatJSON:
		if accounts == nil {
			accounts = []core.Account{}
		}
		return renderJSON(w, accounts)
	case FormatTable:
		fmt.Fprintf(w, "Found %s account(s):\n", humanize.Comma(int64(len(accounts))))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for i, a := range accounts {
			marker := ""
			if i == 0 {
				marker = "(used)"
			}
			fmt.Fprintf(tw, "%d.\t%s\t%s\t%s\n", i+1, a.Name, a.DisplayName, marker)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

type windowView struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// RenderWindows prints the report windows a run at now would request.
func RenderWindows(w io.Writer, windows core.Windows, format string) error {
	views := []windowView{
		{Name: "this_month", Start: windows.ThisMonth.Start.String(), End: windows.ThisMonth.End.String()},
		{Name: "last_month", Start: windows.LastMonth.Start.String(), End: windows.LastMonth.End.String()},
	}
	for i, d := range windows.Last7Days {
		views = append(views, windowView{
			Name:  fmt.Sprintf("day_%d", i+1),
			Start: d.Start.String(),
			End:   d.End.String(),
		})
	}

	switch format {
	case FormatJSON:
		return renderJSON(w, views)
	case FormatTable:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, v := range views {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Name, v.Start, v.End)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
