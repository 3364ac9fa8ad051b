package core

import (
	"fmt"
	"time"
)

// TrailingDays is the length of the daily earnings series.
const TrailingDays = 7

// DateWindow is an inclusive range of calendar dates. Start is never after End.
type DateWindow struct {
	Start Date `json:"startDate"`
	End   Date `json:"endDate"`
}

// Windows holds every range one aggregation run reports on.
type Windows struct {
	ThisMonth DateWindow
	LastMonth DateWindow
	// Last7Days holds single-day windows, oldest first, ending today.
	Last7Days [TrailingDays]DateWindow
}

// NewDateWindow returns an error when start is after end.
func NewDateWindow(start, end Date) (DateWindow, error) {
	if start.After(end) {
		return DateWindow{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidDate, start, end)
	}
	return DateWindow{Start: start, End: end}, nil
}

// SingleDay is a window covering exactly one date.
func SingleDay(d Date) DateWindow {
	return DateWindow{Start: d, End: d}
}

// IsSingleDay reports whether the window covers one date.
func (w DateWindow) IsSingleDay() bool {
	return w.Start.Equal(w.End)
}

// Contains reports whether d falls inside the window.
func (w DateWindow) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w DateWindow) String() string {
	if w.IsSingleDay() {
		return w.Start.String()
	}
	return w.Start.String() + ".." + w.End.String()
}

// ComputeWindows derives the report windows from the local calendar date of now.
//
// ThisMonth is month-to-date (day 1 through today), LastMonth is the whole
// previous calendar month, and Last7Days runs from today-6 through today.
func ComputeWindows(now time.Time) Windows {
	today := DateOf(now)
	firstOfMonth := today.FirstOfMonth()
	lastMonthEnd := firstOfMonth.AddDays(-1)

	w := Windows{
		ThisMonth: DateWindow{Start: firstOfMonth, End: today},
		LastMonth: DateWindow{Start: lastMonthEnd.FirstOfMonth(), End: lastMonthEnd},
	}
	for i := 0; i < TrailingDays; i++ {
		w.Last7Days[i] = SingleDay(today.AddDays(i - (TrailingDays - 1)))
	}
	return w
}

// Today returns the last date of the trailing series.
func (w Windows) Today() Date {
	return w.Last7Days[TrailingDays-1].End
}
