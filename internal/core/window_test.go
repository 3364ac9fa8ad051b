package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeWindows(t *testing.T) {
	tests := []struct {
		name          string
		now           time.Time
		thisMonth     [2]string
		lastMonth     [2]string
		firstTrailing string
	}{
		{
			name:          "leap february",
			now:           time.Date(2024, 3, 5, 10, 30, 0, 0, time.Local),
			thisMonth:     [2]string{"2024-03-01", "2024-03-05"},
			lastMonth:     [2]string{"2024-02-01", "2024-02-29"},
			firstTrailing: "2024-02-28",
		},
		{
			name:          "non leap february",
			now:           time.Date(2023, 3, 31, 23, 59, 0, 0, time.Local),
			thisMonth:     [2]string{"2023-03-01", "2023-03-31"},
			lastMonth:     [2]string{"2023-02-01", "2023-02-28"},
			firstTrailing: "2023-03-25",
		},
		{
			name:          "january rolls back to december",
			now:           time.Date(2025, 1, 3, 0, 0, 1, 0, time.Local),
			thisMonth:     [2]string{"2025-01-01", "2025-01-03"},
			lastMonth:     [2]string{"2024-12-01", "2024-12-31"},
			firstTrailing: "2024-12-28",
		},
		{
			name:          "first day of month",
			now:           time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local),
			thisMonth:     [2]string{"2024-05-01", "2024-05-01"},
			lastMonth:     [2]string{"2024-04-01", "2024-04-30"},
			firstTrailing: "2024-04-25",
		},
		{
			name:          "thirty one day month after thirty day month",
			now:           time.Date(2024, 7, 31, 8, 0, 0, 0, time.Local),
			thisMonth:     [2]string{"2024-07-01", "2024-07-31"},
			lastMonth:     [2]string{"2024-06-01", "2024-06-30"},
			firstTrailing: "2024-07-25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ComputeWindows(tt.now)

			assert.Equal(t, tt.thisMonth[0], w.ThisMonth.Start.String())
			assert.Equal(t, tt.thisMonth[1], w.ThisMonth.End.String())
			assert.Equal(t, tt.lastMonth[0], w.LastMonth.Start.String())
			assert.Equal(t, tt.lastMonth[1], w.LastMonth.End.String())
			assert.Equal(t, tt.firstTrailing, w.Last7Days[0].Start.String())
			assert.True(t, w.Today().Equal(DateOf(tt.now)))
		})
	}
}

func TestComputeWindows_TrailingSeriesIsContiguous(t *testing.T) {
	start := time.Date(2023, 12, 20, 9, 0, 0, 0, time.Local)
	for i := 0; i < 800; i++ {
		now := start.AddDate(0, 0, i)
		w := ComputeWindows(now)

		require.Len(t, w.Last7Days, TrailingDays)
		for j, day := range w.Last7Days {
			require.True(t, day.IsSingleDay(), "day %d of %s", j, now)
			if j > 0 {
				require.True(t, w.Last7Days[j-1].Start.AddDays(1).Equal(day.Start), "gap at %d for %s", j, now)
			}
		}
		require.True(t, w.Last7Days[0].Start.AddDays(6).Equal(w.Last7Days[6].Start))
		require.Equal(t, DateOf(now).String(), w.Last7Days[6].End.String())

		require.False(t, w.ThisMonth.Start.After(w.ThisMonth.End))
		require.False(t, w.LastMonth.Start.After(w.LastMonth.End))
		require.Equal(t, 1, w.LastMonth.Start.Day())
		require.Equal(t, 1, w.LastMonth.End.AddDays(1).Day(), "last month must end on its last day (%s)", now)
		require.True(t, w.LastMonth.End.AddDays(1).Equal(w.ThisMonth.Start))
	}
}

func TestNewDateWindow(t *testing.T) {
	_, err := NewDateWindow(NewDate(2024, 3, 2), NewDate(2024, 3, 1))
	require.ErrorIs(t, err, ErrInvalidDate)

	w, err := NewDateWindow(NewDate(2024, 3, 1), NewDate(2024, 3, 31))
	require.NoError(t, err)
	assert.True(t, w.Contains(NewDate(2024, 3, 15)))
	assert.False(t, w.Contains(NewDate(2024, 4, 1)))
	assert.Equal(t, "2024-03-01..2024-03-31", w.String())
	assert.Equal(t, "2024-03-01", SingleDay(NewDate(2024, 3, 1)).String())
}
