package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotwatch/internal/domain/models"
)

func newYorkCalculator(t *testing.T) *Calculator {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return New(Config{
		Location:       loc,
		OpenHour:       18,
		CloseHour:      17,
		BreakStartHour: 17,
		BreakEndHour:   18,
	})
}

func TestCurrentWindowBoundsOrdered(t *testing.T) {
	c := newYorkCalculator(t)

	// A spread of instants across weekdays, weekends and DST transitions.
	instants := []time.Time{
		time.Date(2025, 1, 6, 3, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC),  // US DST starts
		time.Date(2025, 11, 2, 12, 0, 0, 0, time.UTC), // US DST ends
		time.Date(2025, 7, 4, 22, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
	}
	for _, ts := range instants {
		w := c.CurrentWindow(ts)
		assert.True(t, w.OpensAt.Before(w.ClosesAt), "opensAt must precede closesAt for %v", ts)
		for _, b := range w.Breaks {
			assert.True(t, b.Start.After(w.OpensAt), "break start inside window for %v", ts)
			assert.True(t, b.End.Before(w.ClosesAt), "break end inside window for %v", ts)
			assert.True(t, b.Start.Before(b.End))
		}
	}
}

func TestCurrentWindowWeekShape(t *testing.T) {
	c := newYorkCalculator(t)

	// Wednesday 2025-01-08 noon local.
	now := time.Date(2025, 1, 8, 12, 0, 0, 0, c.cfg.Location)
	w := c.CurrentWindow(now)

	assert.Equal(t, time.Sunday, w.OpensAt.Weekday())
	assert.Equal(t, 18, w.OpensAt.Hour())
	assert.Equal(t, time.Friday, w.ClosesAt.Weekday())
	assert.Equal(t, 17, w.ClosesAt.Hour())
	// Daily breaks Monday through Thursday only.
	require.Len(t, w.Breaks, 4)
	assert.Equal(t, time.Monday, w.Breaks[0].Start.Weekday())
	assert.Equal(t, time.Thursday, w.Breaks[3].Start.Weekday())
}

func TestCurrentWindowDSTWeek(t *testing.T) {
	c := newYorkCalculator(t)

	// Week of 2025-03-09: DST starts on the opening Sunday. The open must
	// be at 18:00 local regardless of the offset change.
	now := time.Date(2025, 3, 11, 12, 0, 0, 0, c.cfg.Location)
	w := c.CurrentWindow(now)

	assert.Equal(t, 18, w.OpensAt.In(c.cfg.Location).Hour())
	assert.Equal(t, 17, w.ClosesAt.In(c.cfg.Location).Hour())
	_, openOff := w.OpensAt.Zone()
	_, closeOff := w.ClosesAt.Zone()
	assert.Equal(t, openOff, closeOff, "both instants fall after the transition")
	assert.Equal(t, -4*3600, openOff, "EDT offset expected")
}

func TestStatusAt(t *testing.T) {
	c := newYorkCalculator(t)
	loc := c.cfg.Location
	w := c.CurrentWindow(time.Date(2025, 1, 8, 12, 0, 0, 0, loc))

	cases := []struct {
		name string
		at   time.Time
		want models.MarketStatus
	}{
		{"saturday", time.Date(2025, 1, 11, 12, 0, 0, 0, loc), models.StatusClosed},
		{"sunday pre-open", time.Date(2025, 1, 5, 17, 59, 0, 0, loc), models.StatusClosed},
		{"sunday open", time.Date(2025, 1, 5, 18, 0, 0, 0, loc), models.StatusOpen},
		{"monday midday", time.Date(2025, 1, 6, 12, 0, 0, 0, loc), models.StatusOpen},
		{"monday break", time.Date(2025, 1, 6, 17, 30, 0, 0, loc), models.StatusBreak},
		{"monday break end", time.Date(2025, 1, 6, 18, 0, 0, 0, loc), models.StatusOpen},
		{"friday close", time.Date(2025, 1, 10, 17, 0, 0, 0, loc), models.StatusClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, w.StatusAt(tc.at))
		})
	}
}
