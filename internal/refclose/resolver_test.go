package refclose

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotwatch/pkg/cache"
	"spotwatch/pkg/logger"
)

type fakeHistory struct {
	closes map[string]float64
	calls  int
}

func (f *fakeHistory) CloseForDate(_ context.Context, date time.Time) (float64, bool, error) {
	f.calls++
	p, ok := f.closes[date.Format("2006-01-02")]
	return p, ok, nil
}

func newTestResolver(t *testing.T, hist *fakeHistory) *Resolver {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	r := NewResolver(hist, cache.NewMemoryCache(), loc, 7, time.Hour, logger.Nop())
	// Pin "now" to Wednesday 2025-06-18 noon local.
	r.nowFn = func() time.Time { return time.Date(2025, 6, 18, 12, 0, 0, 0, loc) }
	return r
}

func TestResolveExactDate(t *testing.T) {
	hist := &fakeHistory{closes: map[string]float64{"2025-06-17": 2350.5}}
	r := newTestResolver(t, hist)

	rc, ok := r.Resolve(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, 2350.5, rc.Price)
	assert.Equal(t, 1, rc.HorizonDays)
	assert.Equal(t, "2025-06-17", rc.SourceDate.Format("2006-01-02"))
}

func TestResolveFallsBackOverGap(t *testing.T) {
	// Horizon lands on Sunday 2025-06-15; Friday the 13th has the close.
	hist := &fakeHistory{closes: map[string]float64{"2025-06-13": 2340.0}}
	r := newTestResolver(t, hist)

	rc, ok := r.Resolve(context.Background(), 3)
	require.True(t, ok)
	assert.Equal(t, 2340.0, rc.Price)
	assert.Equal(t, "2025-06-13", rc.SourceDate.Format("2006-01-02"))
}

func TestResolveUnresolvedBeyondBound(t *testing.T) {
	// Nearest close is 8 days before the horizon date, one past the bound.
	hist := &fakeHistory{closes: map[string]float64{"2025-06-09": 2300.0}}
	r := newTestResolver(t, hist)

	_, ok := r.Resolve(context.Background(), 1)
	assert.False(t, ok, "gap larger than lookback must stay unresolved")
}

func TestResolveUsesCache(t *testing.T) {
	hist := &fakeHistory{closes: map[string]float64{"2025-06-17": 2350.5}}
	r := newTestResolver(t, hist)

	_, ok := r.Resolve(context.Background(), 1)
	require.True(t, ok)
	calls := hist.calls

	_, ok = r.Resolve(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, calls, hist.calls, "second resolve must be served from cache")
}

func TestSeriesDeduplicatesConsecutive(t *testing.T) {
	hist := &fakeHistory{closes: map[string]float64{
		"2025-06-17": 16,
		"2025-06-16": 16, // weekend placeholder repeats Friday's close
		"2025-06-15": 16,
		"2025-06-13": 14,
		"2025-06-12": 12,
		"2025-06-11": 10,
	}}
	r := newTestResolver(t, hist)

	series := r.Series(context.Background(), 4)
	assert.Equal(t, []float64{16, 14, 12, 10}, series)
}

func TestMedianEvenWindowTakesUpperCentral(t *testing.T) {
	m, ok := Median([]float64{10, 12, 14, 16})
	require.True(t, ok)
	assert.Equal(t, 14.0, m, "even window takes the larger central value, not the mean")
}

func TestMedianOddWindow(t *testing.T) {
	m, ok := Median([]float64{16, 10, 12})
	require.True(t, ok)
	assert.Equal(t, 12.0, m)
}

func TestMedianEmpty(t *testing.T) {
	_, ok := Median(nil)
	assert.False(t, ok)
}
