package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotwatch/internal/calendar"
	"spotwatch/internal/domain/models"
	"spotwatch/pkg/logger"
)

type scriptedSpot struct {
	prices []float64
	errs   []error
	i      int
}

func (s *scriptedSpot) FetchSpot(context.Context) (models.SpotReading, error) {
	idx := s.i
	s.i++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return models.SpotReading{}, s.errs[idx]
	}
	return models.SpotReading{Price: s.prices[idx], ObservedAt: time.Now()}, nil
}

type nopMetrics struct {
	freezes int
}

func (m *nopMetrics) RecordStatus(models.MarketStatus)      {}
func (m *nopMetrics) RecordLastPrice(float64)               {}
func (m *nopMetrics) RecordPollInterval(time.Duration)      {}
func (m *nopMetrics) RecordFetchError(string)               {}
func (m *nopMetrics) RecordFreeze()                         { m.freezes++ }
func (m *nopMetrics) RecordFetchLatency(string, float64)    {}

type recordingListener struct {
	transitions []models.StatusTransition
}

func (l *recordingListener) OnTransition(_ context.Context, tr models.StatusTransition) {
	l.transitions = append(l.transitions, tr)
}

const (
	defaultInterval = 5 * time.Minute
	confirmInterval = 2 * time.Minute
)

func newTestEngine(t *testing.T, spot *scriptedSpot) (*Engine, *Snapshot, *recordingListener, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cal := calendar.New(calendar.Config{
		Location:       loc,
		OpenHour:       18,
		CloseHour:      17,
		BreakStartHour: 17,
		BreakEndHour:   18,
	})
	snap := NewSnapshot()
	e := New(cal, spot, snap, &nopMetrics{}, logger.Nop(), "XAU", PollingPolicy{
		Interval:         defaultInterval,
		ConfirmInterval:  confirmInterval,
		SameThreshold:    2,
		ConfirmThreshold: 5,
		Epsilon:          1e-6,
	})
	rec := &recordingListener{}
	e.AddListener(rec)

	// Wednesday 2025-01-08 12:00 local: scheduled open.
	e.nowFn = func() time.Time { return time.Date(2025, 1, 8, 12, 0, 0, 0, loc) }
	return e, snap, rec, loc
}

func frozenCount(rec *recordingListener) int {
	n := 0
	for _, tr := range rec.transitions {
		if tr.To == models.StatusFrozen {
			n++
		}
	}
	return n
}

func TestFreezeAfterConfirmations(t *testing.T) {
	// Baseline, one move, then seven identical readings: cadence drops to
	// fast-confirm after the 2nd repeat, FROZEN lands exactly on the 7th
	// (2 repeats + 5 confirmations), and the cadence returns to default.
	spot := &scriptedSpot{prices: []float64{100, 101, 101, 101, 101, 101, 101, 101, 101}}
	e, snap, rec, _ := newTestEngine(t, spot)
	ctx := context.Background()

	e.Tick(ctx) // baseline
	e.Tick(ctx) // price moved
	assert.Equal(t, models.StatusOpen, snap.Status())

	e.Tick(ctx) // repeat 1
	assert.Equal(t, defaultInterval, e.Interval())
	e.Tick(ctx) // repeat 2: fast-confirm cadence kicks in
	assert.Equal(t, confirmInterval, e.Interval())

	for i := 0; i < 4; i++ { // confirmations 1..4
		e.Tick(ctx)
		assert.Equal(t, models.StatusOpen, snap.Status(), "not frozen before the threshold")
	}

	e.Tick(ctx) // confirmation 5
	assert.Equal(t, models.StatusFrozen, snap.Status())
	assert.Equal(t, defaultInterval, e.Interval(), "sustained freeze returns to steady cadence")
	assert.Equal(t, 1, frozenCount(rec), "FROZEN declared exactly once")
}

func TestFrozenExitsOnPriceChange(t *testing.T) {
	prices := []float64{100, 101, 101, 101, 101, 101, 101, 101, 101, 102}
	spot := &scriptedSpot{prices: prices}
	e, snap, _, _ := newTestEngine(t, spot)
	ctx := context.Background()

	for i := 0; i < len(prices)-1; i++ {
		e.Tick(ctx)
	}
	require.Equal(t, models.StatusFrozen, snap.Status())

	e.Tick(ctx) // differing reading: proof of life
	assert.Equal(t, models.StatusOpen, snap.Status())
	assert.Equal(t, 0, e.sameCount)
	assert.Equal(t, 0, e.confirmCount)
}

func TestClockOverridesHeuristics(t *testing.T) {
	prices := []float64{100, 101, 101, 101, 101, 101, 101, 101, 101}
	spot := &scriptedSpot{prices: prices}
	e, snap, _, loc := newTestEngine(t, spot)
	ctx := context.Background()

	for range prices {
		e.Tick(ctx)
	}
	require.Equal(t, models.StatusFrozen, snap.Status())

	// Saturday: scheduled closed. The clock wins regardless of counters.
	e.nowFn = func() time.Time { return time.Date(2025, 1, 11, 12, 0, 0, 0, loc) }
	e.Tick(ctx)
	assert.Equal(t, models.StatusClosed, snap.Status())
	assert.Equal(t, 0, e.sameCount)
	assert.Equal(t, 0, e.confirmCount)
	assert.Equal(t, defaultInterval, e.Interval())
}

func TestFetchErrorHoldsState(t *testing.T) {
	spot := &scriptedSpot{
		prices: []float64{100, 101, 101, 0, 101},
		errs:   []error{nil, nil, nil, errors.New("network down"), nil},
	}
	e, snap, _, _ := newTestEngine(t, spot)
	ctx := context.Background()

	e.Tick(ctx)
	e.Tick(ctx)
	e.Tick(ctx) // repeat 1
	require.Equal(t, 1, e.sameCount)

	e.Tick(ctx) // fetch error: no observation this tick
	assert.Equal(t, 1, e.sameCount, "error must not advance counters")
	assert.Equal(t, models.StatusOpen, snap.Status())
	assert.Equal(t, defaultInterval, e.Interval())

	e.Tick(ctx) // repeat 2 resumes where it left off
	assert.Equal(t, 2, e.sameCount)
	assert.Equal(t, confirmInterval, e.Interval())
}

func TestBreakSuspendsFreezeDetection(t *testing.T) {
	spot := &scriptedSpot{prices: []float64{100, 101, 101, 101, 101}}
	e, snap, _, loc := newTestEngine(t, spot)
	ctx := context.Background()

	e.Tick(ctx)
	e.Tick(ctx)
	e.Tick(ctx) // repeat 1 while open
	require.Equal(t, 1, e.sameCount)

	// Monday 17:30 local: inside the daily break.
	e.nowFn = func() time.Time { return time.Date(2025, 1, 6, 17, 30, 0, 0, loc) }
	e.Tick(ctx)
	assert.Equal(t, models.StatusBreak, snap.Status())
	assert.Equal(t, 0, e.sameCount, "break suspends freeze confirmation")
	assert.Equal(t, 0, e.confirmCount)
}

func TestSessionDeltaPinnedWhileClosed(t *testing.T) {
	spot := &scriptedSpot{prices: []float64{110, 111}}
	e, snap, _, loc := newTestEngine(t, spot)
	ctx := context.Background()

	snap.SetReference(models.ReferenceClose{HorizonDays: HorizonSession, Price: 100})
	e.Tick(ctx) // open: session reference pins to the 1-day close
	ref, ok := snap.SessionReference()
	require.True(t, ok)
	assert.Equal(t, 100.0, ref)
	assert.InDelta(t, 10.0, snap.Deltas().Session, 1e-9)

	// Market closes; the daily refresh lands a newer 1-day close.
	e.nowFn = func() time.Time { return time.Date(2025, 1, 11, 12, 0, 0, 0, loc) }
	snap.SetReference(models.ReferenceClose{HorizonDays: HorizonSession, Price: 105})
	e.Tick(ctx)
	e.Tick(ctx)

	ref, ok = snap.SessionReference()
	require.True(t, ok)
	assert.Equal(t, 100.0, ref, "session reference stays pinned while not OPEN")
	assert.InDelta(t, 10.0, snap.Deltas().Session, 1e-9, "session delta holds through closure")

	// Reopening re-pins to the latest resolved close.
	e.nowFn = func() time.Time { return time.Date(2025, 1, 13, 12, 0, 0, 0, loc) }
	e.Tick(ctx)
	ref, ok = snap.SessionReference()
	require.True(t, ok)
	assert.Equal(t, 105.0, ref)
}

func TestDeltasHoldOnUnresolvedHorizon(t *testing.T) {
	spot := &scriptedSpot{prices: []float64{110, 120}}
	e, snap, _, _ := newTestEngine(t, spot)
	ctx := context.Background()

	snap.SetReference(models.ReferenceClose{HorizonDays: HorizonSession, Price: 100})
	snap.SetReference(models.ReferenceClose{HorizonDays: HorizonMonth, Price: 90})
	e.Tick(ctx)

	d := snap.Deltas()
	assert.InDelta(t, 20.0, d.Month, 1e-9)
	assert.Equal(t, 0.0, d.Year, "unresolved year horizon stays at zero value carried from start")

	e.Tick(ctx)
	d = snap.Deltas()
	assert.InDelta(t, 30.0, d.Month, 1e-9)
}
