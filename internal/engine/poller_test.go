package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotwatch/internal/calendar"
	"spotwatch/internal/domain/models"
	"spotwatch/pkg/logger"
)

type countingSpot struct {
	calls atomic.Int64
}

func (s *countingSpot) FetchSpot(context.Context) (models.SpotReading, error) {
	s.calls.Add(1)
	return models.SpotReading{Price: 100 + float64(s.calls.Load()), ObservedAt: time.Now()}, nil
}

func newPollerEngine(t *testing.T, interval time.Duration) (*Engine, *countingSpot) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	spot := &countingSpot{}
	e := New(
		calendar.New(calendar.Config{Location: loc, OpenHour: 18, CloseHour: 17, BreakStartHour: 17, BreakEndHour: 18}),
		spot, NewSnapshot(), &nopMetrics{}, logger.Nop(), "XAU",
		PollingPolicy{Interval: interval, ConfirmInterval: interval, SameThreshold: 2, ConfirmThreshold: 5, Epsilon: 1e-6},
	)
	e.nowFn = func() time.Time { return time.Date(2025, 1, 8, 12, 0, 0, 0, loc) }
	return e, spot
}

func TestPollerTicksAtInterval(t *testing.T) {
	e, spot := newPollerEngine(t, 10*time.Millisecond)
	p := NewPoller(e, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	time.Sleep(150 * time.Millisecond)
	cancel()
	p.Wait()

	assert.GreaterOrEqual(t, spot.calls.Load(), int64(3), "expected repeated ticks")
}

func TestPollerRearmsImmediately(t *testing.T) {
	// The first timer is armed for an hour; a rearm must cancel it rather
	// than wait it out.
	e, spot := newPollerEngine(t, time.Hour)
	p := NewPoller(e, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.SetInterval(10 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	for spot.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("rearm did not shorten the pending delay")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	p.Wait()
}

func TestPollerKeepsNewestPendingInterval(t *testing.T) {
	e, _ := newPollerEngine(t, time.Hour)
	p := NewPoller(e, logger.Nop())

	// Without a running loop both values land in the buffered channel in
	// turn; only the second survives.
	p.SetInterval(time.Minute)
	p.SetInterval(time.Second)

	select {
	case d := <-p.rearm:
		assert.Equal(t, time.Second, d)
	default:
		t.Fatal("expected a pending interval")
	}
}
