package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotwatch/internal/domain/models"
	"spotwatch/internal/engine"
	"spotwatch/internal/refclose"
	"spotwatch/pkg/cache"
	"spotwatch/pkg/logger"
)

type mapHistory struct {
	closes map[string]float64
}

func (h *mapHistory) CloseForDate(_ context.Context, date time.Time) (float64, bool, error) {
	p, ok := h.closes[date.Format("2006-01-02")]
	return p, ok, nil
}

func TestReferenceRefresherRun(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	day := func(offset int) string {
		y, m, d := time.Now().In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, offset).Format("2006-01-02")
	}

	// The 1-day horizon resolves directly; the 30-day anchor falls in a
	// two-day gap and resolves earlier; the 365-day horizon has nothing
	// within the lookback bound and stays unresolved.
	hist := &mapHistory{closes: map[string]float64{
		day(-1):  2380,
		day(-2):  2375,
		day(-5):  2360,
		day(-6):  2350,
		day(-32): 2200,
	}}
	resolver := refclose.NewResolver(hist, cache.NewMemoryCache(), loc, 5, time.Hour, logger.Nop())

	snap := engine.NewSnapshot()
	snap.SetReference(models.ReferenceClose{HorizonDays: 365, Price: 1900})

	r := NewReferenceRefresher(resolver, snap, []int{1, 30, 365}, 4, logger.Nop())
	require.NoError(t, r.Run())

	d1, ok := snap.Reference(1)
	require.True(t, ok)
	assert.Equal(t, 2380.0, d1.Price)

	month, ok := snap.Reference(30)
	require.True(t, ok)
	assert.Equal(t, 2200.0, month.Price)
	assert.Equal(t, day(-32), month.SourceDate.Format("2006-01-02"))

	year, ok := snap.Reference(365)
	require.True(t, ok, "unresolved horizon keeps the previous reference")
	assert.Equal(t, 1900.0, year.Price)

	median, ok := snap.MedianClose()
	require.True(t, ok)
	// Deduplicated window 2380, 2375, 2360, 2350. Upper central value.
	assert.Equal(t, 2375.0, median)
}

func TestReferenceRefresherName(t *testing.T) {
	r := NewReferenceRefresher(nil, nil, nil, 0, logger.Nop())
	assert.Equal(t, "reference-refresh", r.Name())
}
