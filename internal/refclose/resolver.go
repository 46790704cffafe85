// Package refclose resolves calendar-anchored historical closes used as
// delta baselines. The feed has no rows for weekends and holidays, so a
// requested horizon date may need a bounded backward search before a
// usable close is found.
package refclose

import (
	"context"
	"errors"
	"sort"
	"time"

	"spotwatch/internal/domain/models"
	"spotwatch/internal/domain/repository"
	"spotwatch/pkg/cache"
	"spotwatch/pkg/logger"
	"spotwatch/pkg/util"
)

// Resolver fetches reference closes with fallback search and caches
// per-date lookups so the daily refresh does not re-hit the upstream feed.
type Resolver struct {
	src         repository.HistorySource
	cache       cache.Service
	loc         *time.Location
	maxLookback int
	cacheTTL    time.Duration
	log         *logger.Logger

	nowFn func() time.Time
}

func NewResolver(src repository.HistorySource, c cache.Service, loc *time.Location, maxLookback int, cacheTTL time.Duration, log *logger.Logger) *Resolver {
	return &Resolver{
		src:         src,
		cache:       c,
		loc:         loc,
		maxLookback: maxLookback,
		cacheTTL:    cacheTTL,
		log:         log,
		nowFn:       time.Now,
	}
}

// Resolve returns the close for today − horizonDays, stepping backward one
// day at a time over non-trading gaps up to the lookback bound. ok=false
// after the bound is exhausted; callers must treat that as "delta
// unavailable for this horizon", never as a zero price.
func (r *Resolver) Resolve(ctx context.Context, horizonDays int) (models.ReferenceClose, bool) {
	anchor := r.today().AddDate(0, 0, -horizonDays)

	for i := 0; i <= r.maxLookback; i++ {
		date := anchor.AddDate(0, 0, -i)
		price, ok, err := r.closeFor(ctx, date)
		if err != nil {
			r.log.Warn("reference close fetch failed",
				logger.Int("horizon_days", horizonDays),
				logger.String("date", date.Format("2006-01-02")),
				logger.Error(err))
			return models.ReferenceClose{}, false
		}
		if ok {
			return models.ReferenceClose{
				HorizonDays: horizonDays,
				Price:       price,
				SourceDate:  date,
			}, true
		}
	}

	r.log.Warn("reference close unresolved, lookback exhausted",
		logger.Int("horizon_days", horizonDays),
		logger.Int("max_lookback", r.maxLookback))
	return models.ReferenceClose{}, false
}

// Series returns the most recent n deduplicated trading-day closes, newest
// first. Consecutive identical closes are dropped: the feed serves the
// previous close again on non-trading days, and those placeholder rows
// would skew any statistic computed over the window.
func (r *Resolver) Series(ctx context.Context, n int) []float64 {
	out := make([]float64, 0, n)
	day := r.today().AddDate(0, 0, -1)

	var last float64
	haveLast := false
	limit := n*3 + r.maxLookback
	for i := 0; len(out) < n && i < limit; i++ {
		price, ok, err := r.closeFor(ctx, day)
		day = day.AddDate(0, 0, -1)
		if err != nil {
			r.log.Warn("series fetch failed", logger.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if haveLast && price == last {
			continue
		}
		out = append(out, price)
		last = price
		haveLast = true
	}
	return out
}

// Median returns the median of values. For an even-sized window it takes
// the LARGER of the two central values rather than their mean, so the
// result is always an actually observed close.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	return s[len(s)/2], true
}

func (r *Resolver) closeFor(ctx context.Context, date time.Time) (float64, bool, error) {
	key := cache.GenerateKey("close", date.Format("2006-01-02"))

	var cached float64
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return cached, true, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.log.Debug("close cache read failed", logger.Error(err))
	}

	price, ok, err := r.src.CloseForDate(ctx, date)
	if err != nil || !ok {
		return 0, ok, err
	}

	if err := r.cache.Set(ctx, key, price, r.cacheTTL); err != nil {
		r.log.Debug("close cache write failed", logger.Error(err))
	}
	return price, true, nil
}

func (r *Resolver) today() time.Time {
	return util.DayStart(r.nowFn(), r.loc)
}
