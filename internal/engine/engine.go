// Package engine holds the market status state machine, the spot feed
// poller and the shared status snapshot. The calendar decides CLOSED
// unconditionally; a confirmation heuristic over consecutive unchanged
// readings decides FROZEN while the market is nominally open.
package engine

import (
	"context"
	"math"
	"time"

	"spotwatch/internal/calendar"
	"spotwatch/internal/domain/models"
	"spotwatch/internal/domain/repository"
	"spotwatch/pkg/logger"
)

// PollingPolicy controls the poller cadence and freeze confirmation.
// Interval is the only mutable field; the engine switches it between the
// default and the fast-confirm cadence while gathering confirmations.
type PollingPolicy struct {
	Interval         time.Duration
	ConfirmInterval  time.Duration
	SameThreshold    int
	ConfirmThreshold int
	Epsilon          float64
}

// Engine is the freeze/status state machine. All state is owned by the
// poller goroutine: Tick is never called concurrently, so no locking is
// needed here. Everything other components may read goes through the
// Snapshot.
type Engine struct {
	cal     *calendar.Calculator
	spot    repository.SpotSource
	snap    *Snapshot
	metrics repository.Metrics
	log     *logger.Logger
	symbol  string

	policy          PollingPolicy
	defaultInterval time.Duration

	status       models.MarketStatus
	prev         *models.SpotReading
	last         *models.SpotReading
	sameCount    int
	confirmCount int
	deltas       models.DeltaSet
	sessionRef   float64
	sessionRefOK bool

	listeners []repository.TransitionListener
	store     repository.ReadingStorage
	onRearm   func(time.Duration)

	nowFn func() time.Time
}

func New(cal *calendar.Calculator, spot repository.SpotSource, snap *Snapshot, metrics repository.Metrics, log *logger.Logger, symbol string, policy PollingPolicy) *Engine {
	return &Engine{
		cal:             cal,
		spot:            spot,
		snap:            snap,
		metrics:         metrics,
		log:             log,
		symbol:          symbol,
		policy:          policy,
		defaultInterval: policy.Interval,
		status:          models.StatusClosed,
		nowFn:           time.Now,
	}
}

// AddListener registers a transition listener. Must be called before the
// poller starts.
func (e *Engine) AddListener(l repository.TransitionListener) {
	e.listeners = append(e.listeners, l)
}

// SetReadingStore attaches optional reading-history storage.
func (e *Engine) SetReadingStore(s repository.ReadingStorage) {
	e.store = s
}

// Interval returns the delay the poller should arm for the next tick.
func (e *Engine) Interval() time.Duration {
	return e.policy.Interval
}

// Tick runs one full poll cycle: recompute the trading window, fetch the
// spot price, run the status heuristic, recompute deltas and publish.
func (e *Engine) Tick(ctx context.Context) {
	now := e.nowFn()
	window := e.cal.CurrentWindow(now)
	sched := window.StatusAt(now)

	if sched == models.StatusClosed {
		// The clock is authoritative for closure; heuristics never
		// override it, and the feed is not worth polling.
		e.resetHeuristics()
		e.transitionTo(ctx, models.StatusClosed)
		e.snap.publishTick(e.status, window, e.last, e.deltas, e.sessionRef, e.sessionRefOK)
		return
	}

	start := time.Now()
	reading, err := e.spot.FetchSpot(ctx)
	e.metrics.RecordFetchLatency("spot", time.Since(start).Seconds())
	if err != nil {
		// No observation this tick: counters and status hold, the next
		// tick retries naturally.
		e.log.Warn("spot fetch failed", logger.Error(err))
		e.metrics.RecordFetchError("spot")
		return
	}
	e.metrics.RecordLastPrice(reading.Price)
	e.prev, e.last = e.last, &reading

	if sched == models.StatusBreak {
		// Scheduled pause: an unmoving price is expected, so freeze
		// confirmation is suspended the same way a full closure
		// suspends it.
		e.resetHeuristics()
		e.transitionTo(ctx, models.StatusBreak)
	} else {
		e.observeOpen(ctx, sched, reading)
	}

	e.recomputeDeltas(reading)
	e.snap.publishTick(e.status, window, e.last, e.deltas, e.sessionRef, e.sessionRefOK)

	if e.store != nil {
		if err := e.store.Store(ctx, e.symbol, reading, e.status); err != nil {
			e.log.Warn("reading store failed", logger.Error(err))
			e.metrics.RecordFetchError("storage")
		}
	}
}

// observeOpen runs the freeze heuristic for a reading taken while the
// market is scheduled open.
func (e *Engine) observeOpen(ctx context.Context, sched models.MarketStatus, reading models.SpotReading) {
	if e.prev == nil {
		// First observation; nothing to compare yet.
		e.transitionTo(ctx, sched)
		return
	}

	if math.Abs(reading.Price-e.prev.Price) > e.policy.Epsilon {
		// Price moved: proof of life. This also exits FROZEN
		// immediately, regardless of the counters.
		e.resetHeuristics()
		e.transitionTo(ctx, sched)
		return
	}

	e.sameCount++
	switch {
	case e.sameCount == e.policy.SameThreshold:
		// Enough repeats to be suspicious: poll faster to gather
		// confirmations without waiting out the steady cadence.
		e.setInterval(e.policy.ConfirmInterval)
	case e.sameCount > e.policy.SameThreshold && e.status != models.StatusFrozen:
		e.confirmCount++
		if e.confirmCount >= e.policy.ConfirmThreshold {
			// Confirmed stall. A sustained freeze no longer needs
			// fast polling.
			e.setInterval(e.defaultInterval)
			e.metrics.RecordFreeze()
			e.transitionTo(ctx, models.StatusFrozen)
		}
	}

	if e.status != models.StatusFrozen {
		e.transitionTo(ctx, sched)
	}
}

func (e *Engine) recomputeDeltas(reading models.SpotReading) {
	// While OPEN the session reference re-pins to the latest resolved
	// 1-day close each tick; outside OPEN it stays pinned so the session
	// delta reads "since last close", not a moving target. The first
	// resolution is adopted regardless of status so a restart during
	// closure still yields a session delta.
	if e.status == models.StatusOpen || !e.sessionRefOK {
		if rc, ok := e.snap.Reference(HorizonSession); ok {
			e.sessionRef = rc.Price
			e.sessionRefOK = true
		}
	}

	month, monthOK := e.snap.Reference(HorizonMonth)
	year, yearOK := e.snap.Reference(HorizonYear)
	e.deltas = updateDeltas(e.deltas, reading.Price, e.sessionRef, e.sessionRefOK, month, monthOK, year, yearOK)
}

func (e *Engine) resetHeuristics() {
	e.sameCount = 0
	e.confirmCount = 0
	e.setInterval(e.defaultInterval)
}

func (e *Engine) setInterval(d time.Duration) {
	if e.policy.Interval == d {
		return
	}
	e.policy.Interval = d
	e.metrics.RecordPollInterval(d)
	e.log.Info("poll interval changed", logger.Duration("interval_ms", d))
	if e.onRearm != nil {
		e.onRearm(d)
	}
}

func (e *Engine) transitionTo(ctx context.Context, to models.MarketStatus) {
	if to == e.status {
		return
	}

	tr := models.StatusTransition{
		Symbol:     e.symbol,
		From:       e.status,
		To:         to,
		ObservedAt: e.nowFn(),
	}
	if e.last != nil {
		tr.Price = e.last.Price
	}

	e.status = to
	e.metrics.RecordStatus(to)
	e.log.Info("market status changed",
		logger.String("from", string(tr.From)),
		logger.String("to", string(tr.To)),
		logger.Float64("price", tr.Price))

	for _, l := range e.listeners {
		l.OnTransition(ctx, tr)
	}
}
