package engine

import (
	"sync"

	"spotwatch/internal/domain/models"
)

// Reference horizons in days.
const (
	HorizonSession = 1
	HorizonMonth   = 30
	HorizonYear    = 365
)

// Snapshot is the shared status record consumed by the HTTP layer and the
// pricing collaborator. The state machine is the only writer of the
// status/reading/delta fields; the daily refresh job is the only writer of
// the reference fields. The two field groups are disjoint, so each field
// has exactly one writer; the mutex only makes reads consistent.
type Snapshot struct {
	mu sync.RWMutex

	status  models.MarketStatus
	window  models.TradingWindow
	reading *models.SpotReading
	deltas  models.DeltaSet

	sessionRef   float64
	sessionRefOK bool

	refs     map[int]models.ReferenceClose
	median   float64
	medianOK bool
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		status: models.StatusClosed,
		refs:   make(map[int]models.ReferenceClose),
	}
}

// Status returns the engine's current market status.
func (s *Snapshot) Status() models.MarketStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Window returns the current week's trading window.
func (s *Snapshot) Window() models.TradingWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// LastReading returns the most recent successful spot observation.
func (s *Snapshot) LastReading() (models.SpotReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reading == nil {
		return models.SpotReading{}, false
	}
	return *s.reading, true
}

// Deltas returns the current delta set.
func (s *Snapshot) Deltas() models.DeltaSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deltas
}

// SessionReference returns the reference price behind the session delta.
// This is the authoritative floor price for the pricing collaborator.
func (s *Snapshot) SessionReference() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionRef, s.sessionRefOK
}

// Reference returns the resolved close for a horizon, if any.
func (s *Snapshot) Reference(horizonDays int) (models.ReferenceClose, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.refs[horizonDays]
	return rc, ok
}

// References returns a copy of all resolved reference closes.
func (s *Snapshot) References() map[int]models.ReferenceClose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]models.ReferenceClose, len(s.refs))
	for k, v := range s.refs {
		out[k] = v
	}
	return out
}

// MedianClose returns the median of the recent deduplicated closes.
func (s *Snapshot) MedianClose() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.median, s.medianOK
}

// publishTick stores the outcome of one engine tick. Called only from the
// poller goroutine.
func (s *Snapshot) publishTick(status models.MarketStatus, window models.TradingWindow, reading *models.SpotReading, deltas models.DeltaSet, sessionRef float64, sessionRefOK bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.window = window
	if reading != nil {
		r := *reading
		s.reading = &r
	}
	s.deltas = deltas
	s.sessionRef = sessionRef
	s.sessionRefOK = sessionRefOK
}

// SetReference stores one resolved reference close. Unresolved horizons
// keep their previous entry: absence propagates as missing, never as zero.
func (s *Snapshot) SetReference(rc models.ReferenceClose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[rc.HorizonDays] = rc
}

// SetMedianClose stores the refreshed median signal.
func (s *Snapshot) SetMedianClose(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.median = v
	s.medianOK = true
}
