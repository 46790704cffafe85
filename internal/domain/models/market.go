package models

import "time"

// MarketStatus is the engine's decision about the instrument's market.
// The scheduled calendar is authoritative for CLOSED; FROZEN is a
// heuristic overlay that only exists while the market is nominally open.
type MarketStatus string

const (
	StatusOpen   MarketStatus = "OPEN"
	StatusBreak  MarketStatus = "BREAK"
	StatusClosed MarketStatus = "CLOSED"
	StatusFrozen MarketStatus = "FROZEN"
)

// IsOpen reports whether the market is live and the price is moving.
func (s MarketStatus) IsOpen() bool { return s == StatusOpen }

// SpotReading is a single observation from the spot feed. Immutable once
// recorded; the engine keeps only the latest and the previous one.
type SpotReading struct {
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// BreakWindow is a scheduled intraday pause inside the trading week.
type BreakWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TradingWindow holds the current week's scheduled open/close instants and
// intraday breaks, all resolved in the exchange timezone.
type TradingWindow struct {
	OpensAt  time.Time     `json:"opens_at"`
	ClosesAt time.Time     `json:"closes_at"`
	Breaks   []BreakWindow `json:"breaks,omitempty"`
}

// StatusAt returns the scheduled status for an instant: CLOSED outside the
// window, BREAK inside a break, OPEN otherwise. Break starts are inclusive,
// break ends exclusive, matching the open/close boundary convention.
func (w TradingWindow) StatusAt(t time.Time) MarketStatus {
	if t.Before(w.OpensAt) || !t.Before(w.ClosesAt) {
		return StatusClosed
	}
	for _, b := range w.Breaks {
		if !t.Before(b.Start) && t.Before(b.End) {
			return StatusBreak
		}
	}
	return StatusOpen
}

// ReferenceClose is a historical close anchored to a calendar horizon.
// SourceDate may be earlier than the nominal horizon date when the fallback
// search had to step over non-trading days. Absence of a value is always
// represented as "unresolved", never as a zero price.
type ReferenceClose struct {
	HorizonDays int       `json:"horizon_days"`
	Price       float64   `json:"price"`
	SourceDate  time.Time `json:"source_date"`
}

// DeltaSet holds session/30-day/365-day deltas against the resolved
// reference closes. Values are carried over when an input is unresolved.
type DeltaSet struct {
	Session    float64 `json:"session"`
	SessionPct float64 `json:"session_pct"`
	Month      float64 `json:"month"`
	MonthPct   float64 `json:"month_pct"`
	Year       float64 `json:"year"`
	YearPct    float64 `json:"year_pct"`
}

// StatusTransition is emitted whenever the engine changes MarketStatus.
type StatusTransition struct {
	Symbol     string       `json:"symbol"`
	From       MarketStatus `json:"from"`
	To         MarketStatus `json:"to"`
	Price      float64      `json:"price"`
	ObservedAt time.Time    `json:"observed_at"`
}

// QuoteRequest is the query payload for the quote endpoint.
type QuoteRequest struct {
	Quantity float64 `query:"quantity" validate:"required,gt=0"`
}

// Quote is a priced quantity derived from the session reference.
type Quote struct {
	Quantity    float64      `json:"quantity"`
	UnitPrice   float64      `json:"unit_price"`
	DiscountPct float64      `json:"discount_pct"`
	Total       float64      `json:"total"`
	Reference   float64      `json:"reference"`
	Status      MarketStatus `json:"status"`
}
