package repository

import (
	"context"
	"time"

	"spotwatch/internal/domain/models"
)

// SpotSource fetches the current spot price for the configured instrument.
type SpotSource interface {
	FetchSpot(ctx context.Context) (models.SpotReading, error)
}

// HistorySource fetches historical closes by calendar date. ok=false means
// the feed has no value for that date (non-trading day); err is reserved
// for transport or payload failures.
type HistorySource interface {
	CloseForDate(ctx context.Context, date time.Time) (price float64, ok bool, err error)
}

// TransitionListener observes MarketStatus changes.
type TransitionListener interface {
	OnTransition(ctx context.Context, tr models.StatusTransition)
}

// ReadingStorage persists successful spot readings as telemetry.
type ReadingStorage interface {
	Store(ctx context.Context, symbol string, r models.SpotReading, status models.MarketStatus) error
	Close() error
}

// Metrics records engine observability signals.
type Metrics interface {
	RecordStatus(status models.MarketStatus)
	RecordLastPrice(price float64)
	RecordPollInterval(d time.Duration)
	RecordFetchError(kind string)
	RecordFreeze()
	RecordFetchLatency(op string, seconds float64)
}
