package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"spotwatch/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	symbol string

	status       *prometheus.GaugeVec
	lastPrice    *prometheus.GaugeVec
	pollInterval prometheus.Gauge
	fetchErrors  *prometheus.CounterVec
	freezes      prometheus.Counter
	fetchLatency *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder for one instrument.
func New(symbol string) *Recorder {
	return &Recorder{
		symbol: symbol,
		status: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spotwatch_market_status",
				Help: "Current market status, one-hot across the status label",
			},
			[]string{"symbol", "status"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spotwatch_last_price",
				Help: "Last observed spot price",
			},
			[]string{"symbol"},
		),
		pollInterval: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "spotwatch_poll_interval_seconds",
				Help: "Current polling interval",
			},
		),
		fetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotwatch_fetch_errors_total",
				Help: "Total upstream fetch and storage errors",
			},
			[]string{"source"},
		),
		freezes: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "spotwatch_freeze_transitions_total",
				Help: "Total confirmed freeze transitions",
			},
		),
		fetchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spotwatch_fetch_duration_seconds",
				Help:    "Upstream fetch latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}
}

// RecordStatus sets the one-hot status gauge.
func (r *Recorder) RecordStatus(status models.MarketStatus) {
	for _, s := range []models.MarketStatus{models.StatusOpen, models.StatusBreak, models.StatusClosed, models.StatusFrozen} {
		v := 0.0
		if s == status {
			v = 1.0
		}
		r.status.WithLabelValues(r.symbol, string(s)).Set(v)
	}
}

func (r *Recorder) RecordLastPrice(price float64) {
	r.lastPrice.WithLabelValues(r.symbol).Set(price)
}

func (r *Recorder) RecordPollInterval(d time.Duration) {
	r.pollInterval.Set(d.Seconds())
}

func (r *Recorder) RecordFetchError(source string) {
	r.fetchErrors.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordFreeze() {
	r.freezes.Inc()
}

func (r *Recorder) RecordFetchLatency(source string, seconds float64) {
	r.fetchLatency.WithLabelValues(source).Observe(seconds)
}
