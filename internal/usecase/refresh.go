package usecase

import (
	"context"
	"time"

	"spotwatch/internal/engine"
	"spotwatch/internal/refclose"
	"spotwatch/pkg/logger"
)

const refreshTimeout = 2 * time.Minute

// ReferenceRefresher re-resolves the reference closes for every configured
// horizon plus the median close signal. It runs once at startup and then on
// the daily cron, shortly after the provider publishes the new close.
type ReferenceRefresher struct {
	resolver     *refclose.Resolver
	snap         *engine.Snapshot
	horizons     []int
	medianWindow int
	log          *logger.Logger
}

func NewReferenceRefresher(resolver *refclose.Resolver, snap *engine.Snapshot, horizons []int, medianWindow int, log *logger.Logger) *ReferenceRefresher {
	return &ReferenceRefresher{
		resolver:     resolver,
		snap:         snap,
		horizons:     horizons,
		medianWindow: medianWindow,
		log:          log,
	}
}

func (r *ReferenceRefresher) Name() string { return "reference-refresh" }

// Run resolves each horizon independently. A horizon that cannot be
// resolved is skipped, leaving the snapshot's previous entry in place, and
// does not fail the job: the other horizons still deserve fresh data.
func (r *ReferenceRefresher) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	resolved := 0
	for _, h := range r.horizons {
		rc, ok := r.resolver.Resolve(ctx, h)
		if !ok {
			continue
		}
		r.snap.SetReference(rc)
		resolved++
		r.log.Debug("reference close refreshed",
			logger.Int("horizon_days", h),
			logger.Float64("price", rc.Price),
			logger.String("source_date", rc.SourceDate.Format("2006-01-02")))
	}

	if r.medianWindow > 0 {
		series := r.resolver.Series(ctx, r.medianWindow)
		if m, ok := refclose.Median(series); ok {
			r.snap.SetMedianClose(m)
		}
	}

	r.log.Info("reference refresh completed",
		logger.Int("resolved", resolved),
		logger.Int("horizons", len(r.horizons)))
	return nil
}
