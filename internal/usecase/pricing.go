package usecase

import (
	"errors"
	"sort"

	"spotwatch/internal/domain/models"
	"spotwatch/internal/engine"
)

// ErrReferenceUnavailable means no session reference close has been
// resolved yet, so no quote can be priced.
var ErrReferenceUnavailable = errors.New("reference price unavailable")

// PriceTier grants a volume discount from a minimum quantity upward.
type PriceTier struct {
	MinQuantity float64
	DiscountPct float64
}

// QuoteCalculator prices indicative quotes off the 1-day reference close.
// Quotes deliberately ignore the live spot reading: the reference close is
// stable for a whole session, which keeps quotes reproducible, and it is
// available right after the startup refresh, before the first poll.
type QuoteCalculator struct {
	snap      *engine.Snapshot
	spreadPct float64
	tiers     []PriceTier
}

func NewQuoteCalculator(snap *engine.Snapshot, spreadPct float64, tiers []PriceTier) *QuoteCalculator {
	sorted := append([]PriceTier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinQuantity < sorted[j].MinQuantity })
	return &QuoteCalculator{snap: snap, spreadPct: spreadPct, tiers: sorted}
}

// Quote prices a quantity. The unit price is the session reference plus the
// configured spread; the highest tier whose minimum the quantity meets
// determines the discount.
func (q *QuoteCalculator) Quote(quantity float64) (models.Quote, error) {
	if quantity <= 0 {
		return models.Quote{}, errors.New("quantity must be positive")
	}

	rc, ok := q.snap.Reference(engine.HorizonSession)
	if !ok {
		return models.Quote{}, ErrReferenceUnavailable
	}

	unit := rc.Price * (1 + q.spreadPct/100)
	discount := 0.0
	for _, t := range q.tiers {
		if quantity >= t.MinQuantity {
			discount = t.DiscountPct
		}
	}

	return models.Quote{
		Quantity:    quantity,
		UnitPrice:   unit,
		DiscountPct: discount,
		Total:       quantity * unit * (1 - discount/100),
		Reference:   rc.Price,
		Status:      q.snap.Status(),
	}, nil
}
