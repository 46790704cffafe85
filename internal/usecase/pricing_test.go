package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotwatch/internal/domain/models"
	"spotwatch/internal/engine"
)

func testTiers() []PriceTier {
	return []PriceTier{
		{MinQuantity: 100, DiscountPct: 5},
		{MinQuantity: 10, DiscountPct: 2},
	}
}

func TestQuoteCalculator(t *testing.T) {
	snap := engine.NewSnapshot()
	snap.SetReference(models.ReferenceClose{HorizonDays: engine.HorizonSession, Price: 2000})

	q := NewQuoteCalculator(snap, 1.5, testTiers())

	t.Run("no discount below first tier", func(t *testing.T) {
		quote, err := q.Quote(5)
		require.NoError(t, err)
		assert.InDelta(t, 2030.0, quote.UnitPrice, 1e-9)
		assert.Equal(t, 0.0, quote.DiscountPct)
		assert.InDelta(t, 5*2030.0, quote.Total, 1e-9)
		assert.Equal(t, 2000.0, quote.Reference)
	})

	t.Run("highest qualifying tier wins", func(t *testing.T) {
		quote, err := q.Quote(150)
		require.NoError(t, err)
		assert.Equal(t, 5.0, quote.DiscountPct)
		assert.InDelta(t, 150*2030.0*0.95, quote.Total, 1e-9)
	})

	t.Run("tier boundary is inclusive", func(t *testing.T) {
		quote, err := q.Quote(10)
		require.NoError(t, err)
		assert.Equal(t, 2.0, quote.DiscountPct)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := q.Quote(0)
		assert.Error(t, err)
	})
}

func TestQuoteWithoutReference(t *testing.T) {
	q := NewQuoteCalculator(engine.NewSnapshot(), 1.5, testTiers())
	_, err := q.Quote(1)
	assert.ErrorIs(t, err, ErrReferenceUnavailable)
}
