package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineTotal(t *testing.T) {
	assert.Equal(t, 900.0, LineTotal(10, 100, 10))
	assert.Equal(t, 1000.0, LineTotal(10, 100, 0))
	assert.Equal(t, 0.0, LineTotal(0, 100, 10))
	// rounding stays at two places
	assert.Equal(t, 33.33, LineTotal(1, 33.333, 0))
}

func TestOrderTotalAppliesSpecialDiscount(t *testing.T) {
	total := OrderTotal([]float64{900, 100}, 10)
	assert.Equal(t, 900.0, total)

	assert.Equal(t, 1000.0, OrderTotal([]float64{900, 100}, 0))
	assert.Equal(t, 0.0, OrderTotal(nil, 10))
}

func TestInvoiceTotalsFor(t *testing.T) {
	lines := []InvoiceLine{{Quantity: 10, UnitPriceUSD: 100, DiscountPct: 10}}
	totals := InvoiceTotalsFor(lines, 1000)

	require.Equal(t, 1000.0, totals.SubtotalUSD)
	require.Equal(t, 100.0, totals.DiscountUSD)
	require.Equal(t, 900.0, totals.TaxableUSD)
	require.Equal(t, 189.0, totals.TaxUSD)
	require.Equal(t, 1089.0, totals.TotalUSD)
	require.Equal(t, 1089000.0, totals.TotalLocal)
}

func TestInvoiceTotalsForMultipleLines(t *testing.T) {
	lines := []InvoiceLine{
		{Quantity: 2, UnitPriceUSD: 50.5, DiscountPct: 0},
		{Quantity: 3, UnitPriceUSD: 10, DiscountPct: 50},
	}
	totals := InvoiceTotalsFor(lines, 1)

	assert.Equal(t, 131.0, totals.SubtotalUSD)
	assert.Equal(t, 15.0, totals.DiscountUSD)
	assert.Equal(t, 116.0, totals.TaxableUSD)
	assert.Equal(t, 24.36, totals.TaxUSD)
	assert.Equal(t, 140.36, totals.TotalUSD)
	assert.Equal(t, 140.36, totals.TotalLocal)
}

func TestToLocalRoundTripKeepsUSDPrices(t *testing.T) {
	// changing the exchange rate must never drift the stored USD amounts:
	// local values always derive from USD, not the other way around
	usd := 123.45
	assert.Equal(t, 123450.0, ToLocal(usd, 1000))
	assert.Equal(t, 160485.0, ToLocal(usd, 1300))
	assert.Equal(t, 123.45, usd)
}

func TestDiscountResolverChain(t *testing.T) {
	r := NewDiscountResolver(
		[]DiscountRule{{CategoryID: 1, PaymentTermID: 2, DiscountPct: 15}},
		[]CategoryDefault{{CategoryID: 1, DiscountPct: 5}, {CategoryID: 3, DiscountPct: 8}},
	)

	assert.Equal(t, 15.0, r.Resolve(1, 2), "term-specific rule wins")
	assert.Equal(t, 5.0, r.Resolve(1, 9), "falls back to category default")
	assert.Equal(t, 8.0, r.Resolve(3, 2))
	assert.Equal(t, 0.0, r.Resolve(7, 2), "unknown category")
	assert.Equal(t, 0.0, r.Resolve(0, 2), "uncategorised article")
}
