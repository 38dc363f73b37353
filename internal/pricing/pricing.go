// Package pricing holds the money math for the commercial cycle. All
// computation runs on decimals and rounds half-up to two places at each
// documented step; callers pass and receive float64 amounts.
package pricing

import "github.com/shopspring/decimal"

// TaxRate is the fixed tax applied to every invoice.
const TaxRate = 0.21

// DefaultExchangeRate is the USD to local conversion used when the system
// settings row is absent.
const DefaultExchangeRate = 1000.0

var (
	hundred = decimal.NewFromInt(100)
	taxRate = decimal.NewFromFloat(TaxRate)
)

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func pctFactor(pct float64) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(decimal.NewFromFloat(pct).Div(hundred))
}

// LineTotal computes an order line: qty x unitPrice x (1 - discountPct/100).
func LineTotal(qty, unitPrice, discountPct float64) float64 {
	return decimal.NewFromFloat(qty).
		Mul(decimal.NewFromFloat(unitPrice)).
		Mul(pctFactor(discountPct)).
		Round(2).InexactFloat64()
}

// OrderTotal sums line totals and applies the order-level special discount.
func OrderTotal(lineTotals []float64, specialDiscountPct float64) float64 {
	sum := decimal.Zero
	for _, lt := range lineTotals {
		sum = sum.Add(decimal.NewFromFloat(lt))
	}
	return sum.Mul(pctFactor(specialDiscountPct)).Round(2).InexactFloat64()
}

// InvoiceLine is the pricing input for one invoiced article.
type InvoiceLine struct {
	Quantity     float64
	UnitPriceUSD float64
	DiscountPct  float64
}

// InvoiceTotals aggregates an invoice in USD plus the local-currency total.
type InvoiceTotals struct {
	SubtotalUSD float64
	DiscountUSD float64
	TaxableUSD  float64
	TaxUSD      float64
	TotalUSD    float64
	TotalLocal  float64
}

// InvoiceTotalsFor computes subtotal, per-line discounts, tax and the
// converted local total for the given exchange rate.
func InvoiceTotalsFor(lines []InvoiceLine, exchangeRate float64) InvoiceTotals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, l := range lines {
		gross := decimal.NewFromFloat(l.Quantity).Mul(decimal.NewFromFloat(l.UnitPriceUSD))
		subtotal = subtotal.Add(gross)
		discount = discount.Add(gross.Mul(decimal.NewFromFloat(l.DiscountPct).Div(hundred)))
	}
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate)
	total := taxable.Add(tax)
	local := total.Mul(decimal.NewFromFloat(exchangeRate))

	return InvoiceTotals{
		SubtotalUSD: subtotal.Round(2).InexactFloat64(),
		DiscountUSD: discount.Round(2).InexactFloat64(),
		TaxableUSD:  taxable.Round(2).InexactFloat64(),
		TaxUSD:      tax.Round(2).InexactFloat64(),
		TotalUSD:    total.Round(2).InexactFloat64(),
		TotalLocal:  local.Round(2).InexactFloat64(),
	}
}

// LineSubtotalUSD computes one invoice line net of its discount.
func LineSubtotalUSD(qty, unitPriceUSD, discountPct float64) float64 {
	return decimal.NewFromFloat(qty).
		Mul(decimal.NewFromFloat(unitPriceUSD)).
		Mul(pctFactor(discountPct)).
		Round(2).InexactFloat64()
}

// ToLocal converts a USD amount at the given rate, rounded to two places.
func ToLocal(usd, exchangeRate float64) float64 {
	return decimal.NewFromFloat(usd).
		Mul(decimal.NewFromFloat(exchangeRate)).
		Round(2).InexactFloat64()
}
