package pricing

// DiscountRule is a category discount negotiated for a payment term.
type DiscountRule struct {
	CategoryID    int64
	PaymentTermID int64
	DiscountPct   float64
}

// CategoryDefault is the fallback discount for a category.
type CategoryDefault struct {
	CategoryID  int64
	DiscountPct float64
}

// DiscountResolver answers the per-article discount question: payment-term
// specific rule first, then the category default, then zero.
type DiscountResolver struct {
	byTerm   map[[2]int64]float64
	defaults map[int64]float64
}

// NewDiscountResolver indexes the given rules for lookup.
func NewDiscountResolver(rules []DiscountRule, defaults []CategoryDefault) *DiscountResolver {
	r := &DiscountResolver{
		byTerm:   make(map[[2]int64]float64, len(rules)),
		defaults: make(map[int64]float64, len(defaults)),
	}
	for _, rule := range rules {
		r.byTerm[[2]int64{rule.CategoryID, rule.PaymentTermID}] = rule.DiscountPct
	}
	for _, d := range defaults {
		r.defaults[d.CategoryID] = d.DiscountPct
	}
	return r
}

// Resolve returns the discount percentage for an article's category under a
// payment term. categoryID zero means the article is uncategorised.
func (r *DiscountResolver) Resolve(categoryID, paymentTermID int64) float64 {
	if categoryID == 0 {
		return 0
	}
	if pct, ok := r.byTerm[[2]int64{categoryID, paymentTermID}]; ok {
		return pct
	}
	if pct, ok := r.defaults[categoryID]; ok {
		return pct
	}
	return 0
}
