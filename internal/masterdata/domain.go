// Package masterdata exposes the reference data the document engine consumes:
// articles, categories, clients, payment terms and system settings. Editing
// these entities happens outside this service.
package masterdata

import "time"

// Article is a sellable item. Stock is the on-hand quantity maintained by the
// stock ledger; it may legitimately go negative.
type Article struct {
	ID          int64      `json:"id" db:"id"`
	Code        string     `json:"code" db:"code"`
	Description string     `json:"description" db:"description"`
	Stock       float64    `json:"stock" db:"stock"`
	CategoryID  *int64     `json:"categoryId" db:"category_id"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// Category groups articles and carries the fallback discount.
type Category struct {
	ID                 int64   `json:"id" db:"id"`
	Name               string  `json:"name" db:"name"`
	DefaultDiscountPct float64 `json:"defaultDiscountPct" db:"default_discount_pct"`
}

// Client is a customer account.
type Client struct {
	ID            int64      `json:"id" db:"id"`
	BusinessName  string     `json:"businessName" db:"business_name"`
	Address       *string    `json:"address,omitempty" db:"address"`
	TaxID         *string    `json:"taxId,omitempty" db:"tax_id"`
	PaymentTermID *int64     `json:"paymentTermId" db:"payment_term_id"`
	Transporter   *string    `json:"transporter,omitempty" db:"transporter"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// PaymentTerm names a payment modality (cash, 30 days, ...).
type PaymentTerm struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Settings is the single-row system configuration.
type Settings struct {
	ID              int64   `json:"id" db:"id"`
	USDExchangeRate float64 `json:"usdExchangeRate" db:"usd_exchange_rate"`
}
