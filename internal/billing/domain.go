// Package billing owns invoices: creation from sales orders, the print step
// that commits stock, cancellation that restores it, and the edits allowed
// while an invoice is still a draft.
package billing

import "time"

// Invoice is the invoice header. Amounts are stored in USD; TotalLocal is the
// conversion at ExchangeRate. USD figures are the source of truth, and local
// amounts are always derived, never edited.
type Invoice struct {
	ID            int64      `json:"id" db:"id"`
	InvoiceNumber string     `json:"invoiceNumber" db:"invoice_number"`
	SalesOrderID  int64      `json:"salesOrderId" db:"sales_order_id"`
	ClientID      int64      `json:"clientId" db:"client_id"`
	PaymentTermID int64      `json:"paymentTermId" db:"payment_term_id"`
	ExchangeRate  float64    `json:"exchangeRate" db:"exchange_rate"`
	SubtotalUSD   float64    `json:"subtotalUsd" db:"subtotal_usd"`
	DiscountUSD   float64    `json:"discountUsd" db:"discount_usd"`
	TaxableUSD    float64    `json:"taxableUsd" db:"taxable_usd"`
	TaxUSD        float64    `json:"taxUsd" db:"tax_usd"`
	TotalUSD      float64    `json:"totalUsd" db:"total_usd"`
	TotalLocal    float64    `json:"totalLocal" db:"total_local"`
	IsPrinted     bool       `json:"isPrinted" db:"is_printed"`
	PrintedAt     *time.Time `json:"printedAt,omitempty" db:"printed_at"`
	IsCancelled   bool       `json:"isCancelled" db:"is_cancelled"`
	CancelledAt   *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// Active reports whether the invoice still counts against its order.
func (i *Invoice) Active() bool {
	return i.DeletedAt == nil && !i.IsCancelled
}

// Editable reports whether draft edits (rate, items, payment term) are allowed.
func (i *Invoice) Editable() bool {
	return i.DeletedAt == nil && !i.IsPrinted && !i.IsCancelled
}

// Printable reports whether printing may proceed. Printing an already printed
// invoice is a permitted no-op, so this only excludes cancelled and deleted.
func (i *Invoice) Printable() bool {
	return i.DeletedAt == nil && !i.IsCancelled
}

// InvoiceItem is a denormalized snapshot line. The invoice does not follow
// later article or order edits unless it is regenerated while unprinted.
type InvoiceItem struct {
	ID                int64   `json:"id" db:"id"`
	InvoiceID         int64   `json:"invoiceId" db:"invoice_id"`
	ArticleID         int64   `json:"articleId" db:"article_id"`
	ArticleCode       string  `json:"articleCode" db:"article_code"`
	Description       string  `json:"description" db:"description"`
	Quantity          float64 `json:"quantity" db:"quantity"`
	UnitPriceUSD      float64 `json:"unitPriceUsd" db:"unit_price_usd"`
	DiscountPct       float64 `json:"discountPct" db:"discount_pct"`
	LineSubtotalUSD   float64 `json:"lineSubtotalUsd" db:"line_subtotal_usd"`
	UnitPriceLocal    float64 `json:"unitPriceLocal" db:"unit_price_local"`
	LineSubtotalLocal float64 `json:"lineSubtotalLocal" db:"line_subtotal_local"`
}

// InvoiceWithItems is the full read model.
type InvoiceWithItems struct {
	Invoice
	ClientName string        `json:"clientName"`
	Items      []InvoiceItem `json:"items"`
}

// InvoiceSummary is one listing row.
type InvoiceSummary struct {
	Invoice
	ClientName string `json:"clientName"`
	ItemCount  int    `json:"itemCount"`
}

// SourceOrder is the order view billing reads when invoicing.
type SourceOrder struct {
	ID            int64      `json:"id" db:"id"`
	OrderNumber   string     `json:"orderNumber" db:"order_number"`
	ClientID      int64      `json:"clientId" db:"client_id"`
	Status        string     `json:"status" db:"status"`
	PaymentTermID *int64     `json:"paymentTermId,omitempty" db:"payment_term_id"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// SourceOrderItem is one order line to be invoiced.
type SourceOrderItem struct {
	ArticleID   int64   `json:"articleId" db:"article_id"`
	ArticleCode string  `json:"articleCode" db:"article_code"`
	Description string  `json:"description" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	UnitPrice   float64 `json:"unitPrice" db:"unit_price"`
}

// CreateInvoiceRequest creates an invoice from a sales order. Both fields are
// optional: the payment term falls back to the client's default and the
// exchange rate to the system settings.
type CreateInvoiceRequest struct {
	PaymentTermID *int64   `json:"paymentTermId,omitempty" validate:"omitempty,gt=0"`
	ExchangeRate  *float64 `json:"exchangeRate,omitempty" validate:"omitempty,gt=0"`
}

// UpdateExchangeRateRequest changes the conversion rate of a draft invoice.
type UpdateExchangeRateRequest struct {
	ExchangeRate float64 `json:"exchangeRate" validate:"required,gt=0"`
}

// UpdateItemRequest overrides the discount of one existing invoice line.
// Quantities and prices stay what the order snapshot says.
type UpdateItemRequest struct {
	ItemID      int64   `json:"itemId" validate:"required,gt=0"`
	DiscountPct float64 `json:"discountPercent" validate:"gte=0,lte=100"`
}

// UpdateItemsRequest applies per-line discount overrides to a draft invoice.
type UpdateItemsRequest struct {
	Items []UpdateItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdatePaymentTermRequest changes the payment term of a draft invoice and
// makes it the client's new default.
type UpdatePaymentTermRequest struct {
	PaymentTermID int64 `json:"paymentTermId" validate:"required,gt=0"`
}

// ListInvoicesRequest filters the invoice listing.
type ListInvoicesRequest struct {
	ClientID     int64 `json:"clientId,omitempty"`
	SalesOrderID int64 `json:"salesOrderId,omitempty"`
	Limit        int   `json:"limit,omitempty"`
	Offset       int   `json:"offset,omitempty"`
}

// PrintResult reports what printing did.
type PrintResult struct {
	Invoice        *InvoiceWithItems `json:"invoice"`
	AlreadyPrinted bool              `json:"alreadyPrinted"`
	StockDebited   bool              `json:"stockDebited"`
}
