// Package sales owns the sales-order aggregate and its lifecycle: creation,
// in-place edits with dependent-document regeneration, and deletion with its
// invoice and stock consequences.
package sales

import "time"

// OrderStatus captures the commercial state of a sales order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusInvoiced  OrderStatus = "INVOICED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// SalesOrder is the order header. PaymentTermID is optional; when set it
// takes precedence over the client's default at invoicing time.
type SalesOrder struct {
	ID                 int64       `json:"id" db:"id"`
	OrderNumber        string      `json:"orderNumber" db:"order_number"`
	ClientID           int64       `json:"clientId" db:"client_id"`
	Status             OrderStatus `json:"status" db:"status"`
	PaymentTermID      *int64      `json:"paymentTermId,omitempty" db:"payment_term_id"`
	SpecialDiscountPct float64     `json:"specialDiscountPct" db:"special_discount_pct"`
	Total              float64     `json:"total" db:"total"`
	Notes              *string     `json:"notes,omitempty" db:"notes"`
	CreatedAt          time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time   `json:"updatedAt" db:"updated_at"`
	DeletedAt          *time.Time  `json:"deletedAt,omitempty" db:"deleted_at"`
}

// SalesOrderItem is one order line. Prices are in USD; LineTotal is net of
// the per-line discount but before the order-level special discount.
type SalesOrderItem struct {
	ID          int64   `json:"id" db:"id"`
	OrderID     int64   `json:"orderId" db:"sales_order_id"`
	ArticleID   int64   `json:"articleId" db:"article_id"`
	ArticleCode string  `json:"articleCode" db:"article_code"`
	Description string  `json:"description" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	UnitPrice   float64 `json:"unitPrice" db:"unit_price"`
	DiscountPct float64 `json:"discountPct" db:"discount_pct"`
	LineTotal   float64 `json:"lineTotal" db:"line_total"`
}

// OrderInvoice is the order-scoped view of a dependent invoice. The order
// lifecycle regenerates, cancels and soft-deletes invoices through it.
type OrderInvoice struct {
	ID            int64      `json:"id" db:"id"`
	InvoiceNumber string     `json:"invoiceNumber" db:"invoice_number"`
	PaymentTermID int64      `json:"paymentTermId" db:"payment_term_id"`
	ExchangeRate  float64    `json:"exchangeRate" db:"exchange_rate"`
	IsPrinted     bool       `json:"isPrinted" db:"is_printed"`
	IsCancelled   bool       `json:"isCancelled" db:"is_cancelled"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// Active reports whether the invoice still counts against the order.
func (i OrderInvoice) Active() bool {
	return i.DeletedAt == nil && !i.IsCancelled
}

// Locked reports whether the invoice freezes its order: printed and active.
func (i OrderInvoice) Locked() bool {
	return i.Active() && i.IsPrinted
}

// Regenerable reports whether an order edit may rebuild this invoice in place.
func (i OrderInvoice) Regenerable() bool {
	return i.Active() && !i.IsPrinted
}

// OrderInvoiceItem is a denormalized invoice line owned by an order's invoice.
type OrderInvoiceItem struct {
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

// OrderInvoiceTotals carries the recomputed amounts written back during
// regeneration.
type OrderInvoiceTotals struct {
	SubtotalUSD float64
	DiscountUSD float64
	TaxableUSD  float64
	TaxUSD      float64
	TotalUSD    float64
	TotalLocal  float64
}

// OrderDeliveryNote is the order-scoped view of a dependent delivery note.
type OrderDeliveryNote struct {
	ID         int64      `json:"id" db:"id"`
	NoteNumber string     `json:"noteNumber" db:"delivery_note_number"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// OrderDeliveryNoteItem is a pricing-free snapshot line on a delivery note.
type OrderDeliveryNoteItem struct {
	ArticleID   int64   `json:"articleId" db:"article_id"`
	ArticleCode string  `json:"articleCode" db:"article_code"`
	Description string  `json:"description" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
}

// SalesOrderWithDetails is the full read model: header, lines and the
// dependent documents the permission projection and guards inspect.
type SalesOrderWithDetails struct {
	SalesOrder
	ClientName    string              `json:"clientName"`
	Items         []SalesOrderItem    `json:"items"`
	Invoices      []OrderInvoice      `json:"invoices"`
	DeliveryNotes []OrderDeliveryNote `json:"deliveryNotes"`
}

// CurrentInvoice returns the newest non-deleted invoice, or nil.
func (o *SalesOrderWithDetails) CurrentInvoice() *OrderInvoice {
	for i := len(o.Invoices) - 1; i >= 0; i-- {
		if o.Invoices[i].DeletedAt == nil {
			return &o.Invoices[i]
		}
	}
	return nil
}

// ActiveInvoice returns the newest invoice that still counts (non-deleted,
// non-cancelled), or nil.
func (o *SalesOrderWithDetails) ActiveInvoice() *OrderInvoice {
	for i := len(o.Invoices) - 1; i >= 0; i-- {
		if o.Invoices[i].Active() {
			return &o.Invoices[i]
		}
	}
	return nil
}

// Locked reports whether any active printed invoice freezes this order.
func (o *SalesOrderWithDetails) Locked() bool {
	for _, inv := range o.Invoices {
		if inv.Locked() {
			return true
		}
	}
	return false
}

// ActiveDeliveryNote returns the newest non-deleted delivery note, or nil.
func (o *SalesOrderWithDetails) ActiveDeliveryNote() *OrderDeliveryNote {
	for i := len(o.DeliveryNotes) - 1; i >= 0; i-- {
		if o.DeliveryNotes[i].DeletedAt == nil {
			return &o.DeliveryNotes[i]
		}
	}
	return nil
}

// CreateOrderItemRequest is one requested line.
type CreateOrderItemRequest struct {
	ArticleID   int64   `json:"articleId" validate:"required,gt=0"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	DiscountPct float64 `json:"discountPct" validate:"gte=0,lte=100"`
}

// CreateOrderRequest creates a sales order.
type CreateOrderRequest struct {
	ClientID           int64                    `json:"clientId" validate:"required,gt=0"`
	PaymentTermID      *int64                   `json:"paymentTermId,omitempty" validate:"omitempty,gt=0"`
	SpecialDiscountPct float64                  `json:"specialDiscountPct" validate:"gte=0,lte=100"`
	Notes              *string                  `json:"notes,omitempty"`
	Items              []CreateOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateOrderRequest edits an order. With Items present the lines are
// wholesale-replaced and dependent documents regenerate; without Items only
// the header fields change and lines and documents stay as they are.
type UpdateOrderRequest struct {
	ClientID           int64                    `json:"clientId" validate:"required,gt=0"`
	Status             OrderStatus              `json:"status,omitempty" validate:"omitempty,oneof=PENDING INVOICED CANCELLED"`
	PaymentTermID      *int64                   `json:"paymentTermId,omitempty" validate:"omitempty,gt=0"`
	SpecialDiscountPct float64                  `json:"specialDiscountPct" validate:"gte=0,lte=100"`
	Notes              *string                  `json:"notes,omitempty"`
	Items              []CreateOrderItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// RegenerationSummary reports which dependent documents an edit rebuilt.
type RegenerationSummary struct {
	Invoices      int    `json:"invoices"`
	DeliveryNotes int    `json:"deliveryNotes"`
	Message       string `json:"message"`
}

// UpdateOrderResult is the edit response.
type UpdateOrderResult struct {
	Order       *SalesOrderWithDetails `json:"order"`
	Regenerated RegenerationSummary    `json:"regenerated"`
}

// AffectedInvoice describes what order deletion did to one invoice.
type AffectedInvoice struct {
	ID            int64  `json:"id"`
	InvoiceNumber string `json:"invoiceNumber"`
	WasCancelled  bool   `json:"wasCancelled"`
}

// RemoveOrderResult is the deletion response.
type RemoveOrderResult struct {
	OrderNumber           string            `json:"orderNumber"`
	AffectedInvoices      []AffectedInvoice `json:"affectedInvoices"`
	AffectedDeliveryNotes int               `json:"affectedDeliveryNotes"`
}

// ListOrdersRequest filters the order listing.
type ListOrdersRequest struct {
	Status   OrderStatus `json:"status,omitempty"`
	ClientID int64       `json:"clientId,omitempty"`
	Limit    int         `json:"limit,omitempty"`
	Offset   int         `json:"offset,omitempty"`
}

// SalesOrderSummary is one listing row.
type SalesOrderSummary struct {
	SalesOrder
	ClientName string `json:"clientName"`
	ItemCount  int    `json:"itemCount"`
}
