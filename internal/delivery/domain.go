// Package delivery owns delivery notes (remitos): pricing-free snapshots of
// an order's goods for the transporter. Delivery notes never touch stock.
package delivery

import "time"

// DeliveryNote is the note header. Weight, package count and declared value
// are shipment metadata the transporter asks for, all optional.
type DeliveryNote struct {
	ID            int64      `json:"id" db:"id"`
	NoteNumber    string     `json:"noteNumber" db:"delivery_note_number"`
	SalesOrderID  int64      `json:"salesOrderId" db:"sales_order_id"`
	ClientID      int64      `json:"clientId" db:"client_id"`
	Transporter   *string    `json:"transporter,omitempty" db:"transporter"`
	WeightKg      *float64   `json:"weightKg,omitempty" db:"weight_kg"`
	PackagesCount *int       `json:"packagesCount,omitempty" db:"packages_count"`
	DeclaredValue *float64   `json:"declaredValue,omitempty" db:"declared_value"`
	Notes         *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// Active reports whether the note still counts against its order.
func (n *DeliveryNote) Active() bool {
	return n.DeletedAt == nil
}

// DeliveryNoteItem is one snapshot line. It carries no prices: the document
// travels with the goods.
type DeliveryNoteItem struct {
	ID             int64   `json:"id" db:"id"`
	DeliveryNoteID int64   `json:"deliveryNoteId" db:"delivery_note_id"`
	ArticleID      int64   `json:"articleId" db:"article_id"`
	ArticleCode    string  `json:"articleCode" db:"article_code"`
	Description    string  `json:"description" db:"description"`
	Quantity       float64 `json:"quantity" db:"quantity"`
}

// DeliveryNoteWithItems is the full read model.
type DeliveryNoteWithItems struct {
	DeliveryNote
	ClientName string             `json:"clientName"`
	Items      []DeliveryNoteItem `json:"items"`
}

// SourceOrder is the order view delivery reads when generating a note.
type SourceOrder struct {
	ID          int64      `json:"id" db:"id"`
	OrderNumber string     `json:"orderNumber" db:"order_number"`
	ClientID    int64      `json:"clientId" db:"client_id"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// SourceOrderItem is one order line to snapshot.
type SourceOrderItem struct {
	ArticleID   int64   `json:"articleId" db:"article_id"`
	ArticleCode string  `json:"articleCode" db:"article_code"`
	Description string  `json:"description" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
}

// CreateDeliveryNoteRequest generates a note from a sales order. Transporter
// falls back to the client's usual one.
type CreateDeliveryNoteRequest struct {
	Transporter   *string  `json:"transporter,omitempty"`
	WeightKg      *float64 `json:"weightKg,omitempty"`
	PackagesCount *int     `json:"packagesCount,omitempty"`
	DeclaredValue *float64 `json:"declaredValue,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
}

// ListDeliveryNotesRequest filters the note listing.
type ListDeliveryNotesRequest struct {
	ClientID     int64 `json:"clientId,omitempty"`
	SalesOrderID int64 `json:"salesOrderId,omitempty"`
	Limit        int   `json:"limit,omitempty"`
	Offset       int   `json:"offset,omitempty"`
}
