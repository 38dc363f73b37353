// Package inventory is the stock ledger: an append-only movement journal plus
// the on-hand quantity it maintains on each article.
package inventory

import "time"

// MovementType distinguishes stock leaving (DEBIT) from stock returning (CREDIT).
type MovementType string

const (
	MovementDebit  MovementType = "DEBIT"
	MovementCredit MovementType = "CREDIT"
)

// Movement is one immutable ledger line. StockBefore/StockAfter snapshot the
// article quantity around the mutation so history reads without replay.
type Movement struct {
	ID          int64        `json:"id" db:"id"`
	ArticleID   int64        `json:"articleId" db:"article_id"`
	Type        MovementType `json:"type" db:"movement_type"`
	Quantity    float64      `json:"quantity" db:"quantity"`
	StockBefore float64      `json:"stockBefore" db:"stock_before"`
	StockAfter  float64      `json:"stockAfter" db:"stock_after"`
	Reference   string       `json:"reference" db:"reference"`
	Note        *string      `json:"note,omitempty" db:"note"`
	BatchID     string       `json:"batchId" db:"batch_id"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
}

// Entry is the input for posting one movement.
type Entry struct {
	ArticleID int64
	Quantity  float64
	Reference string
	Note      string
	BatchID   string
}
