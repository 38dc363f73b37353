package inventory

import (
	"context"
	"fmt"

	"github.com/comercio-erp/comercio-erp/internal/shared"
)

// MovementStore is the transactional surface the ledger posts through. The
// document repositories hand the ledger a tx-scoped implementation so a
// movement always commits with the document change that caused it.
type MovementStore interface {
	GetArticleStockForUpdate(ctx context.Context, articleID int64) (float64, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	SetArticleStock(ctx context.Context, articleID int64, stock float64) error
}

// Ledger posts stock movements. Negative resulting stock is allowed: goods
// often ship before purchases are recorded.
type Ledger struct {
	clock shared.Clock
}

// NewLedger constructs Ledger.
func NewLedger(clock shared.Clock) *Ledger {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Ledger{clock: clock}
}

// Debit removes quantity from stock and journals the movement.
func (l *Ledger) Debit(ctx context.Context, store MovementStore, e Entry) (*Movement, error) {
	return l.post(ctx, store, MovementDebit, e)
}

// Credit returns quantity to stock and journals the movement.
func (l *Ledger) Credit(ctx context.Context, store MovementStore, e Entry) (*Movement, error) {
	return l.post(ctx, store, MovementCredit, e)
}

func (l *Ledger) post(ctx context.Context, store MovementStore, mt MovementType, e Entry) (*Movement, error) {
	if e.Quantity <= 0 {
		return nil, fmt.Errorf("%w: movement quantity must be positive", shared.ErrValidation)
	}
	if e.Reference == "" {
		return nil, fmt.Errorf("%w: movement reference is required", shared.ErrValidation)
	}

	before, err := store.GetArticleStockForUpdate(ctx, e.ArticleID)
	if err != nil {
		return nil, err
	}

	after := before - e.Quantity
	if mt == MovementCredit {
		after = before + e.Quantity
	}

	m := Movement{
		ArticleID:   e.ArticleID,
		Type:        mt,
		Quantity:    e.Quantity,
		StockBefore: before,
		StockAfter:  after,
		Reference:   e.Reference,
		BatchID:     e.BatchID,
		CreatedAt:   l.clock(),
	}
	if e.Note != "" {
		note := e.Note
		m.Note = &note
	}

	id, err := store.InsertMovement(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("inventory: insert movement: %w", err)
	}
	m.ID = id

	if err := store.SetArticleStock(ctx, e.ArticleID, after); err != nil {
		return nil, fmt.Errorf("inventory: set article stock: %w", err)
	}
	return &m, nil
}
