package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-erp/comercio-erp/internal/inventory"
	"github.com/comercio-erp/comercio-erp/internal/platform/db"
	"github.com/comercio-erp/comercio-erp/internal/shared"
)

// Repository persists sales orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a transactional repository view.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetOrder loads the order header, lines and dependent documents.
func (r *Repository) GetOrder(ctx context.Context, id int64) (*SalesOrderWithDetails, error) {
	const query = `
		SELECT o.id, o.order_number, o.client_id, o.status, o.payment_term_id,
		       o.special_discount_pct, o.total, o.notes, o.created_at, o.updated_at, o.deleted_at,
		       c.business_name
		FROM sales_orders o
		JOIN clients c ON c.id = o.client_id
		WHERE o.id = $1 AND o.deleted_at IS NULL`

	var out SalesOrderWithDetails
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.OrderNumber, &out.ClientID, &out.Status, &out.PaymentTermID,
		&out.SpecialDiscountPct, &out.Total, &out.Notes, &out.CreatedAt, &out.UpdatedAt, &out.DeletedAt,
		&out.ClientName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: sales order %d", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("sales: get order: %w", err)
	}

	if out.Items, err = r.orderItems(ctx, id); err != nil {
		return nil, err
	}
	if out.Invoices, err = r.orderInvoices(ctx, id); err != nil {
		return nil, err
	}
	if out.DeliveryNotes, err = r.orderDeliveryNotes(ctx, id); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repository) orderItems(ctx context.Context, orderID int64) ([]SalesOrderItem, error) {
	const query = `
		SELECT id, sales_order_id, article_id, article_code, description,
		       quantity, unit_price, discount_pct, line_total
		FROM sales_order_items
		WHERE sales_order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("sales: list order items: %w", err)
	}
	defer rows.Close()

	var items []SalesOrderItem
	for rows.Next() {
		var it SalesOrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ArticleID, &it.ArticleCode, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.DiscountPct, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("sales: scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) orderInvoices(ctx context.Context, orderID int64) ([]OrderInvoice, error) {
	const query = `
		SELECT id, invoice_number, payment_term_id, exchange_rate,
		       is_printed, is_cancelled, deleted_at
		FROM invoices
		WHERE sales_order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("sales: list order invoices: %w", err)
	}
	defer rows.Close()

	var invoices []OrderInvoice
	for rows.Next() {
		var inv OrderInvoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.PaymentTermID, &inv.ExchangeRate,
			&inv.IsPrinted, &inv.IsCancelled, &inv.DeletedAt); err != nil {
			return nil, fmt.Errorf("sales: scan order invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *Repository) orderDeliveryNotes(ctx context.Context, orderID int64) ([]OrderDeliveryNote, error) {
	const query = `
		SELECT id, delivery_note_number, deleted_at
		FROM delivery_notes
		WHERE sales_order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("sales: list order delivery notes: %w", err)
	}
	defer rows.Close()

	var notes []OrderDeliveryNote
	for rows.Next() {
		var n OrderDeliveryNote
		if err := rows.Scan(&n.ID, &n.NoteNumber, &n.DeletedAt); err != nil {
			return nil, fmt.Errorf("sales: scan order delivery note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// ListOrders returns order summaries, newest first.
func (r *Repository) ListOrders(ctx context.Context, req ListOrdersRequest) ([]SalesOrderSummary, error) {
	query := `
		SELECT o.id, o.order_number, o.client_id, o.status, o.payment_term_id,
		       o.special_discount_pct, o.total, o.notes, o.created_at, o.updated_at, o.deleted_at,
		       c.business_name,
		       (SELECT COUNT(*) FROM sales_order_items i WHERE i.sales_order_id = o.id)
		FROM sales_orders o
		JOIN clients c ON c.id = o.client_id
		WHERE o.deleted_at IS NULL`

	args := []any{}
	idx := 1
	if req.Status != "" {
		query += fmt.Sprintf(" AND o.status = $%d", idx)
		args = append(args, string(req.Status))
		idx++
	}
	if req.ClientID > 0 {
		query += fmt.Sprintf(" AND o.client_id = $%d", idx)
		args = append(args, req.ClientID)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: list orders: %w", err)
	}
	defer rows.Close()

	var out []SalesOrderSummary
	for rows.Next() {
		var s SalesOrderSummary
		if err := rows.Scan(&s.ID, &s.OrderNumber, &s.ClientID, &s.Status, &s.PaymentTermID,
			&s.SpecialDiscountPct, &s.Total, &s.Notes, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
			&s.ClientName, &s.ItemCount); err != nil {
			return nil, fmt.Errorf("sales: scan order summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ============================================================
// TRANSACTIONAL REPOSITORY
// ============================================================

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) Stock() inventory.MovementStore {
	return inventory.NewTxStore(r.tx)
}

func (r *txRepo) InsertOrder(ctx context.Context, o *SalesOrder) (int64, error) {
	const query = `
		INSERT INTO sales_orders (order_number, client_id, status, payment_term_id, special_discount_pct, total, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var id int64
	err := r.tx.QueryRow(ctx, query,
		o.OrderNumber, o.ClientID, string(o.Status), o.PaymentTermID, o.SpecialDiscountPct, o.Total, o.Notes, o.CreatedAt, o.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sales: insert order: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertOrderItems(ctx context.Context, orderID int64, items []SalesOrderItem) error {
	const query = `
		INSERT INTO sales_order_items (sales_order_id, article_id, article_code, description, quantity, unit_price, discount_pct, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, it := range items {
		if _, err := r.tx.Exec(ctx, query,
			orderID, it.ArticleID, it.ArticleCode, it.Description, it.Quantity, it.UnitPrice, it.DiscountPct, it.LineTotal); err != nil {
			return fmt.Errorf("sales: insert order item: %w", err)
		}
	}
	return nil
}

func (r *txRepo) UpdateOrderHeader(ctx context.Context, o *SalesOrder) error {
	const query = `
		UPDATE sales_orders
		SET client_id = $2, status = $3, payment_term_id = $4, special_discount_pct = $5, total = $6, notes = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.tx.Exec(ctx, query, o.ID, o.ClientID, string(o.Status), o.PaymentTermID, o.SpecialDiscountPct, o.Total, o.Notes, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sales: update order header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sales order %d", shared.ErrNotFound, o.ID)
	}
	return nil
}

func (r *txRepo) DeleteOrderItems(ctx context.Context, orderID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM sales_order_items WHERE sales_order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("sales: delete order items: %w", err)
	}
	return nil
}

func (r *txRepo) SoftDeleteOrder(ctx context.Context, orderID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE sales_orders SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		orderID, at)
	if err != nil {
		return fmt.Errorf("sales: soft delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sales order %d", shared.ErrNotFound, orderID)
	}
	return nil
}

func (r *txRepo) GetInvoiceItems(ctx context.Context, invoiceID int64) ([]OrderInvoiceItem, error) {
	const query = `
		SELECT id, invoice_id, article_id, article_code, description, quantity,
		       unit_price_usd, discount_pct, line_subtotal_usd, unit_price_local, line_subtotal_local
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id`

	rows, err := r.tx.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("sales: get invoice items: %w", err)
	}
	defer rows.Close()

	var items []OrderInvoiceItem
	for rows.Next() {
		var it OrderInvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ArticleID, &it.ArticleCode, &it.Description, &it.Quantity,
			&it.UnitPriceUSD, &it.DiscountPct, &it.LineSubtotalUSD, &it.UnitPriceLocal, &it.LineSubtotalLocal); err != nil {
			return nil, fmt.Errorf("sales: scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *txRepo) ReplaceInvoiceItems(ctx context.Context, invoiceID int64, items []OrderInvoiceItem) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("sales: clear invoice items: %w", err)
	}
	const query = `
		INSERT INTO invoice_items (invoice_id, article_id, article_code, description, quantity,
		       unit_price_usd, discount_pct, line_subtotal_usd, unit_price_local, line_subtotal_local)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, it := range items {
		if _, err := r.tx.Exec(ctx, query,
			invoiceID, it.ArticleID, it.ArticleCode, it.Description, it.Quantity,
			it.UnitPriceUSD, it.DiscountPct, it.LineSubtotalUSD, it.UnitPriceLocal, it.LineSubtotalLocal); err != nil {
			return fmt.Errorf("sales: insert invoice item: %w", err)
		}
	}
	return nil
}

func (r *txRepo) UpdateInvoiceTotals(ctx context.Context, invoiceID int64, t OrderInvoiceTotals, at time.Time) error {
	const query = `
		UPDATE invoices
		SET subtotal_usd = $2, discount_usd = $3, taxable_usd = $4, tax_usd = $5,
		    total_usd = $6, total_local = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.tx.Exec(ctx, query, invoiceID, t.SubtotalUSD, t.DiscountUSD, t.TaxableUSD, t.TaxUSD, t.TotalUSD, t.TotalLocal, at)
	if err != nil {
		return fmt.Errorf("sales: update invoice totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	return nil
}

func (r *txRepo) MarkInvoiceCancelled(ctx context.Context, invoiceID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE invoices SET is_cancelled = TRUE, cancelled_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL AND is_cancelled = FALSE`,
		invoiceID, at)
	if err != nil {
		return fmt.Errorf("sales: cancel invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d cannot be cancelled", shared.ErrInvalidState, invoiceID)
	}
	return nil
}

func (r *txRepo) SoftDeleteInvoice(ctx context.Context, invoiceID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE invoices SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		invoiceID, at)
	if err != nil {
		return fmt.Errorf("sales: soft delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	return nil
}

func (r *txRepo) ReplaceDeliveryNoteItems(ctx context.Context, noteID int64, items []OrderDeliveryNoteItem, at time.Time) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM delivery_note_items WHERE delivery_note_id = $1`, noteID); err != nil {
		return fmt.Errorf("sales: clear delivery note items: %w", err)
	}
	const query = `
		INSERT INTO delivery_note_items (delivery_note_id, article_id, article_code, description, quantity)
		VALUES ($1, $2, $3, $4, $5)`

	for _, it := range items {
		if _, err := r.tx.Exec(ctx, query, noteID, it.ArticleID, it.ArticleCode, it.Description, it.Quantity); err != nil {
			return fmt.Errorf("sales: insert delivery note item: %w", err)
		}
	}
	if _, err := r.tx.Exec(ctx, `UPDATE delivery_notes SET updated_at = $2 WHERE id = $1`, noteID, at); err != nil {
		return fmt.Errorf("sales: touch delivery note: %w", err)
	}
	return nil
}

func (r *txRepo) SoftDeleteDeliveryNote(ctx context.Context, noteID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE delivery_notes SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		noteID, at)
	if err != nil {
		return fmt.Errorf("sales: soft delete delivery note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: delivery note %d", shared.ErrNotFound, noteID)
	}
	return nil
}
