package billing

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

// Repository persists invoices in PostgreSQL.
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

const invoiceColumns = `id, invoice_number, sales_order_id, client_id, payment_term_id, exchange_rate,
	subtotal_usd, discount_usd, taxable_usd, tax_usd, total_usd, total_local,
	is_printed, printed_at, is_cancelled, cancelled_at, created_at, updated_at, deleted_at`

func scanInvoice(row pgx.Row, inv *Invoice) error {
	return row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.SalesOrderID, &inv.ClientID, &inv.PaymentTermID, &inv.ExchangeRate,
		&inv.SubtotalUSD, &inv.DiscountUSD, &inv.TaxableUSD, &inv.TaxUSD, &inv.TotalUSD, &inv.TotalLocal,
		&inv.IsPrinted, &inv.PrintedAt, &inv.IsCancelled, &inv.CancelledAt, &inv.CreatedAt, &inv.UpdatedAt, &inv.DeletedAt,
	)
}

// GetInvoice loads the invoice header with client name and lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (*InvoiceWithItems, error) {
	const query = `
		SELECT i.id, i.invoice_number, i.sales_order_id, i.client_id, i.payment_term_id, i.exchange_rate,
		       i.subtotal_usd, i.discount_usd, i.taxable_usd, i.tax_usd, i.total_usd, i.total_local,
		       i.is_printed, i.printed_at, i.is_cancelled, i.cancelled_at, i.created_at, i.updated_at, i.deleted_at,
		       c.business_name
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.id = $1 AND i.deleted_at IS NULL`

	var out InvoiceWithItems
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.InvoiceNumber, &out.SalesOrderID, &out.ClientID, &out.PaymentTermID, &out.ExchangeRate,
		&out.SubtotalUSD, &out.DiscountUSD, &out.TaxableUSD, &out.TaxUSD, &out.TotalUSD, &out.TotalLocal,
		&out.IsPrinted, &out.PrintedAt, &out.IsCancelled, &out.CancelledAt, &out.CreatedAt, &out.UpdatedAt, &out.DeletedAt,
		&out.ClientName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("billing: get invoice: %w", err)
	}

	out.Items, err = invoiceItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func invoiceItems(ctx context.Context, q querier, invoiceID int64) ([]InvoiceItem, error) {
	const query = `
		SELECT id, invoice_id, article_id, article_code, description, quantity,
		       unit_price_usd, discount_pct, line_subtotal_usd, unit_price_local, line_subtotal_local
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id`

	rows, err := q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("billing: list invoice items: %w", err)
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ArticleID, &it.ArticleCode, &it.Description, &it.Quantity,
			&it.UnitPriceUSD, &it.DiscountPct, &it.LineSubtotalUSD, &it.UnitPriceLocal, &it.LineSubtotalLocal); err != nil {
			return nil, fmt.Errorf("billing: scan invoice item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListInvoices returns invoice summaries, newest first.
func (r *Repository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]InvoiceSummary, error) {
	query := `
		SELECT i.id, i.invoice_number, i.sales_order_id, i.client_id, i.payment_term_id, i.exchange_rate,
		       i.subtotal_usd, i.discount_usd, i.taxable_usd, i.tax_usd, i.total_usd, i.total_local,
		       i.is_printed, i.printed_at, i.is_cancelled, i.cancelled_at, i.created_at, i.updated_at, i.deleted_at,
		       c.business_name,
		       (SELECT COUNT(*) FROM invoice_items x WHERE x.invoice_id = i.id)
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.deleted_at IS NULL`

	args := []any{}
	idx := 1
	if req.ClientID > 0 {
		query += fmt.Sprintf(" AND i.client_id = $%d", idx)
		args = append(args, req.ClientID)
		idx++
	}
	if req.SalesOrderID > 0 {
		query += fmt.Sprintf(" AND i.sales_order_id = $%d", idx)
		args = append(args, req.SalesOrderID)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY i.created_at DESC, i.id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("billing: list invoices: %w", err)
	}
	defer rows.Close()

	var out []InvoiceSummary
	for rows.Next() {
		var s InvoiceSummary
		if err := rows.Scan(
			&s.ID, &s.InvoiceNumber, &s.SalesOrderID, &s.ClientID, &s.PaymentTermID, &s.ExchangeRate,
			&s.SubtotalUSD, &s.DiscountUSD, &s.TaxableUSD, &s.TaxUSD, &s.TotalUSD, &s.TotalLocal,
			&s.IsPrinted, &s.PrintedAt, &s.IsCancelled, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
			&s.ClientName, &s.ItemCount); err != nil {
			return nil, fmt.Errorf("billing: scan invoice summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetOrder reads the source sales order.
func (r *Repository) GetOrder(ctx context.Context, orderID int64) (*SourceOrder, error) {
	const query = `
		SELECT id, order_number, client_id, status, payment_term_id, deleted_at
		FROM sales_orders
		WHERE id = $1 AND deleted_at IS NULL`

	var o SourceOrder
	err := r.pool.QueryRow(ctx, query, orderID).Scan(&o.ID, &o.OrderNumber, &o.ClientID, &o.Status, &o.PaymentTermID, &o.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: sales order %d", shared.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("billing: get order: %w", err)
	}
	return &o, nil
}

// GetOrderItems reads the source order lines.
func (r *Repository) GetOrderItems(ctx context.Context, orderID int64) ([]SourceOrderItem, error) {
	const query = `
		SELECT article_id, article_code, description, quantity, unit_price
		FROM sales_order_items
		WHERE sales_order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("billing: list order items: %w", err)
	}
	defer rows.Close()

	var items []SourceOrderItem
	for rows.Next() {
		var it SourceOrderItem
		if err := rows.Scan(&it.ArticleID, &it.ArticleCode, &it.Description, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("billing: scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListOrderInvoices returns every non-deleted invoice of an order.
func (r *Repository) ListOrderInvoices(ctx context.Context, orderID int64) ([]Invoice, error) {
	return listOrderInvoices(ctx, r.pool, orderID)
}

func listOrderInvoices(ctx context.Context, q querier, orderID int64) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE sales_order_id = $1 AND deleted_at IS NULL ORDER BY id`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("billing: list order invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, fmt.Errorf("billing: scan invoice: %w", err)
		}
		out = append(out, inv)
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

func (r *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	var inv Invoice
	if err := scanInvoice(r.tx.QueryRow(ctx, query, id), &inv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("billing: lock invoice: %w", err)
	}
	return &inv, nil
}

func (r *txRepo) GetInvoiceItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return invoiceItems(ctx, r.tx, invoiceID)
}

func (r *txRepo) ListOrderInvoices(ctx context.Context, orderID int64) ([]Invoice, error) {
	return listOrderInvoices(ctx, r.tx, orderID)
}

func (r *txRepo) InsertInvoice(ctx context.Context, inv *Invoice) (int64, error) {
	const query = `
		INSERT INTO invoices (invoice_number, sales_order_id, client_id, payment_term_id, exchange_rate,
			subtotal_usd, discount_usd, taxable_usd, tax_usd, total_usd, total_local,
			is_printed, is_cancelled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE, FALSE, $12, $13)
		RETURNING id`

	var id int64
	err := r.tx.QueryRow(ctx, query,
		inv.InvoiceNumber, inv.SalesOrderID, inv.ClientID, inv.PaymentTermID, inv.ExchangeRate,
		inv.SubtotalUSD, inv.DiscountUSD, inv.TaxableUSD, inv.TaxUSD, inv.TotalUSD, inv.TotalLocal,
		inv.CreatedAt, inv.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("billing: insert invoice: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	const query = `
		INSERT INTO invoice_items (invoice_id, article_id, article_code, description, quantity,
			unit_price_usd, discount_pct, line_subtotal_usd, unit_price_local, line_subtotal_local)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, it := range items {
		if _, err := r.tx.Exec(ctx, query,
			invoiceID, it.ArticleID, it.ArticleCode, it.Description, it.Quantity,
			it.UnitPriceUSD, it.DiscountPct, it.LineSubtotalUSD, it.UnitPriceLocal, it.LineSubtotalLocal); err != nil {
			return fmt.Errorf("billing: insert invoice item: %w", err)
		}
	}
	return nil
}

func (r *txRepo) ReplaceInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("billing: clear invoice items: %w", err)
	}
	return r.InsertInvoiceItems(ctx, invoiceID, items)
}

func (r *txRepo) UpdateItemDiscount(ctx context.Context, invoiceID, itemID int64, discountPct, lineSubtotalUSD, lineSubtotalLocal float64) error {
	const query = `
		UPDATE invoice_items
		SET discount_pct = $3, line_subtotal_usd = $4, line_subtotal_local = $5
		WHERE id = $2 AND invoice_id = $1`

	tag, err := r.tx.Exec(ctx, query, invoiceID, itemID, discountPct, lineSubtotalUSD, lineSubtotalLocal)
	if err != nil {
		return fmt.Errorf("billing: update item discount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice item %d", shared.ErrNotFound, itemID)
	}
	return nil
}

func (r *txRepo) UpdateInvoiceAmounts(ctx context.Context, inv *Invoice) error {
	const query = `
		UPDATE invoices
		SET payment_term_id = $2, exchange_rate = $3, subtotal_usd = $4, discount_usd = $5,
		    taxable_usd = $6, tax_usd = $7, total_usd = $8, total_local = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL AND is_printed = FALSE AND is_cancelled = FALSE`

	tag, err := r.tx.Exec(ctx, query, inv.ID, inv.PaymentTermID, inv.ExchangeRate,
		inv.SubtotalUSD, inv.DiscountUSD, inv.TaxableUSD, inv.TaxUSD, inv.TotalUSD, inv.TotalLocal, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("billing: update invoice amounts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d is not editable", shared.ErrInvalidState, inv.ID)
	}
	return nil
}

func (r *txRepo) MarkPrinted(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE invoices SET is_printed = TRUE, printed_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL AND is_printed = FALSE AND is_cancelled = FALSE`,
		id, at)
	if err != nil {
		return fmt.Errorf("billing: mark printed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d cannot be printed", shared.ErrInvalidState, id)
	}
	return nil
}

func (r *txRepo) MarkCancelled(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE invoices SET is_cancelled = TRUE, cancelled_at = $2, updated_at = $2
		 WHERE id = $1 AND deleted_at IS NULL AND is_cancelled = FALSE`,
		id, at)
	if err != nil {
		return fmt.Errorf("billing: mark cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d cannot be cancelled", shared.ErrInvalidState, id)
	}
	return nil
}

func (r *txRepo) SoftDeleteInvoice(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE invoices SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at)
	if err != nil {
		return fmt.Errorf("billing: soft delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *txRepo) SetOrderStatus(ctx context.Context, orderID int64, status string, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE sales_orders SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
		orderID, status, at)
	if err != nil {
		return fmt.Errorf("billing: set order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sales order %d", shared.ErrNotFound, orderID)
	}
	return nil
}

func (r *txRepo) UpdateClientPaymentTerm(ctx context.Context, clientID, paymentTermID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE clients SET payment_term_id = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
		clientID, paymentTermID, at)
	if err != nil {
		return fmt.Errorf("billing: update client payment term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: client %d", shared.ErrNotFound, clientID)
	}
	return nil
}
