package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-erp/comercio-erp/internal/platform/db"
	"github.com/comercio-erp/comercio-erp/internal/shared"
)

// Repository persists delivery notes in PostgreSQL.
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

// GetNote loads the note header with client name and lines.
func (r *Repository) GetNote(ctx context.Context, id int64) (*DeliveryNoteWithItems, error) {
	const query = `
		SELECT n.id, n.delivery_note_number, n.sales_order_id, n.client_id, n.transporter,
		       n.weight_kg, n.packages_count, n.declared_value, n.notes,
		       n.created_at, n.updated_at, n.deleted_at, c.business_name
		FROM delivery_notes n
		JOIN clients c ON c.id = n.client_id
		WHERE n.id = $1 AND n.deleted_at IS NULL`

	var out DeliveryNoteWithItems
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.NoteNumber, &out.SalesOrderID, &out.ClientID, &out.Transporter,
		&out.WeightKg, &out.PackagesCount, &out.DeclaredValue, &out.Notes,
		&out.CreatedAt, &out.UpdatedAt, &out.DeletedAt, &out.ClientName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: delivery note %d", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("delivery: get note: %w", err)
	}

	out.Items, err = r.noteItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repository) noteItems(ctx context.Context, noteID int64) ([]DeliveryNoteItem, error) {
	const query = `
		SELECT id, delivery_note_id, article_id, article_code, description, quantity
		FROM delivery_note_items
		WHERE delivery_note_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("delivery: list note items: %w", err)
	}
	defer rows.Close()

	var items []DeliveryNoteItem
	for rows.Next() {
		var it DeliveryNoteItem
		if err := rows.Scan(&it.ID, &it.DeliveryNoteID, &it.ArticleID, &it.ArticleCode, &it.Description, &it.Quantity); err != nil {
			return nil, fmt.Errorf("delivery: scan note item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListNotes returns notes with their lines, newest first.
func (r *Repository) ListNotes(ctx context.Context, req ListDeliveryNotesRequest) ([]DeliveryNoteWithItems, error) {
	query := `
		SELECT n.id, n.delivery_note_number, n.sales_order_id, n.client_id, n.transporter,
		       n.weight_kg, n.packages_count, n.declared_value, n.notes,
		       n.created_at, n.updated_at, n.deleted_at, c.business_name
		FROM delivery_notes n
		JOIN clients c ON c.id = n.client_id
		WHERE n.deleted_at IS NULL`

	args := []any{}
	idx := 1
	if req.ClientID > 0 {
		query += fmt.Sprintf(" AND n.client_id = $%d", idx)
		args = append(args, req.ClientID)
		idx++
	}
	if req.SalesOrderID > 0 {
		query += fmt.Sprintf(" AND n.sales_order_id = $%d", idx)
		args = append(args, req.SalesOrderID)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY n.created_at DESC, n.id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delivery: list notes: %w", err)
	}
	defer rows.Close()

	var out []DeliveryNoteWithItems
	for rows.Next() {
		var n DeliveryNoteWithItems
		if err := rows.Scan(&n.ID, &n.NoteNumber, &n.SalesOrderID, &n.ClientID, &n.Transporter,
			&n.WeightKg, &n.PackagesCount, &n.DeclaredValue, &n.Notes,
			&n.CreatedAt, &n.UpdatedAt, &n.DeletedAt, &n.ClientName); err != nil {
			return nil, fmt.Errorf("delivery: scan note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.noteItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// GetOrder reads the source sales order.
func (r *Repository) GetOrder(ctx context.Context, orderID int64) (*SourceOrder, error) {
	const query = `
		SELECT id, order_number, client_id, deleted_at
		FROM sales_orders
		WHERE id = $1 AND deleted_at IS NULL`

	var o SourceOrder
	err := r.pool.QueryRow(ctx, query, orderID).Scan(&o.ID, &o.OrderNumber, &o.ClientID, &o.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: sales order %d", shared.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("delivery: get order: %w", err)
	}
	return &o, nil
}

// GetOrderItems reads the source order lines.
func (r *Repository) GetOrderItems(ctx context.Context, orderID int64) ([]SourceOrderItem, error) {
	const query = `
		SELECT article_id, article_code, description, quantity
		FROM sales_order_items
		WHERE sales_order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("delivery: list order items: %w", err)
	}
	defer rows.Close()

	var items []SourceOrderItem
	for rows.Next() {
		var it SourceOrderItem
		if err := rows.Scan(&it.ArticleID, &it.ArticleCode, &it.Description, &it.Quantity); err != nil {
			return nil, fmt.Errorf("delivery: scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListOrderNotes returns every non-deleted note of an order.
func (r *Repository) ListOrderNotes(ctx context.Context, orderID int64) ([]DeliveryNote, error) {
	return listOrderNotes(ctx, r.pool, orderID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listOrderNotes(ctx context.Context, q querier, orderID int64) ([]DeliveryNote, error) {
	const query = `
		SELECT id, delivery_note_number, sales_order_id, client_id, transporter,
		       weight_kg, packages_count, declared_value, notes,
		       created_at, updated_at, deleted_at
		FROM delivery_notes
		WHERE sales_order_id = $1 AND deleted_at IS NULL
		ORDER BY id`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("delivery: list order notes: %w", err)
	}
	defer rows.Close()

	var out []DeliveryNote
	for rows.Next() {
		var n DeliveryNote
		if err := rows.Scan(&n.ID, &n.NoteNumber, &n.SalesOrderID, &n.ClientID, &n.Transporter,
			&n.WeightKg, &n.PackagesCount, &n.DeclaredValue, &n.Notes,
			&n.CreatedAt, &n.UpdatedAt, &n.DeletedAt); err != nil {
			return nil, fmt.Errorf("delivery: scan order note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) ListOrderNotes(ctx context.Context, orderID int64) ([]DeliveryNote, error) {
	return listOrderNotes(ctx, r.tx, orderID)
}

func (r *txRepo) InsertNote(ctx context.Context, n *DeliveryNote) (int64, error) {
	const query = `
		INSERT INTO delivery_notes (delivery_note_number, sales_order_id, client_id, transporter,
			weight_kg, packages_count, declared_value, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id int64
	err := r.tx.QueryRow(ctx, query,
		n.NoteNumber, n.SalesOrderID, n.ClientID, n.Transporter,
		n.WeightKg, n.PackagesCount, n.DeclaredValue, n.Notes, n.CreatedAt, n.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("delivery: insert note: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertNoteItems(ctx context.Context, noteID int64, items []DeliveryNoteItem) error {
	const query = `
		INSERT INTO delivery_note_items (delivery_note_id, article_id, article_code, description, quantity)
		VALUES ($1, $2, $3, $4, $5)`

	for _, it := range items {
		if _, err := r.tx.Exec(ctx, query, noteID, it.ArticleID, it.ArticleCode, it.Description, it.Quantity); err != nil {
			return fmt.Errorf("delivery: insert note item: %w", err)
		}
	}
	return nil
}

func (r *txRepo) SoftDeleteNote(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE delivery_notes SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at)
	if err != nil {
		return fmt.Errorf("delivery: soft delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: delivery note %d", shared.ErrNotFound, id)
	}
	return nil
}
