package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-erp/comercio-erp/internal/shared"
)

// Repository reads the movement journal.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const movementColumns = `id, article_id, movement_type, quantity, stock_before, stock_after, reference, note, batch_id, created_at`

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ArticleID, &m.Type, &m.Quantity, &m.StockBefore, &m.StockAfter, &m.Reference, &m.Note, &m.BatchID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("inventory: scan movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListByArticle returns the newest movements for an article.
func (r *Repository) ListByArticle(ctx context.Context, articleID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+movementColumns+` FROM stock_movements WHERE article_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		articleID, limit)
	if err != nil {
		return nil, fmt.Errorf("inventory: list by article: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ListByReference returns movements whose reference contains the given text,
// newest first. Document handlers use this to show a document's stock trail.
func (r *Repository) ListByReference(ctx context.Context, reference string) ([]Movement, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", shared.ErrValidation)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+movementColumns+` FROM stock_movements WHERE reference ILIKE '%' || $1 || '%' ORDER BY created_at DESC, id DESC`,
		reference)
	if err != nil {
		return nil, fmt.Errorf("inventory: list by reference: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// TxStore adapts a pgx transaction to the MovementStore interface.
type TxStore struct {
	tx pgx.Tx
}

// NewTxStore wraps tx for ledger posting.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{tx: tx}
}

func (s *TxStore) GetArticleStockForUpdate(ctx context.Context, articleID int64) (float64, error) {
	var stock float64
	err := s.tx.QueryRow(ctx,
		`SELECT stock FROM articles WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`,
		articleID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: article %d", shared.ErrNotFound, articleID)
		}
		return 0, fmt.Errorf("inventory: lock article stock: %w", err)
	}
	return stock, nil
}

func (s *TxStore) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx,
		`INSERT INTO stock_movements (article_id, movement_type, quantity, stock_before, stock_after, reference, note, batch_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		m.ArticleID, string(m.Type), m.Quantity, m.StockBefore, m.StockAfter, m.Reference, m.Note, m.BatchID, m.CreatedAt).Scan(&id)
	return id, err
}

func (s *TxStore) SetArticleStock(ctx context.Context, articleID int64, stock float64) error {
	tag, err := s.tx.Exec(ctx,
		`UPDATE articles SET stock = $2 WHERE id = $1 AND deleted_at IS NULL`,
		articleID, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: article %d", shared.ErrNotFound, articleID)
	}
	return nil
}
