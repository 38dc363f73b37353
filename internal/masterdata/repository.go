package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comercio-erp/comercio-erp/internal/pricing"
	"github.com/comercio-erp/comercio-erp/internal/shared"
)

// Repository reads reference data from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetArticle returns a live article by id.
func (r *Repository) GetArticle(ctx context.Context, id int64) (*Article, error) {
	const query = `
		SELECT id, code, description, stock, category_id, deleted_at
		FROM articles
		WHERE id = $1 AND deleted_at IS NULL`

	var a Article
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Code, &a.Description, &a.Stock, &a.CategoryID, &a.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: article %d", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("masterdata: get article: %w", err)
	}
	return &a, nil
}

// GetArticles returns the live articles for the given ids, keyed by id.
func (r *Repository) GetArticles(ctx context.Context, ids []int64) (map[int64]Article, error) {
	const query = `
		SELECT id, code, description, stock, category_id, deleted_at
		FROM articles
		WHERE id = ANY($1) AND deleted_at IS NULL`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("masterdata: get articles: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]Article, len(ids))
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Code, &a.Description, &a.Stock, &a.CategoryID, &a.DeletedAt); err != nil {
			return nil, fmt.Errorf("masterdata: scan article: %w", err)
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// GetClient returns a live client by id.
func (r *Repository) GetClient(ctx context.Context, id int64) (*Client, error) {
	const query = `
		SELECT id, business_name, address, tax_id, payment_term_id, transporter, deleted_at
		FROM clients
		WHERE id = $1 AND deleted_at IS NULL`

	var c Client
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.BusinessName, &c.Address, &c.TaxID, &c.PaymentTermID, &c.Transporter, &c.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("masterdata: get client: %w", err)
	}
	return &c, nil
}

// GetPaymentTerm returns a payment term by id.
func (r *Repository) GetPaymentTerm(ctx context.Context, id int64) (*PaymentTerm, error) {
	const query = `SELECT id, name FROM payment_terms WHERE id = $1`

	var p PaymentTerm
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: payment term %d", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("masterdata: get payment term: %w", err)
	}
	return &p, nil
}

// LoadDiscountData returns every negotiated category/payment-term discount
// plus the category defaults, ready to seed a pricing.DiscountResolver.
func (r *Repository) LoadDiscountData(ctx context.Context) ([]pricing.DiscountRule, []pricing.CategoryDefault, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category_id, payment_term_id, discount_pct FROM category_payment_discounts`)
	if err != nil {
		return nil, nil, fmt.Errorf("masterdata: load discount rules: %w", err)
	}
	defer rows.Close()

	var rules []pricing.DiscountRule
	for rows.Next() {
		var rule pricing.DiscountRule
		if err := rows.Scan(&rule.CategoryID, &rule.PaymentTermID, &rule.DiscountPct); err != nil {
			return nil, nil, fmt.Errorf("masterdata: scan discount rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	catRows, err := r.pool.Query(ctx, `SELECT id, default_discount_pct FROM categories`)
	if err != nil {
		return nil, nil, fmt.Errorf("masterdata: load category defaults: %w", err)
	}
	defer catRows.Close()

	var defaults []pricing.CategoryDefault
	for catRows.Next() {
		var d pricing.CategoryDefault
		if err := catRows.Scan(&d.CategoryID, &d.DiscountPct); err != nil {
			return nil, nil, fmt.Errorf("masterdata: scan category default: %w", err)
		}
		defaults = append(defaults, d)
	}
	return rules, defaults, catRows.Err()
}

// GetSettings returns the system settings row, falling back to defaults when
// the row has never been written.
func (r *Repository) GetSettings(ctx context.Context) (*Settings, error) {
	const query = `SELECT id, usd_exchange_rate FROM system_settings WHERE id = 1`

	var s Settings
	err := r.pool.QueryRow(ctx, query).Scan(&s.ID, &s.USDExchangeRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Settings{ID: 1, USDExchangeRate: pricing.DefaultExchangeRate}, nil
		}
		return nil, fmt.Errorf("masterdata: get settings: %w", err)
	}
	return &s, nil
}
