package shared

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FieldChange is a single before/after snapshot of an entity field.
type FieldChange struct {
	Entity   string
	EntityID string
	Field    string
	Before   string
	After    string
	At       time.Time
}

// ChangeTracker records field-level history for regenerated documents and
// payment-term changes. Best-effort: callers log failures and move on.
type ChangeTracker interface {
	Track(ctx context.Context, changes []FieldChange) error
}

// PGChangeTracker persists field changes into change_logs.
type PGChangeTracker struct {
	pool *pgxpool.Pool
}

func NewPGChangeTracker(pool *pgxpool.Pool) *PGChangeTracker {
	return &PGChangeTracker{pool: pool}
}

func (t *PGChangeTracker) Track(ctx context.Context, changes []FieldChange) error {
	for _, c := range changes {
		at := c.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		_, err := t.pool.Exec(ctx,
			`INSERT INTO change_logs (entity, entity_id, field, before, after, changed_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			c.Entity, c.EntityID, c.Field, c.Before, c.After, at)
		if err != nil {
			return err
		}
	}
	return nil
}
