// Package numbering allocates day-scoped document numbers.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Scopes for the document series. Each scope counts independently per day.
const (
	ScopeSalesOrder   = "SO"
	ScopeInvoice      = "INV"
	ScopeDeliveryNote = "REM"
)

// Sequencer hands out the next sequence value for a scope and day. Values
// start at 1 and never repeat; a rolled-back caller leaves a gap. Numbers
// must be unique, not dense.
type Sequencer interface {
	NextSequence(ctx context.Context, scope string, day time.Time) (int64, error)
}

// Format renders a document number as PREFIX-YYYYMMDD-NNNN. Sequences above
// 9999 widen the suffix rather than wrap.
func Format(scope string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", scope, day.Format("20060102"), seq)
}

// PGSequencer implements Sequencer over a doc_counters table.
type PGSequencer struct {
	pool *pgxpool.Pool
}

// NewPGSequencer returns a Sequencer backed by PostgreSQL.
func NewPGSequencer(pool *pgxpool.Pool) *PGSequencer {
	return &PGSequencer{pool: pool}
}

// NextSequence atomically increments the per-scope per-day counter. The
// upsert makes concurrent allocations serialize on the counter row, so two
// requests can never observe the same value.
func (s *PGSequencer) NextSequence(ctx context.Context, scope string, day time.Time) (int64, error) {
	const query = `
		INSERT INTO doc_counters (scope, day, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (scope, day)
		DO UPDATE SET value = doc_counters.value + 1
		RETURNING value`

	var value int64
	if err := s.pool.QueryRow(ctx, query, scope, day.Format("2006-01-02")).Scan(&value); err != nil {
		return 0, fmt.Errorf("numbering: next sequence %s: %w", scope, err)
	}
	return value, nil
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. Used as a belt on document-number inserts.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
