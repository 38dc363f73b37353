package numbering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	day := time.Date(2025, 1, 7, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, "SO-20250107-0001", Format(ScopeSalesOrder, day, 1))
	assert.Equal(t, "INV-20250107-0042", Format(ScopeInvoice, day, 42))
	assert.Equal(t, "REM-20250107-9999", Format(ScopeDeliveryNote, day, 9999))
}

func TestFormatWidensBeyondFourDigits(t *testing.T) {
	day := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SO-20250107-10000", Format(ScopeSalesOrder, day, 10000))
}

func TestFormatScopesAreIndependentSeries(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// the same sequence value is legal in different scopes on the same day
	assert.NotEqual(t,
		Format(ScopeSalesOrder, day, 3),
		Format(ScopeInvoice, day, 3),
	)
}
