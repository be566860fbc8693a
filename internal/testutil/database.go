// Package testutil provides shared setup helpers for tests that need a
// real ledger database or deterministic test data.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/irishask/financial-ai-agent/internal/model"
	"github.com/irishask/financial-ai-agent/internal/storage"
)

// SetupTestDB creates an in-memory ledger database with migrations applied
// and registers cleanup with the test.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "failed to create test database")

	require.NoError(t, store.Migrate(context.Background()), "failed to migrate test database")

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// LedgerBuilder accumulates transaction records for a test fixture with
// sensible defaults so each case only states what it cares about.
type LedgerBuilder struct {
	records []model.TransactionRecord
	nextID  int
}

// NewLedgerBuilder returns an empty builder.
func NewLedgerBuilder() *LedgerBuilder {
	return &LedgerBuilder{nextID: 1}
}

// Add appends one record, filling defaults for everything opts leaves zero.
func (b *LedgerBuilder) Add(opts model.TransactionRecord) *LedgerBuilder {
	if opts.TransactionID == "" {
		opts.TransactionID = fmt.Sprintf("TRN_%03d", b.nextID)
	}
	b.nextID++
	if opts.UserID == "" {
		opts.UserID = "USER_001"
	}
	if opts.AccountID == "" {
		opts.AccountID = "ACC_1"
	}
	if opts.Direction == "" {
		opts.Direction = model.DirectionDebit
	}
	if opts.Date.IsZero() {
		opts.Date = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.Month == 0 {
		opts.Month = int(opts.Date.Month())
	}
	if opts.Year == 0 {
		opts.Year = opts.Date.Year()
	}
	b.records = append(b.records, opts)
	return b
}

// Build returns the accumulated records.
func (b *LedgerBuilder) Build() []model.TransactionRecord {
	return b.records
}
