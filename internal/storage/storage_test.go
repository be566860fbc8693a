package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irishask/financial-ai-agent/internal/model"
	"github.com/irishask/financial-ai-agent/internal/storage"
	"github.com/irishask/financial-ai-agent/internal/testutil"
)

func TestSaveAndSnapshotRoundtrip(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	records := testutil.NewLedgerBuilder().
		Add(model.TransactionRecord{
			Amount:          45.50,
			Date:            time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			CategoryGroupID: "CG800",
			CategoryName:    "Dining",
			SubCategoryID:   "C803",
			SubCategoryName: "Restaurants",
		}).
		Add(model.TransactionRecord{
			Amount:    2000.00,
			Direction: model.DirectionCredit,
			Date:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			AccountID: "ACC_2",
		}).
		Build()

	require.NoError(t, store.SaveTransactions(ctx, records))

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	// Snapshot is ordered by date.
	assert.Equal(t, model.DirectionCredit, snapshot[0].Direction)
	assert.Equal(t, "CG800", snapshot[1].CategoryGroupID)
	assert.Equal(t, "Restaurants", snapshot[1].SubCategoryName)
	assert.Equal(t, 45.50, snapshot[1].Amount)
	assert.Equal(t, 3, snapshot[1].Month)
	assert.Equal(t, 2025, snapshot[1].Year)
}

func TestSaveTransactionsUpsertsByID(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	first := testutil.NewLedgerBuilder().
		Add(model.TransactionRecord{TransactionID: "TRN_X", Amount: 10}).
		Build()
	require.NoError(t, store.SaveTransactions(ctx, first))

	second := testutil.NewLedgerBuilder().
		Add(model.TransactionRecord{TransactionID: "TRN_X", Amount: 25}).
		Build()
	require.NoError(t, store.SaveTransactions(ctx, second))

	count, err := store.TransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, 25.0, snapshot[0].Amount)
}

func TestImportCSV(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	csvData := `transaction_id,user_id,account_id,account_type,amount,direction,date,categoryGroupId,categoryName,subCategoryId,subCategoryName
TRN_001,USER_001,ACC_1,checking,45.50,D,05/03/2025,CG800,Dining,C803,Restaurants
TRN_002,USER_001,ACC_1,checking,2000.00,C,01/03/2025,,,,
`
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o600))

	count, err := store.ImportCSV(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	// Dates are day-first.
	assert.WithinDuration(t, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), snapshot[1].Date, 0)
	assert.Equal(t, "C803", snapshot[1].SubCategoryID)
	// Month and year derive from the date when absent.
	assert.Equal(t, 3, snapshot[0].Month)
	assert.Equal(t, 2025, snapshot[0].Year)
}

func TestImportCSVMissingColumn(t *testing.T) {
	store := testutil.SetupTestDB(t)

	csvData := `transaction_id,user_id,amount,direction,date
TRN_001,USER_001,45.50,D,05/03/2025
`
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o600))

	_, err := store.ImportCSV(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInvalidImportFile)
}

func TestImportCSVBadDate(t *testing.T) {
	store := testutil.SetupTestDB(t)

	csvData := `transaction_id,user_id,account_id,amount,direction,date
TRN_001,USER_001,ACC_1,45.50,D,2025-03-05
`
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0o600))

	_, err := store.ImportCSV(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInvalidImportFile)
}

func TestSaveTransactionsRejectsInvalidDirection(t *testing.T) {
	store := testutil.SetupTestDB(t)

	records := []model.TransactionRecord{{
		TransactionID: "TRN_001",
		UserID:        "USER_001",
		AccountID:     "ACC_1",
		Amount:        10,
		Direction:     "X",
		Date:          time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}}

	err := store.SaveTransactions(context.Background(), records)
	assert.Error(t, err)
}
