package queryengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/model"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func testLedger() []model.TransactionRecord {
	return []model.TransactionRecord{
		{
			TransactionID:   "T1",
			UserID:          "USER_001",
			AccountID:       "ACC_1",
			Date:            date("2025-03-05"),
			Direction:       model.DirectionDebit,
			Amount:          45.50,
			CategoryGroupID: "CG800",
			SubCategoryID:   "C803",
		},
		{
			TransactionID:   "T2",
			UserID:          "USER_001",
			AccountID:       "ACC_1",
			Date:            date("2025-03-10"),
			Direction:       model.DirectionDebit,
			Amount:          150.00,
			CategoryGroupID: "CG400",
			SubCategoryID:   "C401",
		},
		{
			TransactionID:   "T3",
			UserID:          "USER_001",
			AccountID:       "ACC_2",
			Date:            date("2025-03-10"),
			Direction:       model.DirectionCredit,
			Amount:          2000.00,
			CategoryGroupID: "CG100",
			SubCategoryID:   "C101",
		},
		{
			TransactionID:   "T4",
			UserID:          "USER_001",
			AccountID:       "ACC_1",
			Date:            date("2025-03-20"),
			Direction:       model.DirectionDebit,
			Amount:          50.00,
			CategoryGroupID: "CG800",
			SubCategoryID:   "C801",
		},
		{
			TransactionID:   "T5",
			UserID:          "USER_002",
			AccountID:       "ACC_9",
			Date:            date("2025-03-05"),
			Direction:       model.DirectionDebit,
			Amount:          45.50,
			CategoryGroupID: "CG800",
			SubCategoryID:   "C803",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    model.QuerySpec
		wantErr bool
	}{
		{
			name:    "valid minimal spec",
			spec:    model.QuerySpec{UserID: "USER_001"},
			wantErr: false,
		},
		{
			name:    "missing user id",
			spec:    model.QuerySpec{},
			wantErr: true,
		},
		{
			name: "start after end",
			spec: model.QuerySpec{
				UserID:    "USER_001",
				StartDate: datePtr("2025-03-10"),
				EndDate:   datePtr("2025-03-01"),
			},
			wantErr: true,
		},
		{
			name: "both category id sets populated",
			spec: model.QuerySpec{
				UserID:           "USER_001",
				CategoryGroupIDs: []string{"CG800"},
				SubCategoryIDs:   []string{"C803"},
			},
			wantErr: true,
		},
		{
			name: "min exceeds max",
			spec: model.QuerySpec{
				UserID:    "USER_001",
				MinAmount: floatPtr(100),
				MaxAmount: floatPtr(50),
			},
			wantErr: true,
		},
		{
			name: "negative limit",
			spec: model.QuerySpec{
				UserID: "USER_001",
				Limit:  intPtr(-1),
			},
			wantErr: true,
		},
		{
			name: "unknown direction",
			spec: model.QuerySpec{
				UserID:    "USER_001",
				Direction: "X",
			},
			wantErr: true,
		},
		{
			name: "unknown sort order",
			spec: model.QuerySpec{
				UserID: "USER_001",
				Sort:   "amount_desc",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrQuerySpecInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecuteZeroMatch(t *testing.T) {
	spec := model.QuerySpec{
		UserID:           "USER_001",
		CategoryGroupIDs: []string{"CG999"},
	}

	result, err := Execute(spec, testLedger())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Count)
	assert.Equal(t, 0.0, result.TotalDebit)
	assert.Equal(t, 0.0, result.TotalCredit)
	assert.Equal(t, 0.0, result.Net)
	assert.Nil(t, result.AvgAmount, "zero-match average must be nil, not zero")
	assert.Nil(t, result.MinAmount)
	assert.Nil(t, result.MaxAmount)
	assert.Empty(t, result.Transactions)
}

func TestExecuteAmountBoundsUseAbsoluteValue(t *testing.T) {
	spec := model.QuerySpec{
		UserID:    "USER_001",
		Direction: model.DirectionDebit,
		MinAmount: floatPtr(100),
	}

	result, err := Execute(spec, testLedger())
	require.NoError(t, err)

	require.Equal(t, 1, result.Count)
	assert.Equal(t, "T2", result.Transactions[0].TransactionID)
}

func TestExecuteDateRangeInclusive(t *testing.T) {
	spec := model.QuerySpec{
		UserID:    "USER_001",
		StartDate: datePtr("2025-03-10"),
		EndDate:   datePtr("2025-03-10"),
	}

	result, err := Execute(spec, testLedger())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count, "a single-day range includes both boundary dates")
	for _, rec := range result.Transactions {
		assert.Equal(t, date("2025-03-10"), rec.Date)
	}
}

func TestExecuteCategoryGroupAndDirection(t *testing.T) {
	spec := model.QuerySpec{
		UserID:           "USER_001",
		CategoryGroupIDs: []string{"CG800"},
		Direction:        model.DirectionDebit,
		MaxAmount:        floatPtr(46),
	}

	result, err := Execute(spec, testLedger())
	require.NoError(t, err)

	require.Equal(t, 1, result.Count)
	assert.Equal(t, "T1", result.Transactions[0].TransactionID)
	assert.Equal(t, 45.50, result.TotalDebit)
	assert.Equal(t, 0.0, result.TotalCredit)
	assert.Equal(t, -45.50, result.Net)
	require.NotNil(t, result.AvgAmount)
	assert.Equal(t, 45.50, *result.AvgAmount)
}

func TestExecuteUserScope(t *testing.T) {
	spec := model.QuerySpec{UserID: "USER_002"}

	result, err := Execute(spec, testLedger())
	require.NoError(t, err)

	require.Equal(t, 1, result.Count)
	assert.Equal(t, "T5", result.Transactions[0].TransactionID)
}

func TestExecuteAggregatesIgnoreLimit(t *testing.T) {
	spec := model.QuerySpec{
		UserID:    "USER_001",
		Direction: model.DirectionDebit,
		Sort:      model.SortDateDesc,
		Limit:     intPtr(1),
	}

	result, err := Execute(spec, testLedger())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Count, "count reflects the full filtered set")
	assert.InDelta(t, 245.50, result.TotalDebit, 0.001)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "T4", result.Transactions[0].TransactionID, "newest debit first under date_desc")

	require.NotNil(t, result.MinAmount)
	require.NotNil(t, result.MaxAmount)
	assert.Equal(t, 45.50, *result.MinAmount)
	assert.Equal(t, 150.00, *result.MaxAmount)
}

func TestExecuteSortStableAscending(t *testing.T) {
	spec := model.QuerySpec{
		UserID: "USER_001",
		Sort:   model.SortDateAsc,
	}

	result, err := Execute(spec, testLedger())
	require.NoError(t, err)
	require.Equal(t, 4, result.Count)

	// T2 and T3 share a date; stable sort preserves ledger order.
	ids := make([]string, 0, len(result.Transactions))
	for _, rec := range result.Transactions {
		ids = append(ids, rec.TransactionID)
	}
	assert.Equal(t, []string{"T1", "T2", "T3", "T4"}, ids)
}

func TestExecuteAccountScope(t *testing.T) {
	spec := model.QuerySpec{
		UserID:     "USER_001",
		AccountIDs: []string{"ACC_2"},
	}

	result, err := Execute(spec, testLedger())
	require.NoError(t, err)

	require.Equal(t, 1, result.Count)
	assert.Equal(t, "T3", result.Transactions[0].TransactionID)
	assert.Equal(t, 2000.00, result.TotalCredit)
	assert.Equal(t, 2000.00, result.Net)
}
