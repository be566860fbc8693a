package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irishask/financial-ai-agent/internal/model"
)

func TestBuilderSuccessPath(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	minAmount := 100.0

	spec := model.QuerySpec{
		UserID:           "USER_001",
		StartDate:        &start,
		EndDate:          &end,
		CategoryGroupIDs: []string{"CG800"},
		MinAmount:        &minAmount,
		Direction:        model.DirectionDebit,
	}
	avg := 45.50
	result := model.QueryResult{Count: 3, TotalDebit: 136.50, AvgAmount: &avg}

	log := New("sess-1", 2, "how much on dining in March?").
		Step("classified as %s", model.UseCaseAggregation).
		AttachClassification(&model.ClassificationResult{
			Clarity:        model.ClarityClear,
			PrimaryUseCase: model.UseCaseAggregation,
			Confidence:     model.ConfidenceHigh,
		}).
		AttachResolution([]model.CategoryMatch{
			model.NewCategoryMatch("dining", model.CategoryRecord{
				ID: "CG800", Name: "Dining", Level: model.LevelGroup,
			}, 0.21),
		}).
		AttachQuery(spec, result).
		Finalize("You spent 136.50 on dining in March 2025 across 3 transactions.")

	assert.NotEmpty(t, log.TraceID)
	assert.Equal(t, "sess-1", log.SessionID)
	assert.Equal(t, 2, log.TurnID)
	assert.Equal(t, model.ConfidenceHigh, log.Confidence)
	assert.Equal(t, 3, log.TransactionsAnalyzed)
	assert.Contains(t, log.DataSources.TablesUsed, "transactions")
	assert.Contains(t, log.DataSources.FiltersApplied, "date between 2025-03-01 and 2025-03-31")
	assert.Contains(t, log.DataSources.FiltersApplied, "categoryGroupId in [CG800]")
	assert.Contains(t, log.DataSources.FiltersApplied, "abs(amount) >= 100.00")
	assert.Contains(t, log.DataSources.FiltersApplied, "direction = D")
	assert.Contains(t, log.DataSources.FieldsAccessed, "category_group_id")
	assert.Contains(t, log.DataSources.AggregationsUsed, "avg")
	assert.Contains(t, log.Analysis, "resolved_categories")
	assert.NotEmpty(t, log.ReasoningSteps)
}

func TestBuilderFailurePathStructurallyComplete(t *testing.T) {
	log := New("sess-1", 1, "what about those?").
		AttachClassification(&model.ClassificationResult{Clarity: model.ClarityVague}).
		RecordFailure("classification", "invalid_contract", true).
		Finalize("Which time period do you mean?")

	// Even a failed turn carries the full record shape.
	assert.NotEmpty(t, log.TraceID)
	assert.Equal(t, "classification", log.FailureStage)
	assert.Equal(t, "invalid_contract", log.FailureKind)
	assert.True(t, log.Recovered)
	require.NotNil(t, log.ResolvedQuery)
	require.NotNil(t, log.Analysis)
	require.NotNil(t, log.PreferencesUsed)
	require.NotNil(t, log.ReasoningSteps)
	require.NotNil(t, log.ClarificationHistory)
	assert.NotNil(t, log.DataSources.TablesUsed)
	assert.NotNil(t, log.DataSources.FiltersApplied)
	assert.Equal(t, model.ConfidenceLow, log.Confidence)
}

func TestBuilderTraceIDsUnique(t *testing.T) {
	a := New("sess-1", 1, "q").Finalize("a")
	b := New("sess-1", 2, "q").Finalize("a")
	assert.NotEqual(t, a.TraceID, b.TraceID)
}
