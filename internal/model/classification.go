package model

import "time"

// Clarity is the router's verdict on whether a query can execute as-is.
type Clarity string

const (
	// ClarityClear means the query carries enough resolved information to
	// execute without further user input.
	ClarityClear Clarity = "CLEAR"
	// ClarityVague means the turn short-circuits to a clarification.
	ClarityVague Clarity = "VAGUE"
)

// UseCase is one of exactly five recognized query use cases. A
// classification referencing anything else is invalid.
type UseCase string

const (
	// UseCaseDirectLookup retrieves transactions by explicit filters.
	UseCaseDirectLookup UseCase = "direct_lookup"
	// UseCaseAggregation computes totals, averages, or counts.
	UseCaseAggregation UseCase = "aggregation"
	// UseCaseTemporal interprets time expressions.
	UseCaseTemporal UseCase = "temporal"
	// UseCaseCategory maps free-text terms to ledger categories.
	UseCaseCategory UseCase = "category"
	// UseCaseAmbiguity handles clarification of underspecified queries.
	UseCaseAmbiguity UseCase = "ambiguity"
)

// UseCases is the closed vocabulary, in canonical order.
var UseCases = []UseCase{
	UseCaseDirectLookup,
	UseCaseAggregation,
	UseCaseTemporal,
	UseCaseCategory,
	UseCaseAmbiguity,
}

// KnownUseCase reports whether u belongs to the five-member vocabulary.
func KnownUseCase(u UseCase) bool {
	for _, known := range UseCases {
		if u == known {
			return true
		}
	}
	return false
}

// ComplexityAxis names a complexity dimension involved in a query.
type ComplexityAxis string

// Complexity axes.
const (
	AxisTemporal  ComplexityAxis = "temporal"
	AxisCategory  ComplexityAxis = "category"
	AxisAmbiguity ComplexityAxis = "ambiguity"
)

// DateRange is a concrete, inclusive date range resolved for a turn, used
// verbatim by execution. Interpretation explains how the range was derived,
// for the audit trail.
type DateRange struct {
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Interpretation string     `json:"interpretation,omitempty"`
}

// Resolved reports whether at least one bound of the range is set.
func (r *DateRange) Resolved() bool {
	return r != nil && (r.StartDate != nil || r.EndDate != nil)
}

// ClassificationResult is the router collaborator's structured decision for
// one turn. The core validates and normalizes it; it never re-derives the
// classification itself.
type ClassificationResult struct {
	UseCaseOperations       map[UseCase][]string `json:"uc_operations,omitempty"`
	SummaryUpdate           map[string]any       `json:"summary_update,omitempty"`
	ResolvedDates           *DateRange           `json:"resolved_dates,omitempty"`
	ResolvedAmountThreshold *float64             `json:"resolved_amount_threshold,omitempty"`
	Clarity                 Clarity              `json:"clarity"`
	PrimaryUseCase          UseCase              `json:"primary_use_case,omitempty"`
	Confidence              Confidence           `json:"uc_confidence,omitempty"`
	ClarifyingQuestion      string               `json:"clarifying_question,omitempty"`
	ClarityReason           string               `json:"clarity_reason,omitempty"`
	RouterNotes             string               `json:"router_notes,omitempty"`
	CoreUseCases            []UseCase            `json:"core_use_cases"`
	ComplexityAxes          []ComplexityAxis     `json:"complexity_axes,omitempty"`
	NeededTools             []string             `json:"needed_tools,omitempty"`
	MissingInfo             []string             `json:"missing_info,omitempty"`
	ResolvedCategories      []CategoryMatch      `json:"resolved_trn_categories,omitempty"`
}

// HasUseCase reports whether u appears in the core use cases.
func (c *ClassificationResult) HasUseCase(u UseCase) bool {
	for _, uc := range c.CoreUseCases {
		if uc == u {
			return true
		}
	}
	return false
}
