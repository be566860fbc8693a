package model

import "time"

// DataSources describes which data was used to answer a query.
type DataSources struct {
	TablesUsed       []string `json:"tables_used"`
	FieldsAccessed   []string `json:"fields_accessed"`
	FiltersApplied   []string `json:"filters_applied"`
	AggregationsUsed []string `json:"aggregations_used"`
}

// NewDataSources returns a structurally complete, empty DataSources. The
// audit log never carries truly-absent provenance fields.
func NewDataSources() DataSources {
	return DataSources{
		TablesUsed:       []string{},
		FieldsAccessed:   []string{},
		FiltersApplied:   []string{},
		AggregationsUsed: []string{},
	}
}

// ClarificationStep is one clarification question/answer exchange.
type ClarificationStep struct {
	Question   string `json:"question"`
	UserAnswer string `json:"user_answer"`
	TurnID     int    `json:"turn_id"`
}

// BackofficeLog is the canonical compliance record for one turn: it binds
// classification, resolution evidence, query results, and preferences into
// a single immutable trace. Append-only during construction, immutable
// after finalization. The audit trail is never skipped on failure paths.
type BackofficeLog struct {
	Timestamp            time.Time                  `json:"timestamp"`
	ResolvedQuery        map[string]any             `json:"resolved_query"`
	Analysis             map[string]any             `json:"analysis"`
	PreferencesUsed      map[string]PreferenceEntry `json:"preferences_used"`
	RouterSnapshot       *ClassificationResult      `json:"router_output_snapshot,omitempty"`
	TraceID              string                     `json:"trace_id"`
	SessionID            string                     `json:"session_id,omitempty"`
	UserQuery            string                     `json:"user_query"`
	Answer               string                     `json:"answer"`
	Confidence           Confidence                 `json:"confidence"`
	FailureStage         string                     `json:"failure_stage,omitempty"`
	FailureKind          string                     `json:"failure_kind,omitempty"`
	ReasoningSteps       []string                   `json:"reasoning_steps"`
	ClarificationHistory []ClarificationStep        `json:"clarification_history"`
	DataSources          DataSources                `json:"data_sources"`
	TurnID               int                        `json:"turn_id"`
	TransactionsAnalyzed int                        `json:"transactions_analyzed"`
	Recovered            bool                       `json:"recovered"`
}

// ExecutionResult is the high-level outcome of a CLEAR turn: the
// user-facing answer plus the back-office log.
type ExecutionResult struct {
	FinalAnswer   string        `json:"final_answer"`
	BackofficeLog BackofficeLog `json:"backoffice_log"`
}
