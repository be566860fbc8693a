package model

// PreferenceSource records who or what set a preference value.
type PreferenceSource string

const (
	// SourceSystemDefault marks a value seeded by the system.
	SourceSystemDefault PreferenceSource = "system_default"
	// SourceUserDefined marks a value first set by the user.
	SourceUserDefined PreferenceSource = "user_defined"
	// SourceUserOverride marks a value that replaced an earlier one.
	SourceUserOverride PreferenceSource = "user_override"
)

// PreferenceEntry is one session preference value with its provenance.
// PreviousValue/PreviousTurnID are populated only when the entry supersedes
// an existing one; on first set both are nil. Entries are replaced on
// override, never mutated in place.
type PreferenceEntry struct {
	Value            any              `json:"value"`
	PreviousValue    any              `json:"previous_value,omitempty"`
	TurnID           *int             `json:"turn_id,omitempty"`
	PreviousTurnID   *int             `json:"previous_turn_id,omitempty"`
	Source           PreferenceSource `json:"source"`
	OriginatingQuery string           `json:"original_query,omitempty"`
}

// ConversationSummary is the accumulated, session-scoped preference store.
// One instance per session, passed by reference through the turn pipeline
// and mutated by the merge engine only.
//
// CategoryPreferences keys are caller-defined free-text labels (for example
// "coffee_spending_scope" or "weekend_definition"), not category ids.
type ConversationSummary struct {
	TimeWindow           *PreferenceEntry            `json:"time_window,omitempty"`
	AmountThresholdLarge *PreferenceEntry            `json:"amount_threshold_large,omitempty"`
	AccountScope         *PreferenceEntry            `json:"account_scope,omitempty"`
	CategoryPreferences  map[string]*PreferenceEntry `json:"category_preferences,omitempty"`
}

// NewConversationSummary returns an empty summary ready for merging.
func NewConversationSummary() *ConversationSummary {
	return &ConversationSummary{
		CategoryPreferences: make(map[string]*PreferenceEntry),
	}
}

// Snapshot returns the currently-set preferences keyed by slot name, the
// shape the audit log records. Category preferences are keyed as
// "category_<label>".
func (s *ConversationSummary) Snapshot() map[string]PreferenceEntry {
	snap := make(map[string]PreferenceEntry)
	if s == nil {
		return snap
	}
	if s.TimeWindow != nil {
		snap["time_window"] = *s.TimeWindow
	}
	if s.AmountThresholdLarge != nil {
		snap["amount_threshold_large"] = *s.AmountThresholdLarge
	}
	if s.AccountScope != nil {
		snap["account_scope"] = *s.AccountScope
	}
	for key, pref := range s.CategoryPreferences {
		if pref != nil {
			snap["category_"+key] = *pref
		}
	}
	return snap
}
