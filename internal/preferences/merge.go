package preferences

import (
	"github.com/irishask/financial-ai-agent/internal/model"
)

// Merge applies one turn's delta to the summary. Semantics per slot:
//   - absent from the delta: the stored value is untouched,
//   - explicit null: the stored value is cleared,
//   - bare scalar: wrapped in a fresh entry; if it replaces an existing
//     value the new entry records the old value and turn as provenance,
//   - structured entry: adopted as-is, with previous_value/previous_turn_id
//     filled in from whatever it replaces.
//
// The merge mutates summary in place and is all-or-nothing per call site:
// callers only invoke it after validation has accepted the turn.
func Merge(summary *model.ConversationSummary, delta *Delta, turnID int, query string) {
	if summary == nil || delta.Empty() {
		return
	}
	if summary.CategoryPreferences == nil {
		summary.CategoryPreferences = make(map[string]*model.PreferenceEntry)
	}

	summary.TimeWindow = mergeSlot(summary.TimeWindow, delta.TimeWindow, turnID, query)
	summary.AmountThresholdLarge = mergeSlot(summary.AmountThresholdLarge, delta.AmountThresholdLarge, turnID, query)
	summary.AccountScope = mergeSlot(summary.AccountScope, delta.AccountScope, turnID, query)

	for label, dv := range delta.CategoryPreferences {
		merged := mergeSlot(summary.CategoryPreferences[label], dv, turnID, query)
		if merged == nil {
			delete(summary.CategoryPreferences, label)
		} else {
			summary.CategoryPreferences[label] = merged
		}
	}
}

func mergeSlot(current *model.PreferenceEntry, dv *DeltaValue, turnID int, query string) *model.PreferenceEntry {
	if dv == nil {
		return current
	}
	if dv.Null {
		return nil
	}

	var next *model.PreferenceEntry
	if dv.Entry != nil {
		copied := *dv.Entry
		next = &copied
	} else {
		turn := turnID
		next = &model.PreferenceEntry{
			Value:            dv.Scalar,
			TurnID:           &turn,
			Source:           model.SourceUserDefined,
			OriginatingQuery: query,
		}
	}

	if current != nil {
		next.PreviousValue = current.Value
		next.PreviousTurnID = current.TurnID
		if next.Source == model.SourceUserDefined || next.Source == "" {
			next.Source = model.SourceUserOverride
		}
	} else if next.Source == "" {
		next.Source = model.SourceUserDefined
	}
	if next.TurnID == nil {
		turn := turnID
		next.TurnID = &turn
	}
	if next.OriginatingQuery == "" {
		next.OriginatingQuery = query
	}
	return next
}

// Lookup returns the stored value for a snapshot key ("time_window",
// "amount_threshold_large", "account_scope", or "category_<label>") if one
// is currently set.
func Lookup(summary *model.ConversationSummary, key string) (any, bool) {
	if summary == nil {
		return nil, false
	}
	snap := summary.Snapshot()
	entry, ok := snap[key]
	if !ok {
		return nil, false
	}
	return entry.Value, true
}
