// Package preferences merges per-turn preference updates into the
// session's conversation summary. The merge is last-write-wins with full
// provenance: every override records what it replaced and when.
package preferences

import (
	"log/slog"

	"github.com/irishask/financial-ai-agent/internal/model"
)

// Known top-level delta slots. Anything else under a delta is either a
// category preference or an unknown key that gets ignored.
const (
	slotTimeWindow           = "time_window"
	slotAmountThresholdLarge = "amount_threshold_large"
	slotAccountScope         = "account_scope"
	slotCategoryPreferences  = "category_preferences"
)

// DeltaValue is one slot's update within a Delta. Exactly one of the three
// shapes applies:
//   - Null: the user retracted the preference ("actually, all accounts").
//   - Entry set: the upstream classifier supplied a full provenance record.
//   - otherwise Scalar: a bare value the merge engine wraps itself.
type DeltaValue struct {
	Scalar any
	Entry  *model.PreferenceEntry
	Null   bool
}

// Delta is the parsed per-turn preference update. A nil slot pointer means
// the turn said nothing about that slot, which is different from an
// explicit null (deletion).
type Delta struct {
	TimeWindow           *DeltaValue
	AmountThresholdLarge *DeltaValue
	AccountScope         *DeltaValue
	CategoryPreferences  map[string]*DeltaValue
}

// Empty reports whether the delta carries no updates at all.
func (d *Delta) Empty() bool {
	if d == nil {
		return true
	}
	return d.TimeWindow == nil &&
		d.AmountThresholdLarge == nil &&
		d.AccountScope == nil &&
		len(d.CategoryPreferences) == 0
}

// ParseDelta interprets the raw summary_update map from a classification.
// Unknown top-level keys are ignored with a debug log rather than rejected,
// so a chatty upstream model cannot fail the whole turn.
func ParseDelta(raw map[string]any) *Delta {
	delta := &Delta{CategoryPreferences: make(map[string]*DeltaValue)}
	for key, val := range raw {
		switch key {
		case slotTimeWindow:
			delta.TimeWindow = parseDeltaValue(val)
		case slotAmountThresholdLarge:
			delta.AmountThresholdLarge = parseDeltaValue(val)
		case slotAccountScope:
			delta.AccountScope = parseDeltaValue(val)
		case slotCategoryPreferences:
			prefs, ok := val.(map[string]any)
			if !ok {
				slog.Debug("ignoring malformed category_preferences in summary update",
					"type", typeName(val))
				continue
			}
			for label, prefVal := range prefs {
				delta.CategoryPreferences[label] = parseDeltaValue(prefVal)
			}
		default:
			slog.Debug("ignoring unknown summary update key", "key", key)
		}
	}
	return delta
}

// parseDeltaValue classifies one raw slot value. A map carrying a "value"
// key is treated as a structured entry; nil is an explicit deletion;
// everything else is a bare scalar.
func parseDeltaValue(raw any) *DeltaValue {
	if raw == nil {
		return &DeltaValue{Null: true}
	}
	if m, ok := raw.(map[string]any); ok {
		if _, hasValue := m["value"]; hasValue {
			return &DeltaValue{Entry: entryFromMap(m)}
		}
	}
	return &DeltaValue{Scalar: raw}
}

func entryFromMap(m map[string]any) *model.PreferenceEntry {
	entry := &model.PreferenceEntry{Value: m["value"]}
	if src, ok := m["source"].(string); ok {
		entry.Source = model.PreferenceSource(src)
	}
	if q, ok := m["original_query"].(string); ok {
		entry.OriginatingQuery = q
	}
	if turn, ok := asInt(m["turn_id"]); ok {
		entry.TurnID = &turn
	}
	return entry
}

// asInt accepts the numeric shapes JSON decoding produces.
func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return "unknown"
}
