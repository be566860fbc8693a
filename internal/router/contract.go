// Package router wraps the classification collaborator behind a strict
// contract. The collaborator is untrusted: its output is normalized and
// validated here before anything downstream sees it, and a classification
// that fails validation is downgraded to a clarification rather than
// executed on a guess.
package router

import (
	"fmt"
	"strings"

	"github.com/irishask/financial-ai-agent/internal/model"
)

// subjectiveTerms are query words that only make sense against a stored
// preference or a value resolved in the same turn.
var subjectiveTerms = map[string]string{
	"recent":     "time_window",
	"recently":   "time_window",
	"lately":     "time_window",
	"large":      "amount_threshold_large",
	"big":        "amount_threshold_large",
	"expensive":  "amount_threshold_large",
	"frequently": "time_window",
	"often":      "time_window",
	"usual":      "time_window",
}

// Normalize repairs the mechanical gaps a raw classification tends to have.
// It guarantees the operations map carries all five use case keys and that
// the primary use case obeys the tie-break rules. Normalization never
// changes the clarity verdict.
func Normalize(result *model.ClassificationResult) {
	if result == nil {
		return
	}
	if result.UseCaseOperations == nil {
		result.UseCaseOperations = make(map[model.UseCase][]string, len(model.UseCases))
	}
	for _, uc := range model.UseCases {
		if _, ok := result.UseCaseOperations[uc]; !ok {
			result.UseCaseOperations[uc] = []string{}
		}
	}
	if primary := pickPrimary(result); primary != "" {
		result.PrimaryUseCase = primary
	}
}

// pickPrimary applies the deterministic tie-break:
//  1. aggregation among the core use cases wins,
//  2. two or more filter axes without aggregation fall to direct lookup,
//  3. a single core use case names itself.
//
// Returns "" when the core set is empty; the declared primary then stands
// or falls in Validate.
func pickPrimary(result *model.ClassificationResult) model.UseCase {
	if len(result.CoreUseCases) == 0 {
		return ""
	}
	if result.HasUseCase(model.UseCaseAggregation) {
		return model.UseCaseAggregation
	}
	filterAxes := 0
	for _, uc := range result.CoreUseCases {
		switch uc {
		case model.UseCaseTemporal, model.UseCaseCategory, model.UseCaseDirectLookup:
			filterAxes++
		}
	}
	if filterAxes >= 2 {
		return model.UseCaseDirectLookup
	}
	return result.CoreUseCases[0]
}

// Validate checks a normalized classification against the contract the
// execution pipeline depends on. The query text and current summary supply
// the context for the subjective-term rule.
func Validate(query string, result *model.ClassificationResult, summary *model.ConversationSummary) error {
	if result == nil {
		return fmt.Errorf("classification is nil")
	}

	switch result.Clarity {
	case model.ClarityVague:
		if strings.TrimSpace(result.ClarifyingQuestion) == "" {
			return fmt.Errorf("vague classification carries no clarifying question")
		}
		if len(result.MissingInfo) == 0 {
			return fmt.Errorf("vague classification names no missing information")
		}
		return nil
	case model.ClarityClear:
	default:
		return fmt.Errorf("unknown clarity verdict %q", result.Clarity)
	}

	if !model.KnownUseCase(result.PrimaryUseCase) {
		return fmt.Errorf("unknown primary use case %q", result.PrimaryUseCase)
	}
	if len(result.CoreUseCases) == 0 {
		return fmt.Errorf("clear classification names no core use cases")
	}
	for _, uc := range result.CoreUseCases {
		if !model.KnownUseCase(uc) {
			return fmt.Errorf("unknown core use case %q", uc)
		}
	}
	for uc := range result.UseCaseOperations {
		if !model.KnownUseCase(uc) {
			return fmt.Errorf("operations reference unknown use case %q", uc)
		}
	}

	if result.HasUseCase(model.UseCaseAggregation) && !result.ResolvedDates.Resolved() {
		return fmt.Errorf("aggregation without a resolved date range")
	}

	if err := validateSubjectiveTerms(query, result, summary); err != nil {
		return err
	}

	if len(result.ResolvedCategories) > 0 && allLowConfidence(result.ResolvedCategories) {
		return fmt.Errorf("every resolved category is low confidence")
	}

	return nil
}

// validateSubjectiveTerms rejects CLEAR classifications that lean on a
// subjective word with nothing behind it: no stored preference and no value
// resolved in the same turn.
func validateSubjectiveTerms(query string, result *model.ClassificationResult, summary *model.ConversationSummary) error {
	snap := summary.Snapshot()
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,!?;:\"'")
		slot, subjective := subjectiveTerms[word]
		if !subjective {
			continue
		}
		if _, stored := snap[slot]; stored {
			continue
		}
		if pendingInDelta(result.SummaryUpdate, slot) {
			continue
		}
		switch slot {
		case "time_window":
			if result.ResolvedDates.Resolved() {
				continue
			}
		case "amount_threshold_large":
			if result.ResolvedAmountThreshold != nil {
				continue
			}
		}
		return fmt.Errorf("subjective term %q has no stored preference or resolved value", word)
	}
	return nil
}

// pendingInDelta reports whether this turn's summary update itself defines
// the slot, which is how "large means over 200" style turns legitimately
// introduce a subjective term.
func pendingInDelta(update map[string]any, slot string) bool {
	if update == nil {
		return false
	}
	val, ok := update[slot]
	return ok && val != nil
}

func allLowConfidence(matches []model.CategoryMatch) bool {
	for _, m := range matches {
		if m.Confidence != model.ConfidenceLow {
			return false
		}
	}
	return true
}

// Downgrade rewrites a failed classification into a vague one so the turn
// produces a clarification instead of executing on suspect data.
func Downgrade(result *model.ClassificationResult, reason string) {
	result.Clarity = model.ClarityVague
	result.ClarityReason = reason
	if strings.TrimSpace(result.ClarifyingQuestion) == "" {
		result.ClarifyingQuestion = "Could you rephrase that? I need a bit more detail to answer accurately."
	}
	if len(result.MissingInfo) == 0 {
		result.MissingInfo = []string{"classification_invalid"}
	}
}
