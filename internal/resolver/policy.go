package resolver

import (
	"strings"

	"github.com/irishask/financial-ai-agent/internal/model"
)

// Broad-vs-specific selection is normally a judgment made by the reasoning
// collaborator. When none is available, this deterministic fallback picks
// one match per term: the best group when the term names a domain-level
// concept, otherwise the best subcategory (falling back to the best match
// overall).

// domainLevelTerms are terms that denote a whole spending domain rather
// than a specific merchant type.
var domainLevelTerms = map[string]struct{}{
	"dining":         {},
	"groceries":      {},
	"transportation": {},
	"utilities":      {},
	"healthcare":     {},
	"entertainment":  {},
	"travel":         {},
	"shopping":       {},
	"insurance":      {},
	"education":      {},
	"subscriptions":  {},
	"fitness":        {},
	"automotive":     {},
	"pets":           {},
	"charity":        {},
	"childcare":      {},
}

// IsDomainLevelTerm reports whether term denotes a domain-level concept.
func IsDomainLevelTerm(term string) bool {
	_, ok := domainLevelTerms[strings.ToLower(strings.TrimSpace(term))]
	return ok
}

// SelectPreferred applies the fallback level policy to a term's matches,
// which must already be sorted best-first. Returns nil when matches is
// empty.
func SelectPreferred(term string, matches []model.CategoryMatch) *model.CategoryMatch {
	if len(matches) == 0 {
		return nil
	}

	wantGroup := IsDomainLevelTerm(term)
	for i := range matches {
		if matches[i].Category.IsGroup() == wantGroup {
			return &matches[i]
		}
	}
	return &matches[0]
}
