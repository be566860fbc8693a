// Package resolver maps free-text category terms to ranked knowledge-base
// categories via nearest-neighbor search over the category index.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/index"
	"github.com/irishask/financial-ai-agent/internal/model"
)

// DefaultConfidenceFloor is the default maximum distance a candidate may
// have and still be returned. Calibrated for the embedding space the index
// is built with; a configuration constant, not a universal one.
const DefaultConfidenceFloor = 0.6

// Searcher is the slice of the index the resolver needs.
type Searcher interface {
	Search(ctx context.Context, term string, topK int) ([]index.Hit, error)
}

// Resolver resolves category terms against a searchable index. Stateless
// and idempotent per call; safe to re-invoke from an external retry loop.
type Resolver struct {
	searcher        Searcher
	topK            int
	confidenceFloor float64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTopK sets the per-term candidate count.
func WithTopK(k int) Option {
	return func(r *Resolver) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithConfidenceFloor sets the maximum accepted distance.
func WithConfidenceFloor(floor float64) Option {
	return func(r *Resolver) {
		if floor > 0 {
			r.confidenceFloor = floor
		}
	}
}

// New creates a resolver over the given searcher.
func New(searcher Searcher, opts ...Option) *Resolver {
	r := &Resolver{
		searcher:        searcher,
		topK:            index.DefaultTopK,
		confidenceFloor: DefaultConfidenceFloor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns ranked category candidates for the given terms, best
// (lowest distance) first.
//
// Empty or whitespace-only input yields an empty result, not an error.
// Candidates above the confidence floor are dropped. When several terms
// match the same category, only the lowest-distance match survives and it
// keeps the term that produced it. Both hierarchy levels are returned;
// broad-vs-specific selection is the caller's policy.
//
// An unavailable index surfaces as common.ErrResolutionUnavailable;
// callers must not fabricate results on that path.
func (r *Resolver) Resolve(ctx context.Context, terms []string) ([]model.CategoryMatch, error) {
	valid := make([]string, 0, len(terms))
	for _, term := range terms {
		if t := strings.TrimSpace(term); t != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return []model.CategoryMatch{}, nil
	}

	best := make(map[string]model.CategoryMatch)
	for _, term := range valid {
		hits, err := r.searcher.Search(ctx, term, r.topK)
		if err != nil {
			if errors.Is(err, common.ErrResolutionUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", common.ErrResolutionUnavailable, err)
		}

		for _, hit := range hits {
			if hit.Distance > r.confidenceFloor {
				continue
			}
			match := model.NewCategoryMatch(term, hit.Record, hit.Distance)
			if existing, seen := best[hit.Record.ID]; !seen || match.Distance < existing.Distance {
				best[hit.Record.ID] = match
			}
		}
	}

	matches := make([]model.CategoryMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Category.ID < matches[j].Category.ID
	})

	slog.Debug("resolved category terms",
		"terms", valid,
		"matches", len(matches))
	return matches, nil
}
