package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/index"
	"github.com/irishask/financial-ai-agent/internal/model"
)

// tableSearcher serves canned hits per term.
type tableSearcher struct {
	hits map[string][]index.Hit
	err  error
}

func (s *tableSearcher) Search(_ context.Context, term string, _ int) ([]index.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits[term], nil
}

func diningGroup() model.CategoryRecord {
	return model.CategoryRecord{
		ID: "CG800", Name: "Dining", Level: model.LevelGroup,
		Description: "Restaurants, cafes, and food delivery",
	}
}

func restaurants() model.CategoryRecord {
	return model.CategoryRecord{
		ID: "C803", Name: "Restaurants", Level: model.LevelSubcategory,
		ParentID: "CG800", Description: "Sit-down restaurants",
	}
}

func TestResolveEmptyTerms(t *testing.T) {
	r := New(&tableSearcher{})

	matches, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)

	matches, err = r.Resolve(context.Background(), []string{"  ", ""})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestResolveDropsAboveConfidenceFloor(t *testing.T) {
	searcher := &tableSearcher{hits: map[string][]index.Hit{
		"stuff": {
			{Record: diningGroup(), Distance: 0.65},
			{Record: restaurants(), Distance: 0.72},
		},
	}}
	r := New(searcher)

	matches, err := r.Resolve(context.Background(), []string{"stuff"})
	require.NoError(t, err)
	assert.Empty(t, matches, "candidates above the 0.6 floor are dropped")
}

func TestResolveDedupAcrossTerms(t *testing.T) {
	searcher := &tableSearcher{hits: map[string][]index.Hit{
		"dining":      {{Record: diningGroup(), Distance: 0.30}},
		"restaurants": {{Record: diningGroup(), Distance: 0.18}, {Record: restaurants(), Distance: 0.12}},
	}}
	r := New(searcher)

	matches, err := r.Resolve(context.Background(), []string{"dining", "restaurants"})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Best-first overall; the duplicated CG800 keeps its lowest distance
	// and the term that produced it.
	assert.Equal(t, "C803", matches[0].Category.ID)
	assert.Equal(t, "CG800", matches[1].Category.ID)
	assert.Equal(t, 0.18, matches[1].Distance)
	assert.Equal(t, "restaurants", matches[1].QueryTerm)
}

func TestResolveConfidenceBuckets(t *testing.T) {
	searcher := &tableSearcher{hits: map[string][]index.Hit{
		"dining": {
			{Record: diningGroup(), Distance: 0.20},
			{Record: restaurants(), Distance: 0.55},
		},
	}}
	r := New(searcher)

	matches, err := r.Resolve(context.Background(), []string{"dining"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, model.ConfidenceHigh, matches[0].Confidence)
	assert.Equal(t, model.ConfidenceMedium, matches[1].Confidence)
}

func TestResolveUnavailableIndex(t *testing.T) {
	searcher := &tableSearcher{err: common.ErrResolutionUnavailable}
	r := New(searcher)

	_, err := r.Resolve(context.Background(), []string{"dining"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrResolutionUnavailable)
}

func TestSelectPreferred(t *testing.T) {
	group := model.NewCategoryMatch("dining", diningGroup(), 0.20)
	sub := model.NewCategoryMatch("dining", restaurants(), 0.15)

	t.Run("domain term prefers the group despite a closer subcategory", func(t *testing.T) {
		best := SelectPreferred("dining", []model.CategoryMatch{sub, group})
		require.NotNil(t, best)
		assert.Equal(t, "CG800", best.Category.ID)
	})

	t.Run("specific term prefers the subcategory", func(t *testing.T) {
		best := SelectPreferred("sushi", []model.CategoryMatch{group, sub})
		require.NotNil(t, best)
		assert.Equal(t, "C803", best.Category.ID)
	})

	t.Run("falls back to the best match when no level fits", func(t *testing.T) {
		best := SelectPreferred("sushi", []model.CategoryMatch{group})
		require.NotNil(t, best)
		assert.Equal(t, "CG800", best.Category.ID)
	})

	t.Run("nil on empty input", func(t *testing.T) {
		assert.Nil(t, SelectPreferred("dining", nil))
	})
}
