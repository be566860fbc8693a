package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/model"
)

// fakeEmbedder maps known texts to fixed unit vectors so distance ordering
// is deterministic.
type fakeEmbedder struct {
	vectors map[string][]float32
	base    []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = f.base
		}
	}
	return out, nil
}

const testKB = `{
  "category_groups": [
    {
      "categoryGroupId": "CG800",
      "categoryGroupName": "Dining",
      "description": "Restaurants, cafes, and food delivery",
      "subcategories": [
        {
          "subCategoryId": "C801",
          "subCategoryName": "Coffee Shops",
          "description": "Coffee shops and cafes"
        },
        {
          "subCategoryId": "C803",
          "subCategoryName": "Restaurants",
          "description": "Sit-down restaurants"
        }
      ]
    },
    {
      "categoryGroupId": "CG400",
      "categoryGroupName": "Shopping",
      "description": "Retail purchases",
      "subcategories": []
    }
  ]
}`

func writeKB(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadKnowledgeBase(t *testing.T) {
	records, err := LoadKnowledgeBase(writeKB(t, testKB))
	require.NoError(t, err)
	require.Len(t, records, 4)

	byID := make(map[string]model.CategoryRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	group := byID["CG800"]
	assert.Equal(t, model.LevelGroup, group.Level)
	assert.Equal(t, "Dining", group.Name)

	sub := byID["C801"]
	assert.Equal(t, model.LevelSubcategory, sub.Level)
	assert.Equal(t, "CG800", sub.ParentID)
	assert.Equal(t, "Dining", sub.ParentName)
}

func TestLoadKnowledgeBaseDuplicateID(t *testing.T) {
	dup := `{"category_groups": [
		{"categoryGroupId": "CG800", "categoryGroupName": "A", "description": "a", "subcategories": []},
		{"categoryGroupId": "CG800", "categoryGroupName": "B", "description": "b", "subcategories": []}
	]}`
	_, err := LoadKnowledgeBase(writeKB(t, dup))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestSearchOrdering(t *testing.T) {
	records := []model.CategoryRecord{
		{ID: "CG800", Name: "Dining", Level: model.LevelGroup, Description: "restaurants"},
		{ID: "C801", Name: "Coffee Shops", Level: model.LevelSubcategory, Description: "coffee"},
		{ID: "CG400", Name: "Shopping", Level: model.LevelGroup, Description: "retail"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0}, // closest to the query below
		{0, 0, 1},
	}
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{"coffee": {0.9, 0.1, 0}},
		base:    []float32{0, 1, 0},
	}

	ix, err := New("test", embedder, records, vectors)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Count())

	hits, err := ix.Search(context.Background(), "coffee", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Best (lowest distance) first, truncated to topK.
	assert.Less(t, hits[0].Distance, hits[1].Distance)
	assert.Equal(t, "C801", hits[0].Record.ID)
}

func TestStoreRoundtrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	records := []model.CategoryRecord{
		{ID: "CG800", Name: "Dining", Level: model.LevelGroup, Description: "restaurants"},
		{ID: "C801", Name: "Coffee Shops", Level: model.LevelSubcategory, ParentID: "CG800", Description: "coffee"},
	}
	vectors := [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}

	require.NoError(t, store.Save(ctx, "test", "text-embedding-3-small", records, vectors))

	gotRecords, gotVectors, err := store.Load(ctx, "test")
	require.NoError(t, err)
	require.Len(t, gotRecords, 2)
	assert.ElementsMatch(t, records, gotRecords)

	// Vectors stay aligned with their records across the roundtrip.
	want := map[string][]float32{"CG800": vectors[0], "C801": vectors[1]}
	for i, rec := range gotRecords {
		assert.Equal(t, want[rec.ID], gotVectors[i])
	}

	count, err := store.Count(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreSaveReplacesCollection(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	first := []model.CategoryRecord{{ID: "CG800", Name: "Dining", Level: model.LevelGroup, Description: "a"}}
	require.NoError(t, store.Save(ctx, "test", "m", first, [][]float32{{1}}))

	second := []model.CategoryRecord{
		{ID: "CG400", Name: "Shopping", Level: model.LevelGroup, Description: "b"},
		{ID: "C401", Name: "Electronics", Level: model.LevelSubcategory, ParentID: "CG400", Description: "c"},
	}
	require.NoError(t, store.Save(ctx, "test", "m", second, [][]float32{{1}, {2}}))

	gotRecords, _, err := store.Load(ctx, "test")
	require.NoError(t, err)
	assert.ElementsMatch(t, second, gotRecords)
}

func TestStoreLoadMissingCollection(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, err = store.Load(context.Background(), "absent")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrResolutionUnavailable)
}

func TestBuildFromKnowledgeBase(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	embedder := &fakeEmbedder{base: []float32{0.5, 0.5}}
	ix, err := Build(context.Background(), store, embedder, BuildOptions{
		KnowledgeBasePath: writeKB(t, testKB),
		Collection:        "test",
		EmbeddingModel:    "fake",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, ix.Count())

	// A second build without Force loads the persisted collection instead
	// of re-embedding.
	again, err := Build(context.Background(), store, embedder, BuildOptions{
		KnowledgeBasePath: "/nonexistent/kb.json",
		Collection:        "test",
		EmbeddingModel:    "fake",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, again.Count())
}

func TestProviderSwap(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)

	embedder := &fakeEmbedder{base: []float32{1, 0}}
	provider := NewProvider(store, embedder, "test")
	defer func() { _ = provider.Close() }()

	// Nothing persisted yet: lazy load fails with resolution-unavailable.
	_, err = provider.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrResolutionUnavailable)

	// A successful rebuild supersedes the failed initial load.
	records := []model.CategoryRecord{{ID: "CG800", Name: "Dining", Level: model.LevelGroup, Description: "a"}}
	ix, err := New("test", embedder, records, [][]float32{{1, 0}})
	require.NoError(t, err)
	provider.Swap(ix)

	got, err := provider.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count())
}
