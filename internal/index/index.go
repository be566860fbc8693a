package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/irishask/financial-ai-agent/internal/model"
)

// document is one indexed category with its embedding vector.
type document struct {
	record model.CategoryRecord
	vector []float32
}

// Hit is one nearest-neighbor search result. Distance is cosine distance:
// 0 is a perfect match, lower is better.
type Hit struct {
	Record   model.CategoryRecord
	Distance float64
}

// Index is an immutable, searchable snapshot of the category collection.
// Built once, read concurrently without locking; rebuilds produce a new
// Index that replaces the old one atomically via the Provider.
type Index struct {
	embedder   Embedder
	collection string
	docs       []document
}

// New assembles an index over the given records and vectors. Records and
// vectors must correspond by position.
func New(collection string, embedder Embedder, records []model.CategoryRecord, vectors [][]float32) (*Index, error) {
	if len(records) != len(vectors) {
		return nil, fmt.Errorf("record/vector count mismatch: %d vs %d", len(records), len(vectors))
	}
	docs := make([]document, len(records))
	for i := range records {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("empty vector for category %s", records[i].ID)
		}
		docs[i] = document{record: records[i], vector: vectors[i]}
	}
	return &Index{
		collection: collection,
		embedder:   embedder,
		docs:       docs,
	}, nil
}

// Collection returns the collection name the index was built from.
func (ix *Index) Collection() string {
	return ix.collection
}

// Count returns the number of indexed categories.
func (ix *Index) Count() int {
	return len(ix.docs)
}

// Search embeds term and returns up to topK nearest categories by ascending
// cosine distance. Both hierarchy levels are always eligible; the index
// never prefers one level over the other.
func (ix *Index) Search(ctx context.Context, term string, topK int) ([]Hit, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("search term cannot be empty")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vectors, err := ix.embedder.Embed(ctx, []string{term})
	if err != nil {
		return nil, fmt.Errorf("failed to embed term %q: %w", term, err)
	}
	query := vectors[0]

	hits := make([]Hit, 0, len(ix.docs))
	for _, doc := range ix.docs {
		hits = append(hits, Hit{
			Record:   doc.record,
			Distance: cosineDistance(query, doc.vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DefaultTopK is the default candidate count per search term.
const DefaultTopK = 3

func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
