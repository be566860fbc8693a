package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// embedBatchSize bounds how many descriptions go into one embedding call.
const embedBatchSize = 32

// BuildOptions configures an index build.
type BuildOptions struct {
	KnowledgeBasePath string
	Collection        string
	EmbeddingModel    string
	Force             bool
	ShowProgress      bool
}

// Build loads the named collection from the store, or (when absent or
// Force is set) rebuilds it from the knowledge base: embed every category
// description, then atomically replace the persisted collection. The
// returned Index is a fresh immutable snapshot either way.
func Build(ctx context.Context, store *Store, embedder Embedder, opts BuildOptions) (*Index, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}

	if !opts.Force {
		count, err := store.Count(ctx, opts.Collection)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return loadIndex(ctx, store, embedder, opts.Collection)
		}
	}

	records, err := LoadKnowledgeBase(opts.KnowledgeBasePath)
	if err != nil {
		return nil, err
	}
	slog.Info("building category index",
		"collection", opts.Collection,
		"categories", len(records),
		"force", opts.Force)

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = EmbeddingText(rec)
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(texts)), "embedding categories")
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed categories %d-%d: %w", start, end-1, err)
		}
		vectors = append(vectors, batch...)
		if bar != nil {
			_ = bar.Add(end - start)
		}
	}

	if err := store.Save(ctx, opts.Collection, opts.EmbeddingModel, records, vectors); err != nil {
		return nil, err
	}

	return New(opts.Collection, embedder, records, vectors)
}

func loadIndex(ctx context.Context, store *Store, embedder Embedder, collection string) (*Index, error) {
	records, vectors, err := store.Load(ctx, collection)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded category index", "collection", collection, "categories", len(records))
	return New(collection, embedder, records, vectors)
}
