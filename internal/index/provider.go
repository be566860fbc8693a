package index

import (
	"context"
	"sync"
	"sync/atomic"
)

// Provider is the process-wide handle to the category index: lazily opened
// on first use, then read concurrently without locking. Rebuilds swap in a
// whole new Index so readers never observe a partial collection.
type Provider struct {
	store      *Store
	embedder   Embedder
	collection string

	once    sync.Once
	initErr error
	current atomic.Pointer[Index]
}

// NewProvider creates a provider over a store and embedder. Nothing is
// loaded until the first Get.
func NewProvider(store *Store, embedder Embedder, collection string) *Provider {
	return &Provider{
		store:      store,
		embedder:   embedder,
		collection: collection,
	}
}

// Get returns the current index, loading it from the store exactly once.
// A Swap (after an explicit rebuild) supersedes a failed initial load.
func (p *Provider) Get(ctx context.Context) (*Index, error) {
	if ix := p.current.Load(); ix != nil {
		return ix, nil
	}
	p.once.Do(func() {
		ix, err := loadIndex(ctx, p.store, p.embedder, p.collection)
		if err != nil {
			p.initErr = err
			return
		}
		p.current.Store(ix)
	})
	if p.initErr != nil {
		return nil, p.initErr
	}
	return p.current.Load(), nil
}

// Swap atomically replaces the in-memory index after a rebuild.
func (p *Provider) Swap(ix *Index) {
	p.current.Store(ix)
}

// Close releases the underlying store.
func (p *Provider) Close() error {
	return p.store.Close()
}
