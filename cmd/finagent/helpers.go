package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/config"
	"github.com/irishask/financial-ai-agent/internal/index"
	"github.com/irishask/financial-ai-agent/internal/resolver"
	"github.com/irishask/financial-ai-agent/internal/storage"
)

// initStorage initializes the ledger store with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir(), "ledger.db")
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func indexPath() string {
	path := viper.GetString("index.path")
	if path == "" {
		path = filepath.Join(config.DataDir(), "index.db")
	}
	return config.ExpandPath(path)
}

func indexCollection() string {
	collection := viper.GetString("index.collection")
	if collection == "" {
		collection = "transaction_categories"
	}
	return collection
}

func embeddingModel() string {
	return viper.GetString("openai.embedding_model")
}

func openAIKey() (string, error) {
	key := viper.GetString("openai.api_key")
	if key == "" {
		return "", common.NewUserError(
			"OpenAI API key is not configured (set FINAGENT_OPENAI_API_KEY or add openai.api_key to the config file)",
			common.ErrMissingConfig)
	}
	return key, nil
}

// initIndexProvider opens the persisted category index behind a lazy
// provider. The embedder is only exercised when a search actually runs.
func initIndexProvider() (*index.Provider, error) {
	key, err := openAIKey()
	if err != nil {
		return nil, err
	}
	embedder, err := index.NewOpenAIEmbedder(key, embeddingModel())
	if err != nil {
		return nil, err
	}
	store, err := index.OpenStore(indexPath())
	if err != nil {
		return nil, err
	}
	return index.NewProvider(store, embedder, indexCollection()), nil
}

// providerSearcher adapts a lazy index provider to the resolver's search
// interface so an unbuilt index surfaces as resolution-unavailable at
// query time instead of failing startup.
type providerSearcher struct {
	provider *index.Provider
}

func (p providerSearcher) Search(ctx context.Context, term string, topK int) ([]index.Hit, error) {
	ix, err := p.provider.Get(ctx)
	if err != nil {
		return nil, err
	}
	return ix.Search(ctx, term, topK)
}

func initResolver(provider *index.Provider) *resolver.Resolver {
	var opts []resolver.Option
	if k := viper.GetInt("index.top_k"); k > 0 {
		opts = append(opts, resolver.WithTopK(k))
	}
	if floor := viper.GetFloat64("index.confidence_floor"); floor > 0 {
		opts = append(opts, resolver.WithConfidenceFloor(floor))
	}
	return resolver.New(providerSearcher{provider: provider}, opts...)
}
