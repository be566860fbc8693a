package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/irishask/financial-ai-agent/internal/common"
	"github.com/irishask/financial-ai-agent/internal/model"
)

// Store persists built category collections locally, keyed by collection
// name. Rebuild-vs-load is always an explicit caller decision.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (creating if needed) the local index store.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: index store path", common.ErrMissingConfig)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping index store: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			embedding_model TEXT,
			built_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			level TEXT NOT NULL,
			parent_id TEXT,
			parent_name TEXT,
			description TEXT,
			embedding BLOB NOT NULL,
			PRIMARY KEY (collection, id),
			FOREIGN KEY (collection) REFERENCES collections(name)
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return nil, fmt.Errorf("failed to create index schema: %w", err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the named collection in a single transaction: readers load
// either the old collection or the new one, never a partial mix.
func (s *Store) Save(ctx context.Context, collection, embeddingModel string, records []model.CategoryRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("record/vector count mismatch: %d vs %d", len(records), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("failed to clear collection %q: %w", collection, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO collections (name, embedding_model, built_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		collection, embeddingModel); err != nil {
		return fmt.Errorf("failed to upsert collection %q: %w", collection, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, id, name, level, parent_id, parent_name, description, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			collection, rec.ID, rec.Name, string(rec.Level),
			rec.ParentID, rec.ParentName, rec.Description,
			encodeVector(vectors[i]),
		); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection %q: %w", collection, err)
	}
	return nil
}

// Load reads the named collection. Returns common.ErrResolutionUnavailable
// when the collection does not exist or is empty.
func (s *Store) Load(ctx context.Context, collection string) ([]model.CategoryRecord, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, level, parent_id, parent_name, description, embedding
		FROM documents
		WHERE collection = ?
		ORDER BY id`, collection)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrResolutionUnavailable, err)
	}
	defer rows.Close()

	var records []model.CategoryRecord
	var vectors [][]float32
	for rows.Next() {
		var rec model.CategoryRecord
		var level string
		var parentID, parentName, description sql.NullString
		var blob []byte

		if err := rows.Scan(&rec.ID, &rec.Name, &level, &parentID, &parentName, &description, &blob); err != nil {
			return nil, nil, fmt.Errorf("failed to scan document: %w", err)
		}
		rec.Level = model.CategoryLevel(level)
		rec.ParentID = parentID.String
		rec.ParentName = parentName.String
		rec.Description = description.String

		records = append(records, rec)
		vectors = append(vectors, decodeVector(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating documents: %w", err)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: collection %q is empty or missing; run 'finagent index build' first",
			common.ErrResolutionUnavailable, collection)
	}
	return records, vectors, nil
}

// Count returns the number of documents in the named collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Embeddings are stored as little-endian float32 blobs.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}
