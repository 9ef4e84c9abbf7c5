package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/bimtools/bim-insight/internal/config"
	"github.com/bimtools/bim-insight/internal/errors"
)

// DuckDBStore persists collections in a single DuckDB file. Embeddings are
// stored as JSON float arrays and scored in process; collection sizes here
// are a few thousand rows, so a brute-force scan stays well inside
// interactive latency.
type DuckDBStore struct {
	db   *sql.DB
	path string
}

// NewDuckDBStore opens (or creates) the store file with connection pooling
// configured from StoreConfig.
func NewDuckDBStore(cfg config.StoreConfig) (*DuckDBStore, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage,
			"failed to create store directory: %s", dir)
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage,
			"failed to open vector store: %s", cfg.Path)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		db.SetConnMaxLifetime(lifetime)
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to ping vector store")
	}

	return &DuckDBStore{db: db, path: cfg.Path}, nil
}

// Initialize creates the backing tables. Idempotent.
func (s *DuckDBStore) Initialize(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name       VARCHAR PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			collection VARCHAR NOT NULL,
			id         VARCHAR NOT NULL,
			content    VARCHAR NOT NULL,
			metadata   VARCHAR NOT NULL,
			embedding  VARCHAR NOT NULL,
			PRIMARY KEY (collection, id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.ErrTypeStorage, "failed to initialize store schema")
		}
	}

	return nil
}

func (s *DuckDBStore) HasCollection(ctx context.Context, name string) (bool, error) {
	var count int

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM collections WHERE name = ?", name).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrTypeStorage, "failed to check collection")
	}

	return count > 0, nil
}

func (s *DuckDBStore) CreateCollection(ctx context.Context, name string, dimensions int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO collections (name, dimensions) VALUES (?, ?)", name, dimensions)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to create collection %s", name)
	}

	return nil
}

func (s *DuckDBStore) DropCollection(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ?", name); err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to drop documents of %s", name)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM collections WHERE name = ?", name); err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to drop collection %s", name)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to commit drop")
	}

	return nil
}

// Upsert inserts or replaces documents by ID inside one transaction, so a
// failed batch leaves no partial writes behind.
func (s *DuckDBStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO documents (collection, id, content, metadata, embedding)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to prepare upsert")
	}
	defer stmt.Close()

	for _, doc := range docs {
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeInternal,
				"failed to marshal metadata for %s", doc.ID)
		}

		embedding, err := json.Marshal(doc.Embedding)
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeInternal,
				"failed to marshal embedding for %s", doc.ID)
		}

		if _, err := stmt.ExecContext(ctx,
			collection, doc.ID, doc.Content, string(metadata), string(embedding)); err != nil {
			return errors.Wrapf(err, errors.ErrTypeStorage, "failed to upsert document %s", doc.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to commit upsert")
	}

	return nil
}

// Search scans the collection and scores every document by cosine
// distance, returning the topK closest. Equal distances are ordered by
// document ID.
func (s *DuckDBStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error) {
	exists, err := s.HasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, errors.NewCollectionNotFound(collection)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata, embedding FROM documents WHERE collection = ?", collection)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to scan collection")
	}
	defer rows.Close()

	var hits []Hit

	for rows.Next() {
		var id, content, metadataJSON, embeddingJSON string
		if err := rows.Scan(&id, &content, &metadataJSON, &embeddingJSON); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to scan document row")
		}

		var metadata map[string]string
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeStorage,
				"corrupt metadata for document %s", id)
		}

		var embedding []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeStorage,
				"corrupt embedding for document %s", id)
		}

		hits = append(hits, Hit{
			ID:       id,
			Content:  content,
			Metadata: metadata,
			Distance: CosineDistance(vector, embedding),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to iterate collection")
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}

		return hits[i].ID < hits[j].ID
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}

	return hits, nil
}

func (s *DuckDBStore) Count(ctx context.Context, collection string) (int, error) {
	exists, err := s.HasCollection(ctx, collection)
	if err != nil {
		return 0, err
	}

	if !exists {
		return 0, errors.NewCollectionNotFound(collection)
	}

	var count int

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE collection = ?", collection).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeStorage, "failed to count documents")
	}

	return count, nil
}

func (s *DuckDBStore) Close() error {
	return s.db.Close()
}
