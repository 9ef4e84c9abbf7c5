package vectorstore

import (
	"context"
	"math"
)

// Document is one embedded record held by a collection. IDs are stable
// across rebuilds of the same source data, so re-ingestion overwrites
// rather than duplicates.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Hit is one similarity-search result. Distance is cosine distance
// (1 minus cosine similarity), smaller is closer.
type Hit struct {
	ID       string
	Content  string
	Metadata map[string]string
	Distance float64
}

// Store is a collection-oriented vector store. Implementations must
// return a collection-not-found error (errors.ErrTypeCollectionNotFound)
// from Search and Count when the collection does not exist.
type Store interface {
	// Initialize prepares the backing schema. Idempotent.
	Initialize(ctx context.Context) error

	// HasCollection reports whether a collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// CreateCollection creates an empty collection for vectors of the
	// given dimensionality.
	CreateCollection(ctx context.Context, name string, dimensions int) error

	// DropCollection removes a collection and all its documents.
	// Dropping a nonexistent collection is not an error.
	DropCollection(ctx context.Context, name string) error

	// Upsert inserts or replaces documents by ID.
	Upsert(ctx context.Context, collection string, docs []Document) error

	// Search returns the topK nearest documents by cosine distance,
	// closest first. Ties are broken by document ID for stable output.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close releases the underlying resources.
	Close() error
}

// CosineDistance computes 1 minus the cosine similarity of two vectors.
// A zero vector has no direction and is treated as maximally distant.
func CosineDistance(a, b []float32) float64 {
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
