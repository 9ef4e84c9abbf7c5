package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/bimtools/bim-insight/internal/errors"
)

// MemoryStore is a brute-force in-memory Store. It backs tests and is
// handy for one-shot runs that never need the data again.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimensions int
	docs       map[string]Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) Initialize(_ context.Context) error { return nil }

func (s *MemoryStore) HasCollection(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.collections[name]

	return ok, nil
}

func (s *MemoryStore) CreateCollection(_ context.Context, name string, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; ok {
		return errors.Newf(errors.ErrTypeStorage, "collection %s already exists", name)
	}

	s.collections[name] = &memoryCollection{
		dimensions: dimensions,
		docs:       make(map[string]Document),
	}

	return nil
}

func (s *MemoryStore) DropCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, name)

	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return errors.NewCollectionNotFound(collection)
	}

	for _, doc := range docs {
		coll.docs[doc.ID] = doc
	}

	return nil
}

func (s *MemoryStore) Search(_ context.Context, collection string, vector []float32, topK int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, errors.NewCollectionNotFound(collection)
	}

	hits := make([]Hit, 0, len(coll.docs))

	for _, doc := range coll.docs {
		hits = append(hits, Hit{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
			Distance: CosineDistance(vector, doc.Embedding),
		})
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

func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return 0, errors.NewCollectionNotFound(collection)
	}

	return len(coll.docs), nil
}

func (s *MemoryStore) Close() error { return nil }
