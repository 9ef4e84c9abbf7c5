package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimtools/bim-insight/internal/errors"
)

func seedDocs() []Document {
	return []Document{
		{ID: "wall_0", Content: "wall one", Metadata: map[string]string{"element_type": "wall"}, Embedding: []float32{1, 0, 0}},
		{ID: "wall_1", Content: "wall two", Metadata: map[string]string{"element_type": "wall"}, Embedding: []float32{0.9, 0.1, 0}},
		{ID: "door_0", Content: "door one", Metadata: map[string]string{"element_type": "door"}, Embedding: []float32{0, 1, 0}},
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Initialize(ctx))

	exists, err := store.HasCollection(ctx, "bim_elements")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateCollection(ctx, "bim_elements", 3))

	exists, err = store.HasCollection(ctx, "bim_elements")
	require.NoError(t, err)
	assert.True(t, exists)

	// Creating twice fails.
	require.Error(t, store.CreateCollection(ctx, "bim_elements", 3))

	require.NoError(t, store.DropCollection(ctx, "bim_elements"))

	exists, err = store.HasCollection(ctx, "bim_elements")
	require.NoError(t, err)
	assert.False(t, exists)

	// Dropping a nonexistent collection is fine.
	require.NoError(t, store.DropCollection(ctx, "bim_elements"))
}

func TestMemoryStoreUpsertAndCount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateCollection(ctx, "c", 3))
	require.NoError(t, store.Upsert(ctx, "c", seedDocs()))

	count, err := store.Count(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Re-upserting the same IDs replaces, not duplicates.
	require.NoError(t, store.Upsert(ctx, "c", seedDocs()))

	count, err = store.Count(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMemoryStoreSearchOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateCollection(ctx, "c", 3))
	require.NoError(t, store.Upsert(ctx, "c", seedDocs()))

	hits, err := store.Search(ctx, "c", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "wall_0", hits[0].ID)
	assert.Equal(t, "wall_1", hits[1].ID)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
	assert.Equal(t, "wall", hits[0].Metadata["element_type"])
}

func TestMemoryStoreSearchTopKBounds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateCollection(ctx, "c", 3))
	require.NoError(t, store.Upsert(ctx, "c", seedDocs()))

	hits, err := store.Search(ctx, "c", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestMemoryStoreCollectionNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Search(ctx, "nope", []float32{1}, 5)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeCollectionNotFound))

	_, err = store.Count(ctx, "nope")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeCollectionNotFound))

	err = store.Upsert(ctx, "nope", seedDocs())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeCollectionNotFound))
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: 2},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}
