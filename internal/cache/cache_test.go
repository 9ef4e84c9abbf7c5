package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDistinguishesInputs(t *testing.T) {
	base := Key("remote", "text-embedding-3-small", "wall W1")

	assert.Equal(t, base, Key("remote", "text-embedding-3-small", "wall W1"))
	assert.NotEqual(t, base, Key("remote", "text-embedding-3-small", "wall W2"))
	assert.NotEqual(t, base, Key("remote", "other-model", "wall W1"))
	assert.NotEqual(t, base, Key("other", "text-embedding-3-small", "wall W1"))
}

func TestCacheSetGetRoundTrip(t *testing.T) {
	c, err := NewEmbeddingCache(t.TempDir(), 0)
	require.NoError(t, err)

	key := Key("remote", "m", "text")
	want := []float32{0.1, 0.2, 0.3}

	require.NoError(t, c.Set(key, want))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestCacheMiss(t *testing.T) {
	c, err := NewEmbeddingCache(t.TempDir(), 0)
	require.NoError(t, err)

	_, ok := c.Get(Key("remote", "m", "never stored"))
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c, err := NewEmbeddingCache(t.TempDir(), time.Nanosecond)
	require.NoError(t, err)

	key := Key("remote", "m", "text")
	require.NoError(t, c.Set(key, []float32{1}))

	time.Sleep(time.Millisecond)

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCacheClear(t *testing.T) {
	c, err := NewEmbeddingCache(t.TempDir(), 0)
	require.NoError(t, err)

	key := Key("remote", "m", "text")
	require.NoError(t, c.Set(key, []float32{1}))
	require.NoError(t, c.Clear())

	_, ok := c.Get(key)
	assert.False(t, ok)
}
