package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bimtools/bim-insight/internal/errors"
)

// entry is one cached embedding with its expiry.
type entry struct {
	Key       string    `json:"key"`
	Vector    []float32 `json:"vector"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EmbeddingCache is a file-backed cache for embedding vectors, keyed by a
// hash of provider, model, and text. It saves repeat ingestion runs from
// re-requesting vectors the remote provider already produced.
type EmbeddingCache struct {
	directory string
	ttl       time.Duration
	mu        sync.Mutex
}

// NewEmbeddingCache creates a cache rooted at directory. A zero ttl means
// entries never expire.
func NewEmbeddingCache(directory string, ttl time.Duration) (*EmbeddingCache, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage,
			"failed to create cache directory: %s", directory)
	}

	return &EmbeddingCache{directory: directory, ttl: ttl}, nil
}

// Key derives the cache key for one text under one provider and model.
func Key(provider, model, text string) string {
	sum := sha256.Sum256([]byte(provider + "\x00" + model + "\x00" + text))

	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for a key, or ok=false on a miss. Expired
// entries are removed on access.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = os.Remove(c.path(key))

		return nil, false
	}

	if !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt) {
		_ = os.Remove(c.path(key))

		return nil, false
	}

	return e.Vector, true
}

// Set stores a vector under the key.
func (c *EmbeddingCache) Set(key string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{Key: key, Vector: vector}
	if c.ttl > 0 {
		e.ExpiresAt = time.Now().Add(c.ttl)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal cache entry")
	}

	if err := os.WriteFile(c.path(key), data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to write cache entry")
	}

	return nil
}

// Clear removes every entry.
func (c *EmbeddingCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.directory)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to read cache directory")
	}

	for _, ent := range entries {
		if filepath.Ext(ent.Name()) != ".json" {
			continue
		}

		if err := os.Remove(filepath.Join(c.directory, ent.Name())); err != nil {
			return errors.Wrapf(err, errors.ErrTypeStorage,
				"failed to remove cache entry %s", ent.Name())
		}
	}

	return nil
}

func (c *EmbeddingCache) path(key string) string {
	return filepath.Join(c.directory, key+".json")
}
