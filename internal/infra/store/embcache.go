package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// EmbeddingCache maps record ids to embedding vectors, persisted as one
// JSON file. Records never change once written, so cache entries never
// need invalidation. The cache is safe for concurrent use.
type EmbeddingCache struct {
	path string

	mu      sync.RWMutex
	entries map[string][]float32
	dirty   bool
}

// OpenEmbeddingCache loads the cache file if present; a missing file
// starts an empty cache. A corrupt file is discarded rather than failing
// the cycle, since every entry can be recomputed.
func OpenEmbeddingCache(path string) (*EmbeddingCache, error) {
	c := &EmbeddingCache{
		path:    path,
		entries: make(map[string][]float32),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.entries = make(map[string][]float32)
	}
	return c, nil
}

// Get returns the cached vector for a record id.
func (c *EmbeddingCache) Get(recordID string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[recordID]
	return v, ok
}

// Put stores a vector. The cache is flushed to disk lazily via Flush.
func (c *EmbeddingCache) Put(recordID string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[recordID] = vec
	c.dirty = true
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush writes the cache to disk if anything changed since the last flush.
func (c *EmbeddingCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("marshal embedding cache: %w", err)
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("write embedding cache: %w", err)
	}
	c.dirty = false
	return nil
}
