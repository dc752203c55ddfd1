// Package embedder generates vector embeddings for chunk text. Providers
// share an LRU cache keyed by content hash so reprocessing unchanged text
// never pays for a second model call.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrProviderFailed = errors.New("embedding provider failed")
	ErrUnknownBackend = errors.New("unknown embedding backend")
)

// Vector is one embedding with its provenance.
type Vector struct {
	Values    []float32
	Dimension int
	Provider  string
	Hash      string
}

// Embedder turns text into vectors. All implementations are safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) (*Vector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]*Vector, error)
	Dimension() int
	Provider() string
	Close() error
}

// Cache is an LRU of vectors keyed by content hash. Get returns a copy so
// callers cannot mutate cached values.
type Cache struct {
	inner *lru.Cache[string, *Vector]
}

const defaultCacheSize = 10000

// NewCache creates a cache holding up to maxLen vectors.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = defaultCacheSize
	}
	inner, err := lru.New[string, *Vector](maxLen)
	if err != nil {
		inner, _ = lru.New[string, *Vector](defaultCacheSize)
	}
	return &Cache{inner: inner}
}

func (c *Cache) Get(hash string) (*Vector, bool) {
	v, ok := c.inner.Get(hash)
	if !ok {
		return nil, false
	}
	values := make([]float32, len(v.Values))
	copy(values, v.Values)
	return &Vector{Values: values, Dimension: v.Dimension, Provider: v.Provider, Hash: v.Hash}, true
}

func (c *Cache) Set(hash string, v *Vector) { c.inner.Add(hash, v) }
func (c *Cache) Size() int                  { return c.inner.Len() }
func (c *Cache) Clear()                     { c.inner.Purge() }

// ContentHash is the cache key for a piece of text.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func validateBatch(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrEmptyText)
	}
	for i, t := range texts {
		if t == "" {
			return fmt.Errorf("%w: text at index %d", ErrEmptyText, i)
		}
	}
	return nil
}
