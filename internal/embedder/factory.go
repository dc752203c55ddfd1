package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv.
const (
	EnvBackend      = "DOCONTEXT_EMBEDDING_BACKEND"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// NewFromEnv selects a backend from the environment: an explicit
// DOCONTEXT_EMBEDDING_BACKEND wins, then an available OPENAI_API_KEY, then
// the offline local provider.
func NewFromEnv() (Embedder, error) {
	cache := NewCache(defaultCacheSize)
	key := os.Getenv(EnvOpenAIAPIKey)

	if backend := strings.ToLower(os.Getenv(EnvBackend)); backend != "" {
		switch backend {
		case BackendOpenAI:
			return NewOpenAIProvider(key, cache)
		case BackendLocal:
			return NewLocalProvider(cache), nil
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
		}
	}
	if key != "" {
		return NewOpenAIProvider(key, cache)
	}
	return NewLocalProvider(cache), nil
}
