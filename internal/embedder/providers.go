package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

const (
	BackendOpenAI = "openai"
	BackendLocal  = "local"

	openAIModel     = "text-embedding-3-small"
	openAIDimension = 1536
	localDimension  = 384

	maxBatchSize = 100
)

// OpenAIProvider calls the OpenAI embeddings API.
type OpenAIProvider struct {
	apiKey string
	client *http.Client
	cache  *Cache
}

// NewOpenAIProvider builds the API-backed provider.
func NewOpenAIProvider(apiKey string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrProviderFailed)
	}
	return &OpenAIProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
	}, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) (*Vector, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	hash := ContentHash(text)
	if p.cache != nil {
		if v, ok := p.cache.Get(hash); ok {
			return v, nil
		}
	}
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Vector, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	if len(texts) > maxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts per batch", ErrProviderFailed, maxBatchSize)
	}

	vecs, err := retryWithBackoff(ctx, func() ([]*Vector, error) {
		return p.callAPI(ctx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, maxRetries, err)
	}

	if p.cache != nil {
		for i, v := range vecs {
			v.Hash = ContentHash(texts[i])
			p.cache.Set(v.Hash, v)
		}
	}
	return vecs, nil
}

func (p *OpenAIProvider) callAPI(ctx context.Context, texts []string) ([]*Vector, error) {
	body, err := json.Marshal(map[string]any{
		"input": texts,
		"model": openAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(raw))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vecs := make([]*Vector, len(apiResp.Data))
	for i, d := range apiResp.Data {
		vecs[i] = &Vector{
			Values:    d.Embedding,
			Dimension: len(d.Embedding),
			Provider:  BackendOpenAI,
		}
	}
	return vecs, nil
}

func (p *OpenAIProvider) Dimension() int   { return openAIDimension }
func (p *OpenAIProvider) Provider() string { return BackendOpenAI }
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// LocalProvider derives a deterministic vector from the text's hash. It
// exists so the pipeline works offline; similarity quality is limited to
// exact-content matching.
type LocalProvider struct {
	cache *Cache
}

// NewLocalProvider builds the offline provider.
func NewLocalProvider(cache *Cache) *LocalProvider {
	return &LocalProvider{cache: cache}
}

func (p *LocalProvider) Embed(ctx context.Context, text string) (*Vector, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hash := ContentHash(text)
	if p.cache != nil {
		if v, ok := p.cache.Get(hash); ok {
			return v, nil
		}
	}

	values := make([]float32, localDimension)
	seed := []byte(text)
	for i := 0; i < localDimension; i += sha256.Size {
		sum := sha256.Sum256(seed)
		for j := 0; j < sha256.Size && i+j < localDimension; j++ {
			values[i+j] = float32(sum[j])/127.5 - 1
		}
		seed = sum[:]
	}
	normalize(values)

	v := &Vector{Values: values, Dimension: localDimension, Provider: BackendLocal, Hash: hash}
	if p.cache != nil {
		p.cache.Set(hash, v)
	}
	return v, nil
}

func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Vector, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	vecs := make([]*Vector, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

func (p *LocalProvider) Dimension() int   { return localDimension }
func (p *LocalProvider) Provider() string { return BackendLocal }
func (p *LocalProvider) Close() error     { return nil }

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
