// Package embeddings is a client for an OpenAI-compatible embedding
// endpoint, with an optional Redis-backed vector cache. The pipeline
// uses it for semantic dedup only; every failure here is advisory.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultModel = "text-embedding-3-small"

// Generator produces a vector embedding for a text.
type Generator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Cache stores vectors by key. Implementations must treat failures as
// misses; the caller never sees a cache error.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration)
}

// Option configures the client.
type Option func(*Client)

// WithModel overrides the default embedding model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithCache attaches a vector cache.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client calls POST {base}/embeddings with the OpenAI request shape.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	ttl     time.Duration
	cache   Cache
	http    *http.Client
}

// NewClient creates an embedding client. baseURL is required; an empty
// key is allowed for unauthenticated local services.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   defaultModel,
		ttl:     24 * time.Hour,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the vector for a single text, consulting the cache
// first.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.model, text)
	if c.cache != nil {
		if vec, ok := c.cache.Get(ctx, key); ok {
			return vec, nil
		}
	}

	body, err := json.Marshal(embedRequest{Input: []string{text}, Model: c.model})
	if err != nil {
		return nil, eris.Wrap(err, "embeddings: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "embeddings: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "embeddings: send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "embeddings: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("embeddings: unexpected status %d: %s", resp.StatusCode, string(data))
	}

	var parsed embedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, eris.Wrap(err, "embeddings: unmarshal response")
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, eris.New("embeddings: empty response")
	}

	vec := parsed.Data[0].Embedding
	if c.cache != nil {
		c.cache.Set(ctx, key, vec, c.ttl)
	}
	return vec, nil
}
