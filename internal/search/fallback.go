package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/venturescope/scout/pkg/perplexity"
)

// FallbackName identifies the AI fallback provider in results and logs.
const FallbackName = "perplexity"

const fallbackSystemPrompt = `You are a market research assistant. Answer with a strict JSON array and nothing else. Each element must be an object with exactly these keys: "name", "website", "description", "country". Use full https URLs for websites and plain country names. Do not wrap the array in markdown fences.`

// Fallback asks a chat model with web access to list real companies for
// a query. Its answers are shaped like search results so the extractor
// downstream does not care which provider produced them.
type Fallback struct {
	client perplexity.Client
	apiKey string
}

// NewFallback creates the fallback provider. An empty apiKey marks it
// unavailable.
func NewFallback(client perplexity.Client, apiKey string) *Fallback {
	return &Fallback{client: client, apiKey: apiKey}
}

func (f *Fallback) Name() string { return FallbackName }

func (f *Fallback) Available() bool {
	return f.client != nil && f.apiKey != ""
}

type fallbackHit struct {
	Name        string `json:"name"`
	Website     string `json:"website"`
	Description string `json:"description"`
	Country     string `json:"country"`
}

// Search asks for up to opts.Limit companies matching the query. A
// response that does not parse as the expected JSON array yields an
// empty result, never an error.
func (f *Fallback) Search(ctx context.Context, query string, opts SearchOpts) ([]Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	temp := 0.1
	resp, err := f.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: fallbackSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("List up to %d real companies matching: %s", limit, query)},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, f.classify(err)
	}

	hits := parseFallbackArray(resp.Content())
	if hits == nil {
		zap.L().Warn("fallback response did not contain a JSON array",
			zap.String("query", query))
		return nil, nil
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if h.Name == "" || h.Website == "" {
			continue
		}
		r := Result{
			URL:      h.Website,
			Title:    h.Name,
			Snippet:  h.Description,
			Provider: FallbackName,
		}
		if h.Country != "" {
			r.Content = fmt.Sprintf("%s\nCountry: %s", h.Description, h.Country)
		}
		results = append(results, r)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// parseFallbackArray extracts the first-[ to last-] substring and
// unmarshals it. Returns nil when no well-formed array is present.
func parseFallbackArray(content string) []fallbackHit {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil
	}

	var hits []fallbackHit
	if err := json.Unmarshal([]byte(content[start:end+1]), &hits); err != nil {
		return nil
	}
	return hits
}

func (f *Fallback) classify(err error) error {
	kind := KindTransport
	var apiErr *perplexity.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusPaymentRequired:
			kind = KindInsufficientCredits
		case http.StatusTooManyRequests:
			kind = KindRateLimited
		}
	}
	return &ProviderError{Provider: FallbackName, Kind: kind, Err: err}
}
