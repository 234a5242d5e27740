package search

import (
	"context"
	"errors"
	"net/http"

	"github.com/venturescope/scout/pkg/firecrawl"
)

// PrimaryName identifies the web search-and-scrape provider in results
// and logs.
const PrimaryName = "firecrawl"

// Primary wraps the Firecrawl client as a search Provider. It also
// exposes Scrape for the enrichment path.
type Primary struct {
	client firecrawl.Client
	apiKey string
}

// NewPrimary creates the primary provider. An empty apiKey marks the
// provider unavailable; calls are then skipped upstream.
func NewPrimary(client firecrawl.Client, apiKey string) *Primary {
	return &Primary{client: client, apiKey: apiKey}
}

func (p *Primary) Name() string { return PrimaryName }

func (p *Primary) Available() bool {
	return p.client != nil && p.apiKey != ""
}

// Search runs one query. With opts.ScrapeContent the provider also
// fetches page markdown for each hit.
func (p *Primary) Search(ctx context.Context, query string, opts SearchOpts) ([]Result, error) {
	req := firecrawl.SearchRequest{
		Query: query,
		Limit: opts.Limit,
	}
	if opts.ScrapeContent {
		req.ScrapeOptions = &firecrawl.ScrapeOptions{Formats: []string{"markdown"}}
	}

	resp, err := p.client.Search(ctx, req)
	if err != nil {
		return nil, p.classify(err)
	}

	results := make([]Result, 0, len(resp.Data.Web))
	for _, hit := range resp.Data.Web {
		if hit.URL == "" {
			continue
		}
		results = append(results, Result{
			URL:      hit.URL,
			Title:    hit.Title,
			Snippet:  hit.Description,
			Content:  hit.Markdown,
			Provider: PrimaryName,
		})
	}
	return results, nil
}

// Scrape fetches one page as markdown.
func (p *Primary) Scrape(ctx context.Context, url string) (*firecrawl.PageData, error) {
	resp, err := p.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     url,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return nil, p.classify(err)
	}
	return &resp.Data, nil
}

// classify maps client failures to provider error kinds: 402 means the
// account is out of credits, 429 means throttled, everything else
// (including 5xx and network errors) is transport.
func (p *Primary) classify(err error) error {
	kind := KindTransport
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusPaymentRequired:
			kind = KindInsufficientCredits
		case http.StatusTooManyRequests:
			kind = KindRateLimited
		}
	}
	return &ProviderError{Provider: PrimaryName, Kind: kind, Err: err}
}
