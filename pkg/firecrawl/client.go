// Package firecrawl is a client for the Firecrawl v2 search, scrape,
// extract, and crawl APIs.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the Firecrawl v2 API.
const defaultBaseURL = "https://api.firecrawl.dev/v2"

// Client defines the Firecrawl v2 API operations.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error)
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)
	Crawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error)
	GetCrawlStatus(ctx context.Context, id string) (*CrawlStatusResponse, error)
}

// ScrapeOptions controls content capture on search results and crawl
// pages.
type ScrapeOptions struct {
	Formats []string `json:"formats,omitempty"`
}

// SearchRequest is the body for POST /search.
type SearchRequest struct {
	Query         string         `json:"query"`
	Limit         int            `json:"limit,omitempty"`
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

// SearchResponse is the response from POST /search.
type SearchResponse struct {
	Success bool       `json:"success"`
	Data    SearchData `json:"data"`
}

// SearchData groups ranked web results.
type SearchData struct {
	Web []WebResult `json:"web"`
}

// WebResult is a single ranked search hit. Markdown is populated only
// when the request asked for scraped content.
type WebResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Markdown    string `json:"markdown,omitempty"`
}

// ScrapeRequest is the body for POST /scrape.
type ScrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats,omitempty"`
}

// ScrapeResponse is the response from POST /scrape.
type ScrapeResponse struct {
	Success bool     `json:"success"`
	Data    PageData `json:"data"`
}

// PageData represents one scraped page.
type PageData struct {
	URL      string       `json:"url"`
	Markdown string       `json:"markdown"`
	Metadata PageMetadata `json:"metadata"`
}

// PageMetadata carries page-level metadata from a scrape.
type PageMetadata struct {
	Title      string `json:"title"`
	SourceURL  string `json:"sourceURL"`
	StatusCode int    `json:"statusCode"`
}

// ExtractRequest is the body for POST /extract: JSON-schema structured
// extraction over one or more URLs.
type ExtractRequest struct {
	URLs   []string       `json:"urls"`
	Prompt string         `json:"prompt,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
}

// ExtractResponse is the response from POST /extract. Data is the raw
// JSON object matching the requested schema.
type ExtractResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// CrawlRequest is the body for POST /crawl.
type CrawlRequest struct {
	URL          string         `json:"url"`
	Limit        int            `json:"limit,omitempty"`
	IncludePaths []string       `json:"includePaths,omitempty"`
	ScrapeOpts   *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

// CrawlResponse is the response from POST /crawl.
type CrawlResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// CrawlStatusResponse is the response from GET /crawl/{id}.
type CrawlStatusResponse struct {
	Status string     `json:"status"`
	Total  int        `json:"total"`
	Data   []PageData `json:"data"`
}

// APIError is returned when Firecrawl responds with a non-2xx status.
// Callers inspect StatusCode to distinguish credit exhaustion (402) and
// rate limiting (429) from transport failures.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firecrawl: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Firecrawl client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.post(ctx, "/search", req, &resp); err != nil {
		return nil, eris.Wrap(err, "firecrawl: search")
	}
	return &resp, nil
}

func (c *httpClient) Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error) {
	var resp ScrapeResponse
	if err := c.post(ctx, "/scrape", req, &resp); err != nil {
		return nil, eris.Wrap(err, "firecrawl: scrape")
	}
	return &resp, nil
}

func (c *httpClient) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	var resp ExtractResponse
	if err := c.post(ctx, "/extract", req, &resp); err != nil {
		return nil, eris.Wrap(err, "firecrawl: extract")
	}
	return &resp, nil
}

func (c *httpClient) Crawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error) {
	var resp CrawlResponse
	if err := c.post(ctx, "/crawl", req, &resp); err != nil {
		return nil, eris.Wrap(err, "firecrawl: start crawl")
	}
	return &resp, nil
}

func (c *httpClient) GetCrawlStatus(ctx context.Context, id string) (*CrawlStatusResponse, error) {
	var resp CrawlStatusResponse
	if err := c.get(ctx, fmt.Sprintf("/crawl/%s", id), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("firecrawl: get crawl status %s", id))
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
