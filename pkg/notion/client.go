// Package notion publishes approved competitors to a Notion review
// database through the official API, throttled to Notion's documented
// rate limit.
package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the subset of the Notion API the publisher needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures the client.
type ClientOption func(*apiClient)

// WithRateLimit overrides the default 3 req/s throttle. Zero or negative
// disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *apiClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type apiClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
}

// NewClient wraps the Notion SDK with request throttling. The default
// limit matches Notion's published 3 req/s.
func NewClient(token string, opts ...ClientOption) Client {
	c := &apiClient{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(3, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *apiClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *apiClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "notion: rate limit")
	}
	resp, err := c.inner.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("notion: query database %s", dbID))
	}
	return resp, nil
}

func (c *apiClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "notion: rate limit")
	}
	page, err := c.inner.Page.Create(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	return page, nil
}

func (c *apiClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "notion: rate limit")
	}
	page, err := c.inner.Page.Update(ctx, notionapi.PageID(pageID), req)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("notion: update page %s", pageID))
	}
	return page, nil
}
