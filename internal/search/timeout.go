package search

import (
	"context"
	"time"
)

// Timebound wraps a provider so every Search call runs under its own
// deadline. A hanging provider then costs one call, not the whole run.
func Timebound(p Provider, timeout time.Duration) Provider {
	return &timebound{inner: p, timeout: timeout}
}

type timebound struct {
	inner   Provider
	timeout time.Duration
}

func (t *timebound) Search(ctx context.Context, query string, opts SearchOpts) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Search(ctx, query, opts)
}

func (t *timebound) Name() string    { return t.inner.Name() }
func (t *timebound) Available() bool { return t.inner.Available() }
