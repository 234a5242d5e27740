// Package search defines the web-search provider port and composes a
// primary search-and-scrape provider with an AI fallback.
package search

import (
	"context"
	"errors"
	"fmt"
)

// Result is one search hit, provider-agnostic. Content is populated only
// when the provider scraped the page.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Content  string `json:"content,omitempty"`
	Provider string `json:"provider"`
}

// SearchOpts controls a single provider call.
type SearchOpts struct {
	Limit         int
	ScrapeContent bool
}

// Provider is a single search backend.
type Provider interface {
	Search(ctx context.Context, query string, opts SearchOpts) ([]Result, error)
	Name() string
	Available() bool
}

// ErrorKind classifies provider failures. The composite reads the kind to
// decide between stopping, retrying, and skipping.
type ErrorKind string

const (
	// KindInsufficientCredits means the provider account is out of quota.
	// Further calls in this run are pointless.
	KindInsufficientCredits ErrorKind = "insufficient_credits"
	// KindRateLimited means the provider throttled the call.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransport covers network failures and provider 5xx responses.
	KindTransport ErrorKind = "transport"
)

// ProviderError wraps a provider failure with its classification.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or "" when err is not a
// ProviderError.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Retryable reports whether a failed call is worth retrying. Credit
// exhaustion is final for the run.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindInsufficientCredits:
		return false
	case KindRateLimited, KindTransport:
		return true
	default:
		return false
	}
}
