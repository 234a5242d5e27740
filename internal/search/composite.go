package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/venturescope/scout/internal/metrics"
	"github.com/venturescope/scout/internal/resilience"
)

// CompositeOptions tunes pacing and retry behavior.
type CompositeOptions struct {
	// InterCall is the minimum spacing between individual provider calls.
	// Default 500ms.
	InterCall time.Duration
	// InterQuery is the minimum spacing between queries. Default 1s.
	InterQuery time.Duration
	// PerQueryLimit is the result limit passed to the primary for each
	// query. Default 10.
	PerQueryLimit int
	// FallbackLimit is the result limit for the single fallback call.
	// Default 10.
	FallbackLimit int
	// Retry overrides the per-call retry policy.
	Retry *resilience.RetryConfig
	// OnCall is invoked before each provider request, for spend and
	// metrics accounting. May be nil.
	OnCall func(provider string)
}

func (o *CompositeOptions) defaults() {
	if o.InterCall <= 0 {
		o.InterCall = 500 * time.Millisecond
	}
	if o.InterQuery <= 0 {
		o.InterQuery = time.Second
	}
	if o.PerQueryLimit <= 0 {
		o.PerQueryLimit = 10
	}
	if o.FallbackLimit <= 0 {
		o.FallbackLimit = 10
	}
}

// Composite runs a query plan against the primary provider and falls
// back to the AI provider when the primary yields nothing. Individual
// query failures are skipped; the composite itself fails only on
// context cancellation.
type Composite struct {
	primary  Provider
	fallback Provider
	breaker  *resilience.CircuitBreaker
	callPace *rate.Limiter
	retry    resilience.RetryConfig
	opts     CompositeOptions
}

// NewComposite wires the two providers. Either may be unavailable; an
// unavailable primary routes every plan straight to the fallback.
func NewComposite(primary, fallback Provider, opts CompositeOptions) *Composite {
	opts.defaults()

	retry := resilience.ProviderRetry()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	retry.ShouldRetry = Retryable

	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	breakerCfg.ShouldTrip = func(err error) bool {
		return KindOf(err) == KindTransport
	}
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("primary search breaker state changed",
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}

	return &Composite{
		primary:  primary,
		fallback: fallback,
		breaker:  resilience.NewCircuitBreaker(breakerCfg),
		callPace: rate.NewLimiter(rate.Every(opts.InterCall), 1),
		retry:    retry,
		opts:     opts,
	}
}

// Run executes every query in order and returns the deduplicated
// aggregate. Results keep first-seen order; a URL appearing under two
// providers is kept from whichever produced it first.
func (c *Composite) Run(ctx context.Context, queries []string) ([]Result, error) {
	var (
		aggregate        []Result
		creditsExhausted bool
	)

	if c.primary != nil && c.primary.Available() {
		queryPace := rate.NewLimiter(rate.Every(c.opts.InterQuery), 1)
		for _, query := range queries {
			if err := queryPace.Wait(ctx); err != nil {
				return nil, err
			}

			results, err := c.searchPrimary(ctx, query)
			if err != nil {
				metrics.SearchCalls.WithLabelValues(c.primary.Name(), "error").Inc()
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if KindOf(err) == KindInsufficientCredits {
					zap.L().Warn("primary search credits exhausted, stopping query plan",
						zap.String("query", query))
					creditsExhausted = true
					break
				}
				zap.L().Warn("query skipped after retries",
					zap.String("query", query),
					zap.Error(err))
				continue
			}
			metrics.SearchCalls.WithLabelValues(c.primary.Name(), "ok").Inc()
			aggregate = append(aggregate, results...)
		}
	} else {
		zap.L().Info("primary search provider unavailable")
	}

	aggregate = dedupeByURL(aggregate)

	if (len(aggregate) == 0 || creditsExhausted) && c.fallback != nil && c.fallback.Available() {
		if c.opts.OnCall != nil {
			c.opts.OnCall(c.fallback.Name())
		}
		results, err := c.fallback.Search(ctx, joinQueries(queries), SearchOpts{Limit: c.opts.FallbackLimit})
		if err != nil {
			metrics.SearchCalls.WithLabelValues(c.fallback.Name(), "error").Inc()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zap.L().Warn("fallback search failed", zap.Error(err))
		} else {
			metrics.SearchCalls.WithLabelValues(c.fallback.Name(), "ok").Inc()
			aggregate = dedupeByURL(append(aggregate, results...))
		}
	}

	return aggregate, nil
}

func (c *Composite) searchPrimary(ctx context.Context, query string) ([]Result, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]Result, error) {
		if err := c.callPace.Wait(ctx); err != nil {
			return nil, err
		}
		if c.opts.OnCall != nil {
			c.opts.OnCall(c.primary.Name())
		}
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]Result, error) {
			return c.primary.Search(ctx, query, SearchOpts{
				Limit:         c.opts.PerQueryLimit,
				ScrapeContent: true,
			})
		})
	})
}

// dedupeByURL drops repeated URLs, keeping first-seen order.
func dedupeByURL(results []Result) []Result {
	if len(results) == 0 {
		return results
	}
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}

// joinQueries collapses a query plan into one fallback prompt. The
// first query carries the vertical and geography; extra keyword queries
// only add noise past the first few.
func joinQueries(queries []string) string {
	if len(queries) == 0 {
		return ""
	}
	return queries[0]
}

// IsCircuitOpen reports whether err is the breaker rejecting calls.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, resilience.ErrCircuitOpen)
}
