package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/cost"
	"github.com/venturescope/scout/internal/dedup"
	"github.com/venturescope/scout/internal/discovery"
	"github.com/venturescope/scout/internal/enrich"
	"github.com/venturescope/scout/internal/extract"
	"github.com/venturescope/scout/internal/query"
	"github.com/venturescope/scout/internal/score"
	"github.com/venturescope/scout/internal/search"
	"github.com/venturescope/scout/internal/store"
	"github.com/venturescope/scout/pkg/anthropic"
	"github.com/venturescope/scout/pkg/embeddings"
	"github.com/venturescope/scout/pkg/firecrawl"
	"github.com/venturescope/scout/pkg/perplexity"
)

// appEnv holds the wired collaborators shared by the commands. Callers
// defer Close().
type appEnv struct {
	Store    store.Store
	Pipeline *discovery.Pipeline
	Enricher *enrich.Engine
	Spend    *cost.Accumulator

	redis *redis.Client
}

func (e *appEnv) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp opens the store and builds the full discovery pipeline from
// configuration: search providers with per-call deadlines, extractor,
// scorer, deduper, and the enrichment engine, all reporting spend into
// one accumulator.
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := store.Open(ctx, cfg.Store.URL, cfg.Store.ServiceKey)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &appEnv{
		Store: st,
		Spend: cost.NewAccumulator(cost.NewCalculator(cfg.Pricing)),
	}

	scraper := firecrawl.NewClient(cfg.Search.APIKey,
		firecrawl.WithBaseURL(cfg.Search.BaseURL),
		firecrawl.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Search.ScrapeTimeoutSecs) * time.Second,
		}))
	chat := anthropic.Timebound(
		anthropic.NewClient(cfg.Chat.APIKey),
		time.Duration(cfg.Chat.TimeoutSecs)*time.Second)

	primary := search.Timebound(
		search.NewPrimary(scraper, cfg.Search.APIKey),
		time.Duration(cfg.Search.TimeoutSecs)*time.Second)

	var fallback search.Provider
	if cfg.Fallback.APIKey != "" {
		pplx := perplexity.NewClient(cfg.Fallback.APIKey,
			perplexity.WithBaseURL(cfg.Fallback.BaseURL),
			perplexity.WithModel(cfg.Fallback.Model))
		fallback = search.Timebound(
			search.NewFallback(pplx, cfg.Fallback.APIKey),
			time.Duration(cfg.Fallback.TimeoutSecs)*time.Second)
	}

	searcher := search.NewComposite(primary, fallback, search.CompositeOptions{
		InterCall:  time.Duration(cfg.Worker.SearchInterCall) * time.Millisecond,
		InterQuery: time.Duration(cfg.Worker.QueryInterCall) * time.Millisecond,
		OnCall:     env.Spend.AddSearchCall,
	})

	extractor := extract.NewExtractor(chat, cfg.Chat.Model, cfg.Chat.MaxTokens, cfg.Chat.Temperature)
	extractor.OnUsage = func(usage anthropic.TokenUsage, model string) {
		env.Spend.AddChat("extraction", model, usage)
	}

	ladder := query.DefaultLadder()
	if cfg.Query.LadderFile != "" {
		ladder, err = query.LoadLadder(cfg.Query.LadderFile)
		if err != nil {
			env.Close()
			return nil, eris.Wrap(err, "load query ladder")
		}
	}

	deduper := dedup.NewDeduper(st, buildEmbedder(env), cfg.Scoring.SemanticThreshold)
	scorer := score.NewScorer(cfg.Scoring.RelevanceThreshold)

	env.Pipeline = discovery.NewPipeline(st, query.NewBuilder(ladder), searcher, extractor, scorer, deduper)

	env.Enricher = enrich.NewEngine(scraper, chat, cfg.Chat.Model)
	env.Enricher.MaxContextLen = cfg.Enrichment.MaxContextLen
	env.Enricher.SocialProbeMax = cfg.Enrichment.SocialProbeMax
	env.Enricher.OnUsage = func(usage anthropic.TokenUsage, model string) {
		env.Spend.AddChat("enrichment", model, usage)
	}

	return env, nil
}

// buildEmbedder wires the embedding client, with a Redis cache when an
// address is configured. Returns nil when embeddings are not configured;
// the deduper then skips its semantic pass.
func buildEmbedder(env *appEnv) dedup.Embedder {
	if cfg.Embeddings.BaseURL == "" {
		zap.L().Debug("embeddings not configured, semantic dedup disabled")
		return nil
	}

	opts := []embeddings.Option{embeddings.WithModel(cfg.Embeddings.Model)}
	if cfg.Redis.Addr != "" {
		env.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		ttl := time.Duration(cfg.Embeddings.CacheTTLMins) * time.Minute
		opts = append(opts, embeddings.WithCache(embeddings.NewRedisCache(env.redis), ttl))
	}

	client := embeddings.NewClient(cfg.Embeddings.BaseURL, cfg.Embeddings.APIKey, opts...)
	return &meteredEmbedder{inner: client, spend: env.Spend}
}

// meteredEmbedder reports embedding volume into the spend accumulator.
// Token counts are approximated from text length; the embedding API does
// not return usage.
type meteredEmbedder struct {
	inner *embeddings.Client
	spend *cost.Accumulator
}

func (m *meteredEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.spend.AddEmbedding(len(text) / 4)
	return m.inner.Embed(ctx, text)
}
