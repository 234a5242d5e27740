// Package enrich builds a deep competitor profile from a website URL:
// structured scrape, allow-list site crawl, social probing, and an AI
// competitive analysis with a derived fallback.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/extract"
	"github.com/venturescope/scout/internal/metrics"
	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/pkg/anthropic"
	"github.com/venturescope/scout/pkg/firecrawl"
)

const defaultMaxTokens = 4096

// Options selects which enrichment steps run. CrawlDepth is the page cap
// for the site crawl; a depth of 1 means landing page only, no crawl.
type Options struct {
	IncludeSocialMedia bool
	IncludeAIAnalysis  bool
	CrawlDepth         int
}

// DefaultOptions enables everything at the shallowest crawl.
func DefaultOptions() Options {
	return Options{
		IncludeSocialMedia: true,
		IncludeAIAnalysis:  true,
		CrawlDepth:         1,
	}
}

// Engine runs enrichment. OnUsage, when set, receives token usage for
// every model call so callers can account cost per run.
type Engine struct {
	scraper   firecrawl.Client
	chat      anthropic.Client
	chatModel string
	maxTokens int64

	// MaxContextLen caps the crawl markdown fed into the analysis
	// prompt; SocialProbeMax caps concurrent social profile fetches.
	// Zero takes the package default.
	MaxContextLen  int
	SocialProbeMax int

	OnUsage func(usage anthropic.TokenUsage, model string)
}

func NewEngine(scraper firecrawl.Client, chat anthropic.Client, chatModel string) *Engine {
	return &Engine{
		scraper:   scraper,
		chat:      chat,
		chatModel: chatModel,
		maxTokens: defaultMaxTokens,
	}
}

// Enrich assembles the profile for url. initial, when non-nil, seeds
// fields discovery already established; enrichment output overrides it,
// and both override the URL-derived fallback. Individual step failures
// degrade the profile instead of failing the call.
func (e *Engine) Enrich(ctx context.Context, url string, initial *model.EnrichedCompetitor, opts Options) (*model.EnrichedCompetitor, error) {
	if url == "" && (initial == nil || initial.Website == "") {
		return nil, eris.New("enrich: no website to enrich")
	}
	if url == "" {
		url = initial.Website
	}
	started := time.Now()

	result := fallbackFromURL(url)
	if initial != nil {
		overlay(&result, *initial)
	}

	sources := make(map[string]bool)
	var siteContext string

	if profile, err := e.structuredScrape(ctx, url); err != nil {
		zap.L().Warn("structured scrape failed",
			zap.String("url", url),
			zap.Error(err))
	} else {
		overlay(&result, profile.toCompetitor())
		sources[model.SourceWebsite] = true
	}

	if opts.CrawlDepth > 1 {
		md, err := e.crawlSite(ctx, url, opts.CrawlDepth)
		switch {
		case err != nil:
			zap.L().Warn("site crawl failed",
				zap.String("url", url),
				zap.Error(err))
		case md != "":
			siteContext = md
			sources[model.SourceWebsiteCrawl] = true
			crawlLinks := extract.ParseSocialLinks(md)
			result.SocialLinks = model.MergeSocialLinks(result.SocialLinks, crawlLinks)
		}
	}

	if result.SocialLinks.IsEmpty() && result.Name != "" {
		result.SocialLinks = synthesizeLinks(result.Name)
	}

	if opts.IncludeSocialMedia && !result.SocialLinks.IsEmpty() {
		metrics, probeSources := e.probeSocial(ctx, result.SocialLinks)
		if !metrics.IsZero() {
			result.Metrics = metrics
		}
		for _, s := range probeSources {
			sources[s] = true
		}
	}

	if opts.IncludeAIAnalysis {
		analysis, err := e.analyze(ctx, result, siteContext)
		if err != nil {
			analysis = fallbackAnalysis(result)
		} else {
			sources[model.SourceAIAnalysis] = true
		}
		swot := analysis.CompetitiveAnalysis
		result.SWOT = &swot
		if analysis.MarketPositioning != "" {
			result.MarketPositioning = analysis.MarketPositioning
		}
		if len(analysis.GrowthSignals) > 0 {
			result.GrowthSignals = analysis.GrowthSignals
		}
		if len(analysis.RiskFactors) > 0 {
			result.RiskFactors = analysis.RiskFactors
		}
	}

	result.DataSources = canonicalSources(sources)
	result.DataCompleteness = completeness(result)
	result.ConfidenceScore = confidence(result, len(result.DataSources))
	now := time.Now().UTC()
	result.EnrichmentDate = &now

	metrics.EnrichmentDuration.Observe(time.Since(started).Seconds())
	metrics.EnrichmentCompleteness.Observe(float64(result.DataCompleteness))
	zap.L().Info("enrichment finished",
		zap.String("company", result.Name),
		zap.Int("completeness", result.DataCompleteness),
		zap.Int("confidence", result.ConfidenceScore),
		zap.Strings("sources", result.DataSources))
	return &result, nil
}
