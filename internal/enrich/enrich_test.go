package enrich

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/pkg/anthropic"
	"github.com/venturescope/scout/pkg/firecrawl"
)

type fakeScraper struct {
	extractData json.RawMessage
	extractErr  error
	scrapePages map[string]string
	crawlPages  []string
	crawlErr    error
}

func (f *fakeScraper) Search(ctx context.Context, req firecrawl.SearchRequest) (*firecrawl.SearchResponse, error) {
	return &firecrawl.SearchResponse{Success: true}, nil
}

func (f *fakeScraper) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	md, ok := f.scrapePages[req.URL]
	if !ok {
		return nil, &firecrawl.APIError{StatusCode: 404, Body: "not found"}
	}
	return &firecrawl.ScrapeResponse{Success: true, Data: firecrawl.PageData{URL: req.URL, Markdown: md}}, nil
}

func (f *fakeScraper) Extract(ctx context.Context, req firecrawl.ExtractRequest) (*firecrawl.ExtractResponse, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return &firecrawl.ExtractResponse{Success: true, Data: f.extractData}, nil
}

func (f *fakeScraper) Crawl(ctx context.Context, req firecrawl.CrawlRequest) (*firecrawl.CrawlResponse, error) {
	if f.crawlErr != nil {
		return nil, f.crawlErr
	}
	return &firecrawl.CrawlResponse{Success: true, ID: "crawl-1"}, nil
}

func (f *fakeScraper) GetCrawlStatus(ctx context.Context, id string) (*firecrawl.CrawlStatusResponse, error) {
	pages := make([]firecrawl.PageData, 0, len(f.crawlPages))
	for _, md := range f.crawlPages {
		pages = append(pages, firecrawl.PageData{Markdown: md})
	}
	return &firecrawl.CrawlStatusResponse{Status: "completed", Total: len(pages), Data: pages}, nil
}

type fakeChat struct {
	response string
	err      error
	calls    int
	lastReq  anthropic.MessageRequest
}

func (f *fakeChat) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.response}},
		Usage:   anthropic.TokenUsage{InputTokens: 200, OutputTokens: 80},
	}, nil
}

const analysisJSON = `{
  "competitive_analysis": {
    "strengths": ["Strong mobile-first product"],
    "weaknesses": ["Single-market concentration"],
    "opportunities": ["Regional expansion"],
    "threats": ["Incumbent banks launching digital arms"]
  },
  "market_positioning": "Leading digital bank for Nigerian retail customers",
  "growth_signals": ["Rapid account growth"],
  "risk_factors": ["Regulatory uncertainty"]
}`

func kudaProfile() json.RawMessage {
	return json.RawMessage(`{
		"name": "Kuda",
		"description": "Full-service digital bank",
		"industry": "fintech",
		"country": "NG",
		"founded_year": 2019,
		"total_funding_raised": "$91.6M",
		"funding_stage": "Series B",
		"founders": ["Babs Ogundeyi", "Musty Mustapha"],
		"business_model": "B2C",
		"value_proposition": "Free banking for Africans",
		"target_market": "Nigerian retail customers",
		"technologies": ["Mobile app"],
		"employee_count": "201-500",
		"social_links": {"linkedin": "https://linkedin.com/company/kuda"}
	}`)
}

func TestEnrichFullProfile(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{
		extractData: kudaProfile(),
		scrapePages: map[string]string{
			"https://linkedin.com/company/kuda": "Kuda | 120,500 followers\n201-500 employees",
		},
	}
	chat := &fakeChat{response: analysisJSON}
	engine := NewEngine(scraper, chat, "claude-haiku-4-5-20251001")

	got, err := engine.Enrich(context.Background(), "https://kuda.com", nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "Kuda", got.Name)
	assert.Equal(t, "https://kuda.com", got.Website)
	assert.InDelta(t, 91_600_000, got.TotalFunding, 1)
	assert.Equal(t, 120500, got.Metrics.LinkedInFollowers)
	assert.Equal(t, "201-500", got.Metrics.LinkedInEmployees)
	require.NotNil(t, got.SWOT)
	assert.Equal(t, []string{"Strong mobile-first product"}, got.SWOT.Strengths)
	assert.Equal(t, "Leading digital bank for Nigerian retail customers", got.MarketPositioning)
	assert.Equal(t, []string{
		model.SourceWebsite,
		model.SourceLinkedIn,
		model.SourceAIAnalysis,
	}, got.DataSources)
	assert.Equal(t, 100, got.DataCompleteness)
	// 3 sources (30) + completeness bonus (30) + website, linkedin,
	// funding stage, founders, technologies bonuses.
	assert.Equal(t, 90, got.ConfidenceScore)
	require.NotNil(t, got.EnrichmentDate)
	assert.Equal(t, time.UTC, got.EnrichmentDate.Location())
}

func TestEnrichScrapeFailureDegrades(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{extractErr: eris.New("boom")}
	chat := &fakeChat{err: eris.New("model down")}
	engine := NewEngine(scraper, chat, "claude-haiku-4-5-20251001")

	got, err := engine.Enrich(context.Background(), "https://paystack.com", nil, DefaultOptions())
	require.NoError(t, err)

	// Name falls back to the title-cased domain label and social links are
	// synthesized from it.
	assert.Equal(t, "Paystack", got.Name)
	assert.Equal(t, "https://linkedin.com/company/paystack", got.SocialLinks.LinkedIn)
	assert.Equal(t, "https://twitter.com/paystack", got.SocialLinks.Twitter)

	// Probes hit 404 and the analysis fell back, so nothing is cited.
	assert.Empty(t, got.DataSources)
	require.NotNil(t, got.SWOT)
	assert.NotEmpty(t, got.SWOT.Strengths)
	assert.Equal(t, []string{"Limited public information available"}, got.SWOT.Weaknesses)
}

func TestEnrichInitialSeedsAndScrapeWins(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{extractData: json.RawMessage(`{"description": "Scraped description"}`)}
	chat := &fakeChat{response: analysisJSON}
	engine := NewEngine(scraper, chat, "claude-haiku-4-5-20251001")

	initial := &model.EnrichedCompetitor{
		BasicCompetitor: model.BasicCompetitor{
			Name:        "Kuda Technologies",
			Description: "Seed description",
			Industry:    "fintech",
		},
	}
	opts := DefaultOptions()
	opts.IncludeSocialMedia = false

	got, err := engine.Enrich(context.Background(), "https://kuda.com", initial, opts)
	require.NoError(t, err)

	assert.Equal(t, "Kuda Technologies", got.Name, "initial beats the URL-derived name")
	assert.Equal(t, "Scraped description", got.Description, "scrape beats initial")
	assert.Equal(t, "fintech", got.Industry, "initial survives where scrape is silent")
}

func TestEnrichCrawlAddsContextAndLinks(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{
		extractData: json.RawMessage(`{"name": "Kuda"}`),
		crawlPages: []string{
			"# About Kuda\nFollow us at https://www.linkedin.com/company/kuda-bank",
			"# Team",
		},
	}
	chat := &fakeChat{response: analysisJSON}
	engine := NewEngine(scraper, chat, "claude-haiku-4-5-20251001")

	opts := Options{IncludeAIAnalysis: true, CrawlDepth: 3}
	got, err := engine.Enrich(context.Background(), "https://kuda.com", nil, opts)
	require.NoError(t, err)

	assert.Contains(t, got.DataSources, model.SourceWebsiteCrawl)
	assert.Equal(t, "https://www.linkedin.com/company/kuda-bank", got.SocialLinks.LinkedIn)
	assert.Contains(t, chat.lastReq.Messages[0].Content, "About Kuda")
}

func TestEnrichAnalysisDisabled(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{extractData: kudaProfile()}
	chat := &fakeChat{response: analysisJSON}
	engine := NewEngine(scraper, chat, "claude-haiku-4-5-20251001")

	opts := Options{CrawlDepth: 1}
	got, err := engine.Enrich(context.Background(), "https://kuda.com", nil, opts)
	require.NoError(t, err)

	assert.Zero(t, chat.calls)
	assert.Nil(t, got.SWOT)
	assert.NotContains(t, got.DataSources, model.SourceAIAnalysis)
}

func TestEnrichNoWebsite(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&fakeScraper{}, &fakeChat{}, "m")
	_, err := engine.Enrich(context.Background(), "", nil, DefaultOptions())
	assert.Error(t, err)
}

func TestEnrichOnUsage(t *testing.T) {
	t.Parallel()

	scraper := &fakeScraper{extractData: kudaProfile()}
	chat := &fakeChat{response: analysisJSON}
	engine := NewEngine(scraper, chat, "claude-haiku-4-5-20251001")

	var reported int64
	engine.OnUsage = func(u anthropic.TokenUsage, _ string) {
		reported += u.InputTokens
	}
	opts := Options{IncludeAIAnalysis: true, CrawlDepth: 1}
	_, err := engine.Enrich(context.Background(), "https://kuda.com", nil, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(200), reported)
}

func TestParseFunding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"$2.5B", 2_500_000_000, true},
		{"€800K", 800_000, true},
		{"91.6M", 91_600_000, true},
		{"1,200,000", 1_200_000, true},
		{"$15m", 15_000_000, true},
		{"tbd", 0, false},
		{"undisclosed", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got := ParseFunding(tt.raw)
			if !tt.ok {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1)
		})
	}
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want int
	}{
		{"32.5K", 32500},
		{"2M", 2_000_000},
		{"1,204", 1204},
		{"120 500", 120500},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseCount(tt.raw))
		})
	}
}

func TestSocialParsersLocale(t *testing.T) {
	t.Parallel()

	fr := parseLinkedIn("Kuda | 54 300 abonnés\n51-200 employés")
	assert.Equal(t, 54300, fr.LinkedInFollowers)
	assert.Equal(t, "51-200", fr.LinkedInEmployees)

	fb := parseFacebook("128 400 j'aime")
	assert.Equal(t, 128400, fb.FacebookLikes)

	tw := parseTwitter("32.5K Followers")
	assert.Equal(t, 32500, tw.TwitterFollowers)
}

func TestSynthesizeLinks(t *testing.T) {
	t.Parallel()

	links := synthesizeLinks("Kuda Bank Ltd.")
	assert.Equal(t, "https://linkedin.com/company/kudabankltd", links.LinkedIn)
	assert.Equal(t, "https://twitter.com/kudabankltd", links.Twitter)
	assert.True(t, synthesizeLinks("---").IsEmpty())
}

func TestCompletenessAndConfidence(t *testing.T) {
	t.Parallel()

	sparse := model.EnrichedCompetitor{
		BasicCompetitor: model.BasicCompetitor{Name: "Acme", Website: "https://acme.io"},
	}
	// Website is not one of the 14 scored fields; only name counts.
	assert.Equal(t, 7, completeness(sparse))

	sparse.DataCompleteness = completeness(sparse)
	// 0 sources + round(7*0.3)=2 + website 5.
	assert.Equal(t, 7, confidence(sparse, 0))
}

func TestAnalyzeContextCapConfigurable(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{response: analysisJSON}
	e := NewEngine(&fakeScraper{}, chat, "m")
	e.MaxContextLen = 12

	long := strings.Repeat("x", 40)
	_, err := e.analyze(context.Background(), model.EnrichedCompetitor{
		BasicCompetitor: model.BasicCompetitor{Name: "Kuda", Website: "https://kuda.com"},
	}, long)
	require.NoError(t, err)

	prompt := chat.lastReq.Messages[0].Content
	assert.Contains(t, prompt, strings.Repeat("x", 12))
	assert.NotContains(t, prompt, strings.Repeat("x", 13))
}

type gatedScraper struct {
	fakeScraper

	mu     sync.Mutex
	active int
	peak   int
}

func (g *gatedScraper) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	g.mu.Lock()
	g.active++
	if g.active > g.peak {
		g.peak = g.active
	}
	g.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	g.mu.Lock()
	g.active--
	g.mu.Unlock()
	return g.fakeScraper.Scrape(ctx, req)
}

func TestProbeSocialRespectsProbeLimit(t *testing.T) {
	t.Parallel()

	sc := &gatedScraper{fakeScraper: fakeScraper{scrapePages: map[string]string{
		"https://linkedin.com/company/kuda": "Kuda | 1,200 followers",
		"https://twitter.com/kudabank":      "3.1K Followers",
		"https://facebook.com/kudabank":     "900 likes",
	}}}
	e := NewEngine(sc, &fakeChat{}, "m")
	e.SocialProbeMax = 1

	_, sources := e.probeSocial(context.Background(), model.SocialLinks{
		LinkedIn: "https://linkedin.com/company/kuda",
		Twitter:  "https://twitter.com/kudabank",
		Facebook: "https://facebook.com/kudabank",
	})
	assert.Equal(t, 1, sc.peak)
	assert.Contains(t, sources, model.SourceLinkedIn)
}
