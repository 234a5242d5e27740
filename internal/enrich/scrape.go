package enrich

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/pkg/firecrawl"
)

// Paths worth crawling beyond the landing page. Everything else on a
// company site is noise for profile building.
var crawlAllowPaths = []string{"/about", "/team", "/pricing", "/product", "/company"}

// scrapedProfile is the JSON-schema shape the structured extraction
// returns. Funding arrives as free text and is parsed downstream.
type scrapedProfile struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Tagline            string            `json:"tagline"`
	Industry           string            `json:"industry"`
	Country            string            `json:"country"`
	Headquarters       string            `json:"headquarters"`
	FoundedYear        int               `json:"founded_year"`
	TotalFundingRaised string            `json:"total_funding_raised"`
	FundingStage       string            `json:"funding_stage"`
	Founders           []string          `json:"founders"`
	Investors          []string          `json:"investors"`
	BusinessModel      string            `json:"business_model"`
	ValueProposition   string            `json:"value_proposition"`
	TargetMarket       string            `json:"target_market"`
	Technologies       []string          `json:"technologies"`
	EmployeeCount      string            `json:"employee_count"`
	SocialLinks        model.SocialLinks `json:"social_links"`
}

func profileSchema() map[string]any {
	str := map[string]any{"type": "string"}
	strArr := map[string]any{"type": "array", "items": str}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":                 str,
			"description":          str,
			"tagline":              str,
			"industry":             str,
			"country":              str,
			"headquarters":         str,
			"founded_year":         map[string]any{"type": "integer"},
			"total_funding_raised": str,
			"funding_stage":        str,
			"founders":             strArr,
			"investors":            strArr,
			"business_model":       str,
			"value_proposition":    str,
			"target_market":        str,
			"technologies":         strArr,
			"employee_count":       str,
			"social_links": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"linkedin":  str,
					"twitter":   str,
					"facebook":  str,
					"instagram": str,
					"youtube":   str,
				},
			},
		},
	}
}

const extractPrompt = "Extract the company profile from this website. " +
	"Use the country's ISO 3166-1 alpha-2 code. Report funding amounts " +
	"verbatim as written on the page. Leave fields you cannot verify empty."

// structuredScrape runs JSON-schema extraction against the company URL.
// Failures are reported to the caller, who continues with empty data.
func (e *Engine) structuredScrape(ctx context.Context, url string) (*scrapedProfile, error) {
	resp, err := e.scraper.Extract(ctx, firecrawl.ExtractRequest{
		URLs:   []string{url},
		Prompt: extractPrompt,
		Schema: profileSchema(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: structured scrape")
	}
	if !resp.Success || len(resp.Data) == 0 {
		return nil, eris.New("enrich: structured scrape returned no data")
	}

	var profile scrapedProfile
	if err := json.Unmarshal(resp.Data, &profile); err != nil {
		return nil, eris.Wrap(err, "enrich: decode extracted profile")
	}
	return &profile, nil
}

func (p *scrapedProfile) toCompetitor() model.EnrichedCompetitor {
	out := model.EnrichedCompetitor{
		BasicCompetitor: model.BasicCompetitor{
			Name:             p.Name,
			Description:      p.Description,
			Industry:         p.Industry,
			Country:          p.Country,
			BusinessModel:    p.BusinessModel,
			ValueProposition: p.ValueProposition,
			FoundedYear:      p.FoundedYear,
		},
		Tagline:       p.Tagline,
		Headquarters:  p.Headquarters,
		Founders:      p.Founders,
		FundingStage:  p.FundingStage,
		Investors:     p.Investors,
		TargetMarket:  p.TargetMarket,
		Technologies:  p.Technologies,
		EmployeeCount: p.EmployeeCount,
		SocialLinks:   p.SocialLinks,
	}
	if funding := ParseFunding(p.TotalFundingRaised); funding != nil {
		out.TotalFunding = *funding
	}
	return out
}

// crawlSite crawls the allow-listed pages of the company site and returns
// their concatenated markdown. pageCap bounds the crawl; zero pages is not
// an error.
func (e *Engine) crawlSite(ctx context.Context, url string, pageCap int) (string, error) {
	started, err := e.scraper.Crawl(ctx, firecrawl.CrawlRequest{
		URL:          url,
		Limit:        pageCap,
		IncludePaths: crawlAllowPaths,
		ScrapeOpts:   &firecrawl.ScrapeOptions{Formats: []string{"markdown"}},
	})
	if err != nil {
		return "", eris.Wrap(err, "enrich: start crawl")
	}

	status, err := firecrawl.PollCrawl(ctx, e.scraper, started.ID)
	if err != nil {
		return "", eris.Wrap(err, "enrich: crawl")
	}

	var parts []string
	for _, page := range status.Data {
		if md := strings.TrimSpace(page.Markdown); md != "" {
			parts = append(parts, md)
		}
	}
	zap.L().Debug("site crawl finished",
		zap.String("url", url),
		zap.Int("pages", len(parts)))
	return strings.Join(parts, "\n\n"), nil
}
