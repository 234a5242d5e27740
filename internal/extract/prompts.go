package extract

import (
	"fmt"
	"strings"

	"github.com/venturescope/scout/internal/region"
	"github.com/venturescope/scout/internal/search"
)

const (
	maxSourceResults = 15
	maxContentChars  = 1500
)

// basicPolicy is the extraction policy shared by every call; identical
// text across calls makes it a prompt-cache hit.
const basicPolicy = `You are a competitive intelligence analyst. You will receive web search results and must extract real companies from them.

Rules:
- Extract companies from direct company pages AND from articles that list multiple companies (listicles, "top 10" roundups, funding news).
- Skip generic news sites, directories, and aggregator pages unless the page itself is about a specific company.
- Every company needs both a name and a website URL. Discard entries missing either.
- Do not list the same company twice.
- Use the page content to fill description, industry, country, business model, value proposition, founded year, and total funding (USD) where stated. Leave fields out when unknown.

Respond with a strict JSON array of objects with keys: name, website, description, industry, country, business_model, value_proposition, founded_year (integer), total_funding (number, USD). No markdown fences, no commentary.`

const enrichedPolicy = `You are a competitive intelligence analyst building a deep company profile from website content.

Extract everything the content supports and omit what it does not. Respond with one strict JSON object using these keys: name, website, description, industry, country, business_model, value_proposition, founded_year (integer), total_funding (number, USD), tagline, headquarters, founders (array), funding_stage, investors (array), target_market, technologies (array), employee_count, social_links (object with linkedin, twitter, facebook, instagram, youtube). No markdown fences, no commentary.`

// Context narrows extraction to the project's market.
type Context struct {
	Keywords []string
	Regions  []string // ISO alpha-2
	Industry string
}

func buildBasicPrompt(results []search.Result, ec Context) string {
	var b strings.Builder

	b.WriteString("Project focus:\n")
	if len(ec.Keywords) > 0 {
		fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(ec.Keywords, ", "))
	}
	if ec.Industry != "" {
		fmt.Fprintf(&b, "- Industry: %s\n", ec.Industry)
	}
	if len(ec.Regions) > 0 {
		names := make([]string, 0, len(ec.Regions))
		for _, code := range ec.Regions {
			names = append(names, region.Name(code))
		}
		fmt.Fprintf(&b, "- Target regions: %s\n", strings.Join(names, ", "))
	}

	b.WriteString("\nSearch results:\n")
	for i, r := range results {
		if i >= maxSourceResults {
			break
		}
		fmt.Fprintf(&b, "\n[%d] URL: %s\nTitle: %s\nSnippet: %s\n", i+1, r.URL, r.Title, r.Snippet)
		if r.Content != "" {
			content := r.Content
			if len(content) > maxContentChars {
				content = content[:maxContentChars]
			}
			fmt.Fprintf(&b, "Content: %s\n", content)
		}
	}

	b.WriteString("\nExtract the competitor companies as a JSON array.")
	return b.String()
}

func buildEnrichedPrompt(name, website, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nWebsite: %s\n\nWebsite content:\n%s\n", name, website, content)
	b.WriteString("\nExtract the company profile as a single JSON object.")
	return b.String()
}
