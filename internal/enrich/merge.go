package enrich

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/venturescope/scout/internal/model"
)

var fundingRe = regexp.MustCompile(`([\d]+(?:\.\d+)?)\s*([KkMmBb])?`)

var fundingSuffix = map[string]float64{
	"K": 1e3,
	"M": 1e6,
	"B": 1e9,
}

// ParseFunding converts a free-text funding amount ("$2.5B", "€800K",
// "1,200,000") into a dollar figure. Returns nil when no numeric amount
// can be read ("tbd", "undisclosed").
func ParseFunding(raw string) *float64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return nil
	}
	m := fundingRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if m[2] != "" {
		amount *= fundingSuffix[strings.ToUpper(m[2])]
	}
	if amount <= 0 {
		return nil
	}
	return &amount
}

// fallbackFromURL derives the minimal profile a bare URL supports: the
// normalized website plus a title-cased name taken from the first domain
// label.
func fallbackFromURL(rawURL string) model.EnrichedCompetitor {
	website := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if website != "" && !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		website = "https://" + website
	}

	name := ""
	if u, err := url.Parse(website); err == nil && u.Hostname() != "" {
		host := strings.TrimPrefix(u.Hostname(), "www.")
		if label, _, ok := strings.Cut(host, "."); ok && label != "" {
			name = cases.Title(language.English).String(label)
		} else {
			name = cases.Title(language.English).String(host)
		}
	}

	return model.EnrichedCompetitor{
		BasicCompetitor: model.BasicCompetitor{Name: name, Website: website},
	}
}

// overlay merges src into dst field by field; src wins wherever it carries
// a value. Callers chain overlays from lowest to highest precedence.
func overlay(dst *model.EnrichedCompetitor, src model.EnrichedCompetitor) {
	model.PatchFromEnriched(src).Apply(dst)
}

// The important fields completeness is measured over. Arrays and the
// social-links object count only when non-empty.
func completeness(e model.EnrichedCompetitor) int {
	filled := 0
	checks := []bool{
		e.Name != "",
		e.Description != "",
		e.Industry != "",
		e.Country != "",
		e.BusinessModel != "",
		e.ValueProposition != "",
		e.FoundedYear > 0,
		e.TotalFunding > 0,
		len(e.Founders) > 0,
		e.FundingStage != "",
		e.TargetMarket != "",
		len(e.Technologies) > 0,
		!e.SocialLinks.IsEmpty(),
		e.EmployeeCount != "",
	}
	for _, ok := range checks {
		if ok {
			filled++
		}
	}
	return int(math.Round(100 * float64(filled) / float64(len(checks))))
}

func confidence(e model.EnrichedCompetitor, sourceCount int) int {
	score := sourceCount * 10
	if score > 40 {
		score = 40
	}
	score += int(math.Round(float64(e.DataCompleteness) * 0.3))
	if e.Website != "" {
		score += 5
	}
	if e.SocialLinks.LinkedIn != "" {
		score += 10
	}
	if e.FundingStage != "" {
		score += 5
	}
	if len(e.Founders) > 0 {
		score += 5
	}
	if len(e.Technologies) > 0 {
		score += 5
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// canonicalSources orders the cited sources the same way regardless of
// which enrichment steps ran.
func canonicalSources(cited map[string]bool) []string {
	ordered := []string{
		model.SourceWebsite,
		model.SourceWebsiteCrawl,
		model.SourceLinkedIn,
		model.SourceTwitter,
		model.SourceFacebook,
		model.SourceAIAnalysis,
	}
	var out []string
	for _, s := range ordered {
		if cited[s] {
			out = append(out, s)
		}
	}
	return out
}
