package enrich

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/pkg/firecrawl"
)

const maxSocialProbes = 3

// Locale-aware count patterns: LinkedIn and Facebook serve French copy
// for a lot of West African traffic.
var (
	followersRe = regexp.MustCompile(`(?i)([\d][\d,.\s\x{202f}]*[KkMm]?)\s*(?:followers|abonn[ée]s)`)
	employeesRe = regexp.MustCompile(`(?i)([\d,]+(?:\s*-\s*[\d,]+)?\+?)\s*(?:employees|employ[ée]s)`)
	likesRe     = regexp.MustCompile(`(?i)([\d][\d,.\s\x{202f}]*[KkMm]?)\s*(?:likes|j'aime)`)

	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// slugify builds the handle guess used for synthesized profile URLs.
func slugify(name string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(name), "")
}

// synthesizeLinks guesses profile URLs from the company name. Guesses are
// surfaced in social_links but never counted as data sources.
func synthesizeLinks(name string) model.SocialLinks {
	slug := slugify(name)
	if slug == "" {
		return model.SocialLinks{}
	}
	return model.SocialLinks{
		LinkedIn: "https://linkedin.com/company/" + slug,
		Twitter:  "https://twitter.com/" + slug,
		Facebook: "https://facebook.com/" + slug,
	}
}

// parseCount reads a human-formatted count ("32.5K", "1,204", "2M") into
// an integer. Returns 0 when the text does not parse.
func parseCount(raw string) int {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1e3
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1e6
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(n * mult)
}

// probeResult is what one social profile fetch yields.
type probeResult struct {
	source  string
	metrics model.SocialMetrics
}

// probeSocial fetches the known profile pages concurrently and parses
// follower counts out of the page markdown. Every failure is non-fatal;
// a probe only cites its source when it produced a metric.
func (e *Engine) probeSocial(ctx context.Context, links model.SocialLinks) (model.SocialMetrics, []string) {
	type probe struct {
		source string
		url    string
		parse  func(md string) model.SocialMetrics
	}

	probes := []probe{
		{model.SourceLinkedIn, links.LinkedIn, parseLinkedIn},
		{model.SourceTwitter, links.Twitter, parseTwitter},
		{model.SourceFacebook, links.Facebook, parseFacebook},
	}

	limit := maxSocialProbes
	if e.SocialProbeMax > 0 {
		limit = e.SocialProbeMax
	}
	results := make([]*probeResult, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range probes {
		if p.url == "" {
			continue
		}
		g.Go(func() error {
			resp, err := e.scraper.Scrape(gctx, firecrawl.ScrapeRequest{
				URL:     p.url,
				Formats: []string{"markdown"},
			})
			if err != nil {
				zap.L().Debug("social probe failed",
					zap.String("source", p.source),
					zap.Error(err))
				return nil
			}
			if m := p.parse(resp.Data.Markdown); !m.IsZero() {
				results[i] = &probeResult{source: p.source, metrics: m}
			}
			return nil
		})
	}
	_ = g.Wait()

	var merged model.SocialMetrics
	var sources []string
	for _, r := range results {
		if r == nil {
			continue
		}
		sources = append(sources, r.source)
		if r.metrics.LinkedInFollowers > 0 {
			merged.LinkedInFollowers = r.metrics.LinkedInFollowers
		}
		if r.metrics.LinkedInEmployees != "" {
			merged.LinkedInEmployees = r.metrics.LinkedInEmployees
		}
		if r.metrics.TwitterFollowers > 0 {
			merged.TwitterFollowers = r.metrics.TwitterFollowers
		}
		if r.metrics.FacebookLikes > 0 {
			merged.FacebookLikes = r.metrics.FacebookLikes
		}
	}
	return merged, sources
}

func parseLinkedIn(md string) model.SocialMetrics {
	var m model.SocialMetrics
	if match := followersRe.FindStringSubmatch(md); match != nil {
		m.LinkedInFollowers = parseCount(match[1])
	}
	if match := employeesRe.FindStringSubmatch(md); match != nil {
		m.LinkedInEmployees = strings.TrimSpace(match[1])
	}
	return m
}

func parseTwitter(md string) model.SocialMetrics {
	var m model.SocialMetrics
	if match := followersRe.FindStringSubmatch(md); match != nil {
		m.TwitterFollowers = parseCount(match[1])
	}
	return m
}

func parseFacebook(md string) model.SocialMetrics {
	var m model.SocialMetrics
	if match := likesRe.FindStringSubmatch(md); match != nil {
		m.FacebookLikes = parseCount(match[1])
	}
	return m
}
