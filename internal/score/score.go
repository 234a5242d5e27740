// Package score assigns deterministic relevance scores to extracted
// competitors. No model calls; the same candidate and project always
// produce the same integer.
package score

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/model"
)

// DefaultThreshold is the relevance cutoff used when configuration does
// not override it.
const DefaultThreshold = 75

// Target describes the project the candidate is scored against.
type Target struct {
	Industries []string
	Regions    []string // ISO alpha-2
}

// Scorer filters candidates by a relevance threshold.
type Scorer struct {
	threshold int
	now       func() time.Time
}

// NewScorer creates a scorer. A non-positive threshold falls back to
// the default.
func NewScorer(threshold int) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{threshold: threshold, now: time.Now}
}

// Score computes the candidate's relevance in [0,100].
//
// Industry overlap 30, region match 25, profile completeness up to 20,
// company recency up to 15, disclosed funding up to 10.
func (s *Scorer) Score(c model.BasicCompetitor, target Target) int {
	score := 0

	if industryMatches(c.Industry, target.Industries) {
		score += 30
	}
	if regionMatches(c.Country, target.Regions) {
		score += 25
	}
	score += completeness(c)
	score += recency(c.FoundedYear, s.now().Year())
	score += funding(c.TotalFunding)

	if score > 100 {
		score = 100
	}
	return score
}

// Filter scores every candidate and keeps those at or above the
// threshold, preserving input order.
func (s *Scorer) Filter(candidates []model.BasicCompetitor, target Target) []model.Candidate {
	kept := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		sc := s.Score(c, target)
		if sc < s.threshold {
			zap.L().Debug("candidate below relevance threshold",
				zap.String("name", c.Name),
				zap.Int("score", sc),
				zap.Int("threshold", s.threshold))
			continue
		}
		kept = append(kept, model.Candidate{
			Enriched: model.EnrichedCompetitor{BasicCompetitor: c},
			Score:    sc,
		})
	}
	return kept
}

func industryMatches(industry string, targets []string) bool {
	industry = strings.ToLower(strings.TrimSpace(industry))
	if industry == "" {
		return false
	}
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(industry, t) || strings.Contains(t, industry) {
			return true
		}
	}
	return false
}

func regionMatches(country string, regions []string) bool {
	if country == "" {
		return false
	}
	for _, r := range regions {
		if strings.EqualFold(country, r) {
			return true
		}
	}
	return false
}

// completeness awards up to 20 points across the five core profile
// fields.
func completeness(c model.BasicCompetitor) int {
	fields := []string{c.Name, c.Description, c.Website, c.BusinessModel, c.ValueProposition}
	filled := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			filled++
		}
	}
	return int(math.Round(float64(filled) / float64(len(fields)) * 20))
}

func recency(foundedYear, currentYear int) int {
	if foundedYear <= 0 || foundedYear > currentYear {
		return 0
	}
	age := currentYear - foundedYear
	switch {
	case age <= 3:
		return 15
	case age <= 5:
		return 10
	case age <= 10:
		return 5
	default:
		return 0
	}
}

func funding(totalUSD float64) int {
	switch {
	case totalUSD >= 1_000_000:
		return 10
	case totalUSD >= 100_000:
		return 5
	default:
		return 0
	}
}
