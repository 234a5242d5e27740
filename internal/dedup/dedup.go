// Package dedup drops candidates that duplicate each other or the
// organization's existing corpus. Domain dedup is authoritative;
// semantic dedup is advisory and never blocks a run.
package dedup

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/model"
)

// DefaultSemanticThreshold is the cosine similarity above which two
// companies are treated as the same.
const DefaultSemanticThreshold = 0.85

const semanticMatchLimit = 5

// Corpus exposes the store reads dedup needs. The persistence adapter
// satisfies it.
type Corpus interface {
	ListCompetitorWebsites(ctx context.Context, orgID string) ([]string, error)
	MatchCompetitorsByEmbedding(ctx context.Context, orgID string, vector []float32, threshold float64, limit int) ([]model.Competitor, error)
}

// Embedder produces the fingerprint vector for semantic matching.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Deduper applies domain and semantic dedup in order.
type Deduper struct {
	corpus    Corpus
	embedder  Embedder // nil disables semantic dedup
	threshold float64
}

// NewDeduper creates a deduper. A nil embedder turns semantic dedup off.
func NewDeduper(corpus Corpus, embedder Embedder, threshold float64) *Deduper {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSemanticThreshold
	}
	return &Deduper{corpus: corpus, embedder: embedder, threshold: threshold}
}

// NormalizeDomain reduces a website URL to its comparable form: the
// lowercased hostname without a www prefix. Unparseable input falls
// back to the lowercased raw string.
func NormalizeDomain(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "www.")
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// Filter returns the candidates that survive dedup, in input order.
// Each survivor has DomainKey set, and Embedding set when semantic
// dedup produced a vector for it.
func (d *Deduper) Filter(ctx context.Context, orgID string, candidates []model.Candidate) []model.Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	existing := d.existingDomains(ctx, orgID)

	seen := make(map[string]struct{}, len(candidates))
	kept := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := NormalizeDomain(c.Enriched.Website)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if _, known := existing[key]; known {
			zap.L().Debug("candidate already in corpus",
				zap.String("domain", key))
			continue
		}

		c.DomainKey = key
		if d.semanticDuplicate(ctx, orgID, &c) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func (d *Deduper) existingDomains(ctx context.Context, orgID string) map[string]struct{} {
	if d.corpus == nil {
		return nil
	}
	websites, err := d.corpus.ListCompetitorWebsites(ctx, orgID)
	if err != nil {
		// The unique (org, domain) index catches what this misses.
		zap.L().Warn("cross-corpus dedup unavailable", zap.Error(err))
		return nil
	}
	domains := make(map[string]struct{}, len(websites))
	for _, w := range websites {
		if key := NormalizeDomain(w); key != "" {
			domains[key] = struct{}{}
		}
	}
	return domains
}

// semanticDuplicate embeds the candidate fingerprint and checks the
// corpus for near matches. Any failure admits the candidate.
func (d *Deduper) semanticDuplicate(ctx context.Context, orgID string, c *model.Candidate) bool {
	if d.embedder == nil || d.corpus == nil {
		return false
	}

	vec, err := d.embedder.Embed(ctx, Fingerprint(c.Enriched))
	if err != nil {
		zap.L().Warn("semantic dedup embedding failed, admitting candidate",
			zap.String("name", c.Enriched.Name),
			zap.Error(err))
		return false
	}
	c.Embedding = vec

	matches, err := d.corpus.MatchCompetitorsByEmbedding(ctx, orgID, vec, d.threshold, semanticMatchLimit)
	if err != nil {
		zap.L().Warn("semantic dedup lookup failed, admitting candidate",
			zap.String("name", c.Enriched.Name),
			zap.Error(err))
		return false
	}
	if len(matches) > 0 {
		zap.L().Info("candidate dropped as semantic duplicate",
			zap.String("name", c.Enriched.Name),
			zap.String("matched", matches[0].Name))
		return true
	}
	return false
}

// Fingerprint is the text embedded for semantic matching.
func Fingerprint(c model.EnrichedCompetitor) string {
	parts := []string{c.Name, c.Description, c.ValueProposition, c.BusinessModel, c.Industry}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " | ")
}
