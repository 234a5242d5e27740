// Package discovery composes query building, search, extraction, scoring,
// dedup, and persistence into the discovery run pipeline. The phase
// methods are the shared vocabulary of both queue backends: Temporal
// activities and the inline pool call the same code.
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/extract"
	"github.com/venturescope/scout/internal/metrics"
	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/query"
	"github.com/venturescope/scout/internal/resilience"
	"github.com/venturescope/scout/internal/score"
	"github.com/venturescope/scout/internal/search"
	"github.com/venturescope/scout/internal/store"
)

// LLMCallTimeout bounds the extraction call. The job wall clock is owned
// by the worker; search and scrape deadlines are applied where the
// providers are wired.
const LLMCallTimeout = 45 * time.Second

const defaultMaxResults = 15

// Searcher runs a query batch and returns deduplicated results.
type Searcher interface {
	Run(ctx context.Context, queries []string) ([]search.Result, error)
}

// Extractor turns raw search results into candidate competitors.
type Extractor interface {
	Extract(ctx context.Context, results []search.Result, ec extract.Context) ([]model.BasicCompetitor, error)
}

// Deduper drops candidates already known to the organization.
type Deduper interface {
	Filter(ctx context.Context, orgID string, candidates []model.Candidate) []model.Candidate
}

// Pipeline wires the discovery stages over one store.
type Pipeline struct {
	store     store.Store
	queries   *query.Builder
	searcher  Searcher
	extractor Extractor
	scorer    *score.Scorer
	deduper   Deduper
}

func NewPipeline(st store.Store, qb *query.Builder, searcher Searcher, ex Extractor, sc *score.Scorer, dd Deduper) *Pipeline {
	return &Pipeline{
		store:     st,
		queries:   qb,
		searcher:  searcher,
		extractor: ex,
		scorer:    sc,
		deduper:   dd,
	}
}

// Execute runs one discovery job end to end. It returns an error only for
// failures that should fail the run (fatal persistence, job timeout);
// empty search or extraction completes the run with zero results. The
// caller owns marking the run failed when an error comes back.
func (p *Pipeline) Execute(ctx context.Context, job model.DiscoveryContext) error {
	if err := p.MarkSearching(ctx, job.RunID); err != nil {
		return err
	}

	results, err := p.RunSearch(ctx, job)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		zap.L().Info("no search results, completing run empty",
			zap.String("run_id", job.RunID))
		return p.CompleteRun(ctx, job.RunID, 0)
	}

	if err := p.MarkExtracting(ctx, job.RunID); err != nil {
		return err
	}

	inserted, err := p.ExtractScorePersist(ctx, job, results)
	if err != nil {
		return err
	}
	return p.CompleteRun(ctx, job.RunID, inserted)
}

// MarkSearching moves the run into the searching phase.
func (p *Pipeline) MarkSearching(ctx context.Context, runID string) error {
	return p.markPhase(ctx, runID, model.RunStatusSearching)
}

// MarkExtracting moves the run into the extracting phase.
func (p *Pipeline) MarkExtracting(ctx context.Context, runID string) error {
	return p.markPhase(ctx, runID, model.RunStatusExtracting)
}

// markPhase advances the run to a non-terminal phase. A run already at
// or past the phase stays where it is; a retried attempt walks the
// phases again and must not trip over its own earlier progress.
func (p *Pipeline) markPhase(ctx context.Context, runID string, status model.RunStatus) error {
	err := p.setStatus(ctx, runID, status, store.StatusOpts{})
	if eris.Is(err, store.ErrConflict) {
		zap.L().Debug("run already past phase",
			zap.String("run_id", runID),
			zap.String("phase", string(status)))
		return nil
	}
	return err
}

// RunSearch expands the job into queries and runs them through the
// provider composite. Provider failures surface as an empty result set,
// not an error; only context expiry aborts.
func (p *Pipeline) RunSearch(ctx context.Context, job model.DiscoveryContext) ([]search.Result, error) {
	queries := p.queries.Build(model.Project{
		Keywords:      job.Keywords,
		Industries:    job.Industries,
		TargetRegions: job.Regions,
	})
	zap.L().Info("search phase",
		zap.String("run_id", job.RunID),
		zap.Strings("queries", queries))

	results, err := p.searcher.Run(ctx, queries)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: search")
	}
	return results, nil
}

// ExtractScorePersist runs the extraction, scoring, dedup, and insert
// stages and returns how many competitors were persisted.
func (p *Pipeline) ExtractScorePersist(ctx context.Context, job model.DiscoveryContext, results []search.Result) (int, error) {
	llmCtx, cancel := context.WithTimeout(ctx, LLMCallTimeout)
	defer cancel()
	basics, err := p.extractor.Extract(llmCtx, results, extract.Context{
		Keywords: job.Keywords,
		Regions:  job.Regions,
		Industry: strings.Join(job.Industries, ", "),
	})
	if err != nil {
		// Extraction failures degrade to zero candidates; the run still
		// completes.
		zap.L().Warn("extraction failed",
			zap.String("run_id", job.RunID),
			zap.Error(err))
		return 0, nil
	}

	candidates := p.scorer.Filter(basics, score.Target{
		Industries: job.Industries,
		Regions:    job.Regions,
	})

	maxResults := job.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	candidates = p.deduper.Filter(ctx, job.OrganizationID, candidates)
	if len(candidates) == 0 {
		return 0, nil
	}

	records := make([]model.Competitor, 0, len(candidates))
	for _, c := range candidates {
		records = append(records, model.Competitor{
			EnrichedCompetitor: c.Enriched,
			OrganizationID:     job.OrganizationID,
			SearchRunID:        job.RunID,
			RelevanceScore:     c.Score,
			ValidationStatus:   model.ValidationPending,
			Embedding:          c.Embedding,
		})
	}

	ids, err := resilience.DoVal(ctx, persistencePolicy(), func(ctx context.Context) ([]string, error) {
		return p.store.InsertCompetitors(ctx, records)
	})
	if err != nil {
		return 0, eris.Wrap(err, "discovery: persist competitors")
	}

	zap.L().Info("persisted competitors",
		zap.String("run_id", job.RunID),
		zap.Int("candidates", len(candidates)),
		zap.Int("inserted", len(ids)))
	return len(ids), nil
}

// CompleteRun marks the run completed with its final result count.
func (p *Pipeline) CompleteRun(ctx context.Context, runID string, resultsCount int) error {
	metrics.RunResults.Observe(float64(resultsCount))
	return p.setStatus(ctx, runID, model.RunStatusCompleted, store.StatusOpts{
		ResultsCount: &resultsCount,
	})
}

// FailRun marks the run failed. A run already terminal stays as it is;
// the conflict is swallowed so cleanup paths can call this blindly.
func (p *Pipeline) FailRun(ctx context.Context, runID, message string) error {
	err := p.setStatus(ctx, runID, model.RunStatusFailed, store.StatusOpts{
		ErrorMessage: message,
	})
	if eris.Is(err, store.ErrConflict) {
		zap.L().Warn("run already terminal, leaving status as is",
			zap.String("run_id", runID))
		return nil
	}
	return err
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus, opts store.StatusOpts) error {
	err := resilience.Do(ctx, persistencePolicy(), func(ctx context.Context) error {
		return p.store.UpdateRunStatus(ctx, runID, status, opts)
	})
	if err != nil {
		return eris.Wrapf(err, "discovery: mark run %s %s", runID, status)
	}
	return nil
}

func persistencePolicy() resilience.RetryConfig {
	cfg := resilience.PersistenceRetry()
	cfg.ShouldRetry = store.IsTransient
	return cfg
}
