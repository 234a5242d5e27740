// Package service is the request-scoped orchestration layer: it validates
// input, enforces tenant scope against the store, checks quota, and hands
// discovery jobs to the queue. Handlers stay thin; everything a request
// decides happens here.
package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/enrich"
	"github.com/venturescope/scout/internal/metrics"
	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/store"
)

// Queue accepts a discovery job for asynchronous execution and returns a
// backend job id.
type Queue interface {
	Enqueue(ctx context.Context, job model.DiscoveryContext) (string, error)
}

// QuotaChecker decides whether the organization may start another run.
// Billing owns the real implementation; this port keeps it external.
type QuotaChecker interface {
	CheckDiscovery(ctx context.Context, orgID string, tier model.Tier) error
}

// Enricher runs the deep-enrichment engine for one website.
type Enricher interface {
	Enrich(ctx context.Context, url string, initial *model.EnrichedCompetitor, opts enrich.Options) (*model.EnrichedCompetitor, error)
}

// Service exposes the tenant-facing operations.
type Service struct {
	store    store.Store
	queue    Queue
	quota    QuotaChecker
	enricher Enricher

	enrichCrawlDepth int
}

func New(st store.Store, queue Queue, quota QuotaChecker, enricher Enricher) *Service {
	if quota == nil {
		quota = AllowAll{}
	}
	return &Service{
		store:            st,
		queue:            queue,
		quota:            quota,
		enricher:         enricher,
		enrichCrawlDepth: 2,
	}
}

// StartDiscoveryRequest is the payload for starting a run.
type StartDiscoveryRequest struct {
	ProjectID  string   `json:"projectId"`
	Keywords   []string `json:"keywords"`
	Regions    []string `json:"regions"`
	Industries []string `json:"industries,omitempty"`
	MaxResults int      `json:"maxResults,omitempty"`
}

// StartDiscovery validates the request, verifies the project belongs to
// the caller's organization, checks quota, creates the run, and enqueues
// the job. The run comes back in pending state.
func (s *Service) StartDiscovery(ctx context.Context, rc model.RequestContext, req StartDiscoveryRequest) (*model.DiscoveryRun, error) {
	if _, err := uuid.Parse(req.ProjectID); err != nil {
		return nil, Invalid("projectId must be a valid UUID")
	}
	if len(req.Keywords) == 0 {
		return nil, Invalid("keywords must not be empty")
	}
	if len(req.Regions) == 0 {
		return nil, Invalid("regions must not be empty")
	}

	project, err := s.projectInOrg(ctx, req.ProjectID, rc.OrganizationID)
	if err != nil {
		return nil, err
	}

	if err := s.quota.CheckDiscovery(ctx, rc.OrganizationID, rc.Tier); err != nil {
		return nil, err
	}

	run, err := s.store.CreateRun(ctx, project.ID, rc.UserID, req.Keywords, req.Regions)
	if err != nil {
		return nil, eris.Wrap(err, "service: create run")
	}

	industries := req.Industries
	if len(industries) == 0 {
		industries = project.Industries
	}

	jobID, err := s.queue.Enqueue(ctx, model.DiscoveryContext{
		RunID:          run.ID,
		ProjectID:      project.ID,
		OrganizationID: rc.OrganizationID,
		UserID:         rc.UserID,
		Keywords:       req.Keywords,
		Regions:        req.Regions,
		Industries:     industries,
		MaxResults:     req.MaxResults,
		Tier:           rc.Tier,
	})
	if err != nil {
		// The run exists but will never execute; fail it so it does not
		// sit pending forever.
		if failErr := s.store.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, store.StatusOpts{
			ErrorMessage: "enqueue failed",
		}); failErr != nil {
			zap.L().Error("could not fail unqueued run",
				zap.String("run_id", run.ID),
				zap.Error(failErr))
		}
		return nil, eris.Wrap(err, "service: enqueue discovery")
	}

	metrics.RunsStarted.Inc()
	zap.L().Info("discovery run queued",
		zap.String("run_id", run.ID),
		zap.String("job_id", jobID),
		zap.String("organization_id", rc.OrganizationID))
	return run, nil
}

// GetRun returns a run with its project summary, scoped to the caller's
// organization.
func (s *Service) GetRun(ctx context.Context, rc model.RequestContext, runID string) (*model.RunWithProject, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "service: get run")
	}
	project, err := s.projectInOrg(ctx, run.ProjectID, rc.OrganizationID)
	if err != nil {
		return nil, err
	}
	return &model.RunWithProject{
		DiscoveryRun: *run,
		Project:      model.ProjectSummary{ID: project.ID, Name: project.Name},
	}, nil
}

const listRunsLimit = 20

// ListRuns returns the project's latest runs, newest first.
func (s *Service) ListRuns(ctx context.Context, rc model.RequestContext, projectID string) ([]model.DiscoveryRun, error) {
	if _, err := uuid.Parse(projectID); err != nil {
		return nil, Invalid("projectId must be a valid UUID")
	}
	if _, err := s.projectInOrg(ctx, projectID, rc.OrganizationID); err != nil {
		return nil, err
	}
	runs, err := s.store.ListRuns(ctx, projectID, listRunsLimit)
	if err != nil {
		return nil, eris.Wrap(err, "service: list runs")
	}
	return runs, nil
}

// ListCompetitors returns the organization's competitors under the given
// filter. The organization always comes from the request context; a filter
// cannot cross tenants.
func (s *Service) ListCompetitors(ctx context.Context, rc model.RequestContext, filter store.CompetitorFilter) ([]model.Competitor, error) {
	filter.OrganizationID = rc.OrganizationID
	competitors, err := s.store.ListCompetitors(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "service: list competitors")
	}
	return competitors, nil
}

// GetCompetitor returns one competitor, scoped to the caller's org.
func (s *Service) GetCompetitor(ctx context.Context, rc model.RequestContext, id string) (*model.Competitor, error) {
	c, err := s.store.FindCompetitor(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "service: find competitor")
	}
	if c.OrganizationID != rc.OrganizationID {
		return nil, eris.Wrap(store.ErrNotFound, "service: competitor not visible")
	}
	return c, nil
}

// ValidateCompetitor records an approve/reject decision by the caller.
func (s *Service) ValidateCompetitor(ctx context.Context, rc model.RequestContext, id, status string) (*model.Competitor, error) {
	vs := model.ValidationStatus(status)
	if vs != model.ValidationApproved && vs != model.ValidationRejected {
		return nil, Invalid("status must be approved or rejected")
	}
	if _, err := s.GetCompetitor(ctx, rc, id); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCompetitorValidation(ctx, id, vs, rc.UserID); err != nil {
		return nil, eris.Wrap(err, "service: validate competitor")
	}
	return s.store.FindCompetitor(ctx, id)
}

// EnrichCompetitor runs deep enrichment for a stored competitor and
// persists the merged result. The subscription tier gates the AI-analysis
// default; the stored record is returned with enrichment applied.
func (s *Service) EnrichCompetitor(ctx context.Context, rc model.RequestContext, id string) (*model.Competitor, error) {
	c, err := s.GetCompetitor(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if c.Website == "" {
		return nil, Unprocessable("competitor has no website to enrich")
	}

	opts := enrich.Options{
		IncludeSocialMedia: true,
		IncludeAIAnalysis:  rc.Tier.AIAnalysisDefault(),
		CrawlDepth:         s.enrichCrawlDepth,
	}
	enriched, err := s.enricher.Enrich(ctx, c.Website, &c.EnrichedCompetitor, opts)
	if err != nil {
		return nil, eris.Wrap(err, "service: enrich competitor")
	}

	if err := s.store.UpdateCompetitorEnrichment(ctx, id, model.PatchFromEnriched(*enriched)); err != nil {
		return nil, eris.Wrap(err, "service: persist enrichment")
	}
	return s.store.FindCompetitor(ctx, id)
}

// projectInOrg loads the project and hides it when it belongs to another
// organization.
func (s *Service) projectInOrg(ctx context.Context, projectID, orgID string) (*model.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "service: get project")
	}
	if project.OrganizationID != orgID {
		return nil, eris.Wrap(store.ErrNotFound, "service: project not visible")
	}
	return project, nil
}
