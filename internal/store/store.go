// Package store persists discovery runs and competitors. Two adapters
// implement the same port: Postgres for deployment and SQLite for
// local, single-binary use.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/venturescope/scout/internal/model"
)

// StatusOpts carries the optional fields of a status transition.
type StatusOpts struct {
	// ResultsCount sets the run's aggregate result count when non-nil.
	ResultsCount *int
	// ErrorMessage is recorded on failed transitions.
	ErrorMessage string
}

// CompetitorFilter narrows ListCompetitors. OrganizationID is required;
// everything else is optional.
type CompetitorFilter struct {
	OrganizationID   string                 `json:"organization_id"`
	SearchRunID      string                 `json:"search_run_id,omitempty"`
	ValidationStatus model.ValidationStatus `json:"validation_status,omitempty"`
	Industry         string                 `json:"industry,omitempty"`
	Country          string                 `json:"country,omitempty"`
	Limit            int                    `json:"limit,omitempty"`
	Offset           int                    `json:"offset,omitempty"`
}

// RunStats aggregates run outcomes over a window, for monitoring.
type RunStats struct {
	Total        int `json:"total"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	StuckPending int `json:"stuck_pending"`
}

// FailureRate is failed over total, 0 when the window is empty.
func (s RunStats) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Total)
}

// Store is the persistence port. Writes are idempotent by the stated
// unique keys; status transitions are enforced monotonic in SQL.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, projectID, userID string, keywords, regions []string) (*model.DiscoveryRun, error)
	GetRun(ctx context.Context, runID string) (*model.DiscoveryRun, error)
	ListRuns(ctx context.Context, projectID string, limit int) ([]model.DiscoveryRun, error)
	// UpdateRunStatus applies a forward transition. A backward or
	// lateral transition returns ErrConflict; an unknown run returns
	// ErrNotFound. Terminal statuses also stamp completed_at.
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, opts StatusOpts) error
	// RunStatsSince aggregates runs created after since; pending runs
	// created before stuckBefore count as stuck.
	RunStatsSince(ctx context.Context, since, stuckBefore time.Time) (*RunStats, error)

	// Competitors
	// InsertCompetitors inserts each record, skipping rows whose
	// (organization, normalized domain) already exists. Returns the ids
	// actually inserted.
	InsertCompetitors(ctx context.Context, records []model.Competitor) ([]string, error)
	FindCompetitor(ctx context.Context, id string) (*model.Competitor, error)
	ListCompetitors(ctx context.Context, filter CompetitorFilter) ([]model.Competitor, error)
	ListCompetitorWebsites(ctx context.Context, orgID string) ([]string, error)
	UpdateCompetitorValidation(ctx context.Context, id string, status model.ValidationStatus, validatorID string) error
	// UpdateCompetitorEnrichment merges the patch into the stored
	// profile and stamps enrichment_date.
	UpdateCompetitorEnrichment(ctx context.Context, id string, patch model.CompetitorPatch) error
	MatchCompetitorsByEmbedding(ctx context.Context, orgID string, vector []float32, threshold float64, limit int) ([]model.Competitor, error)

	// External reads (identity collaborator's tables)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	GetOrganization(ctx context.Context, id string) (*model.Organization, error)
	// CountRunsSince counts runs started by the organization after
	// since, for quota checks.
	CountRunsSince(ctx context.Context, orgID string, since time.Time) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open selects the adapter by URL scheme: postgres:// and postgresql://
// open a pgx pool, everything else is treated as a SQLite path
// (optionally prefixed sqlite://). serviceKey, when non-empty, is the
// database credential for the postgres adapter; SQLite ignores it.
func Open(ctx context.Context, url, serviceKey string) (Store, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return NewPostgres(ctx, url, &PoolConfig{ServiceKey: serviceKey})
	}
	return NewSQLite(strings.TrimPrefix(url, "sqlite://"))
}
