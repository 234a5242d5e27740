package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/dedup"
	"github.com/venturescope/scout/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`

	// ServiceKey overrides the connection password when the store
	// credential is issued separately from the URL.
	ServiceKey string `yaml:"-" mapstructure:"-"`
}

// runRank ranks a status column or parameter for the monotonic guard.
func runRank(expr string) string {
	return fmt.Sprintf(`CASE %s WHEN 'pending' THEN 1 WHEN 'searching' THEN 2 WHEN 'extracting' THEN 3 WHEN 'completed' THEN 4 WHEN 'failed' THEN 4 ELSE 0 END`, expr)
}

const (
	sqlInsertRun = `INSERT INTO discovery_runs (id, project_id, created_by, status, keywords, regions, results_count, created_at) VALUES ($1, $2, $3, $4, $5, $6, 0, $7)`

	sqlGetRun = `SELECT id, project_id, created_by, status, keywords, regions, results_count, error_message, created_at, completed_at FROM discovery_runs WHERE id = $1`

	sqlInsertCompetitor = `INSERT INTO competitors (id, organization_id, search_run_id, name, website, normalized_domain, industry, country, relevance_score, validation_status, profile, embedding, created_at, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	 ON CONFLICT (organization_id, normalized_domain) DO NOTHING`

	sqlFindCompetitor = `SELECT id, organization_id, search_run_id, relevance_score, validation_status, validated_by, validated_at, profile, created_at, updated_at FROM competitors WHERE id = $1`

	sqlListWebsites = `SELECT website FROM competitors WHERE organization_id = $1`
)

// Same-status re-application matches too: terminal writes repeat when a
// worker retries, and a repeat must succeed without moving the run.
var sqlUpdateRunStatus = fmt.Sprintf(`UPDATE discovery_runs SET
	status = $2,
	results_count = COALESCE($3, results_count),
	error_message = CASE WHEN $4 <> '' THEN $4 ELSE error_message END,
	completed_at = CASE WHEN $2 IN ('completed', 'failed') AND completed_at IS NULL THEN now() ELSE completed_at END
 WHERE id = $1 AND (%s < %s OR status = $2)`, runRank("status"), runRank("$2"))

// preparedStatements lists the hot-path queries registered on each new
// connection.
var preparedStatements = map[string]string{
	"insert_run":        sqlInsertRun,
	"get_run":           sqlGetRun,
	"update_run_status": sqlUpdateRunStatus,
	"insert_competitor": sqlInsertCompetitor,
	"find_competitor":   sqlFindCompetitor,
	"list_websites":     sqlListWebsites,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
		if poolCfg.ServiceKey != "" {
			pgxCfg.ConnConfig.Password = poolCfg.ServiceKey
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS organizations (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	subscription_tier TEXT NOT NULL DEFAULT 'free'
);

CREATE TABLE IF NOT EXISTS projects (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL REFERENCES organizations(id),
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	keywords        TEXT[] NOT NULL DEFAULT '{}',
	industries      TEXT[] NOT NULL DEFAULT '{}',
	target_regions  TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS discovery_runs (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL REFERENCES projects(id),
	created_by    TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	keywords      TEXT[] NOT NULL DEFAULT '{}',
	regions       TEXT[] NOT NULL DEFAULT '{}',
	results_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS competitors (
	id                TEXT PRIMARY KEY,
	organization_id   TEXT NOT NULL REFERENCES organizations(id),
	search_run_id     TEXT REFERENCES discovery_runs(id),
	name              TEXT NOT NULL,
	website           TEXT NOT NULL,
	normalized_domain TEXT NOT NULL,
	industry          TEXT,
	country           TEXT,
	relevance_score   INTEGER NOT NULL DEFAULT 0,
	validation_status TEXT NOT NULL DEFAULT 'pending',
	validated_by      TEXT,
	validated_at      TIMESTAMPTZ,
	profile           JSONB NOT NULL,
	embedding         vector(1536),
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_competitors_org_domain ON competitors(organization_id, normalized_domain);
CREATE INDEX IF NOT EXISTS idx_runs_project ON discovery_runs(project_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON discovery_runs(status);
CREATE INDEX IF NOT EXISTS idx_competitors_org ON competitors(organization_id);
CREATE INDEX IF NOT EXISTS idx_competitors_run ON competitors(search_run_id);

CREATE OR REPLACE FUNCTION match_competitors(query_embedding vector(1536), match_threshold double precision, match_count int, org text)
RETURNS TABLE (id text, profile jsonb, similarity double precision)
LANGUAGE sql STABLE AS $$
	SELECT c.id, c.profile, 1 - (c.embedding <=> query_embedding) AS similarity
	FROM competitors c
	WHERE c.organization_id = org
	  AND c.embedding IS NOT NULL
	  AND 1 - (c.embedding <=> query_embedding) >= match_threshold
	ORDER BY c.embedding <=> query_embedding
	LIMIT match_count;
$$;
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, projectID, userID string, keywords, regions []string) (*model.DiscoveryRun, error) {
	run := &model.DiscoveryRun{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		CreatedBy: userID,
		Status:    model.RunStatusPending,
		Keywords:  keywords,
		Regions:   regions,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx, sqlInsertRun,
		run.ID, run.ProjectID, run.CreatedBy, string(run.Status), run.Keywords, run.Regions, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.DiscoveryRun, error) {
	return scanRun(s.pool.QueryRow(ctx, sqlGetRun, runID))
}

func (s *PostgresStore) ListRuns(ctx context.Context, projectID string, limit int) ([]model.DiscoveryRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, created_by, status, keywords, regions, results_count, error_message, created_at, completed_at
		 FROM discovery_runs WHERE project_id = $1 ORDER BY created_at DESC LIMIT $2`,
		projectID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.DiscoveryRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, opts StatusOpts) error {
	if !status.Valid() {
		return eris.Wrapf(ErrConflict, "unknown status %q", status)
	}

	tag, err := s.pool.Exec(ctx, sqlUpdateRunStatus,
		runID, string(status), opts.ResultsCount, opts.ErrorMessage,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows means either the run is unknown or the transition went
	// backward; tell them apart for the caller.
	var current string
	err = s.pool.QueryRow(ctx, `SELECT status FROM discovery_runs WHERE id = $1`, runID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: check run %s", runID)
	}
	return eris.Wrapf(ErrConflict, "run %s: %s -> %s", runID, current, status)
}

func (s *PostgresStore) RunStatsSince(ctx context.Context, since, stuckBefore time.Time) (*RunStats, error) {
	var stats RunStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'failed'),
		        COUNT(*) FILTER (WHERE status IN ('pending', 'searching', 'extracting') AND created_at < $2)
		 FROM discovery_runs WHERE created_at >= $1`,
		since, stuckBefore,
	).Scan(&stats.Total, &stats.Completed, &stats.Failed, &stats.StuckPending)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: run stats")
	}
	return &stats, nil
}

func (s *PostgresStore) InsertCompetitors(ctx context.Context, records []model.Competitor) ([]string, error) {
	inserted := make([]string, 0, len(records))
	for _, c := range records {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		now := time.Now().UTC()

		profile, err := json.Marshal(c.EnrichedCompetitor)
		if err != nil {
			return inserted, eris.Wrap(err, "postgres: marshal competitor profile")
		}

		var embedding *string
		if len(c.Embedding) > 0 {
			lit := vectorLiteral(c.Embedding)
			embedding = &lit
		}

		tag, err := s.pool.Exec(ctx, sqlInsertCompetitor,
			c.ID, c.OrganizationID, nullable(c.SearchRunID), c.Name, c.Website,
			dedup.NormalizeDomain(c.Website), nullable(c.Industry), nullable(c.Country),
			c.RelevanceScore, string(model.ValidationPending), profile, embedding, now,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "postgres: insert competitor %s", c.Name)
		}
		if tag.RowsAffected() == 0 {
			zap.L().Debug("competitor already exists, skipped",
				zap.String("name", c.Name),
				zap.String("org", c.OrganizationID))
			continue
		}
		inserted = append(inserted, c.ID)
	}
	return inserted, nil
}

func (s *PostgresStore) FindCompetitor(ctx context.Context, id string) (*model.Competitor, error) {
	c, err := scanCompetitor(s.pool.QueryRow(ctx, sqlFindCompetitor, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "competitor %s", id)
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) ListCompetitors(ctx context.Context, filter CompetitorFilter) ([]model.Competitor, error) {
	query := `SELECT id, organization_id, search_run_id, relevance_score, validation_status, validated_by, validated_at, profile, created_at, updated_at
	          FROM competitors WHERE organization_id = $1`
	args := []any{filter.OrganizationID}

	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.SearchRunID != "" {
		query += ` AND search_run_id = ` + next(filter.SearchRunID)
	}
	if filter.ValidationStatus != "" {
		query += ` AND validation_status = ` + next(string(filter.ValidationStatus))
	}
	if filter.Industry != "" {
		query += ` AND industry = ` + next(filter.Industry)
	}
	if filter.Country != "" {
		query += ` AND country = ` + next(strings.ToUpper(filter.Country))
	}
	query += ` ORDER BY relevance_score DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + next(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + next(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list competitors")
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list competitors iterate")
}

func (s *PostgresStore) ListCompetitorWebsites(ctx context.Context, orgID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, sqlListWebsites, orgID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list websites")
	}
	defer rows.Close()

	var websites []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, eris.Wrap(err, "postgres: scan website")
		}
		websites = append(websites, w)
	}
	return websites, eris.Wrap(rows.Err(), "postgres: list websites iterate")
}

func (s *PostgresStore) UpdateCompetitorValidation(ctx context.Context, id string, status model.ValidationStatus, validatorID string) error {
	if status != model.ValidationApproved && status != model.ValidationRejected {
		return eris.Wrapf(ErrConflict, "invalid validation status %q", status)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE competitors SET validation_status = $2, validated_by = $3, validated_at = now(), updated_at = now() WHERE id = $1`,
		id, string(status), nullable(validatorID),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update validation %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "competitor %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateCompetitorEnrichment(ctx context.Context, id string, patch model.CompetitorPatch) error {
	existing, err := s.FindCompetitor(ctx, id)
	if err != nil {
		return err
	}

	patch.Apply(&existing.EnrichedCompetitor)
	now := time.Now().UTC()
	existing.EnrichmentDate = &now

	profile, err := json.Marshal(existing.EnrichedCompetitor)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enriched profile")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE competitors SET profile = $2, name = $3, industry = $4, country = $5, updated_at = $6 WHERE id = $1`,
		id, profile, existing.Name, nullable(existing.Industry), nullable(existing.Country), now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update enrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "competitor %s", id)
	}
	return nil
}

func (s *PostgresStore) MatchCompetitorsByEmbedding(ctx context.Context, orgID string, vector []float32, threshold float64, limit int) ([]model.Competitor, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, profile, similarity FROM match_competitors($1, $2, $3, $4)`,
		vectorLiteral(vector), threshold, limit, orgID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: match by embedding")
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		var (
			c          model.Competitor
			profile    []byte
			similarity float64
		)
		if err := rows.Scan(&c.ID, &profile, &similarity); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		if err := json.Unmarshal(profile, &c.EnrichedCompetitor); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal match profile")
		}
		c.OrganizationID = orgID
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: match iterate")
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, organization_id, name, description, keywords, industries, target_regions FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.Keywords, &p.Industries, &p.TargetRegions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "project %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get project %s", id)
	}
	return &p, nil
}

func (s *PostgresStore) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	var o model.Organization
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, subscription_tier FROM organizations WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.Name, &o.Tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "organization %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get organization %s", id)
	}
	return &o, nil
}

func (s *PostgresStore) CountRunsSince(ctx context.Context, orgID string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM discovery_runs r JOIN projects p ON p.id = r.project_id
		 WHERE p.organization_id = $1 AND r.created_at >= $2`,
		orgID, since,
	).Scan(&count)
	return count, eris.Wrap(err, "postgres: count runs")
}

// helpers

func scanRun(row pgx.Row) (*model.DiscoveryRun, error) {
	var (
		r        model.DiscoveryRun
		errMsg   *string
		finished *time.Time
	)
	err := row.Scan(&r.ID, &r.ProjectID, &r.CreatedBy, &r.Status, &r.Keywords, &r.Regions, &r.ResultsCount, &errMsg, &r.CreatedAt, &finished)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if errMsg != nil {
		r.ErrorMessage = *errMsg
	}
	r.CompletedAt = finished
	return &r, nil
}

func scanCompetitor(row pgx.Row) (*model.Competitor, error) {
	var (
		c           model.Competitor
		runID       *string
		validatedBy *string
		profile     []byte
	)
	err := row.Scan(&c.ID, &c.OrganizationID, &runID, &c.RelevanceScore, &c.ValidationStatus, &validatedBy, &c.ValidatedAt, &profile, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan competitor")
	}
	if runID != nil {
		c.SearchRunID = *runID
	}
	if validatedBy != nil {
		c.ValidatedBy = *validatedBy
	}
	if err := json.Unmarshal(profile, &c.EnrichedCompetitor); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	return &c, nil
}

// vectorLiteral renders a float32 slice in pgvector text format.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
