package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/venturescope/scout/internal/dedup"
	"github.com/venturescope/scout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs the
// local CLI mode; arrays and profiles are JSON text, and embedding
// similarity is computed in process.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	keywords        TEXT NOT NULL DEFAULT '[]',
	industries      TEXT NOT NULL DEFAULT '[]',
	target_regions  TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS discovery_runs (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL REFERENCES projects(id),
	created_by    TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	keywords      TEXT NOT NULL DEFAULT '[]',
	regions       TEXT NOT NULL DEFAULT '[]',
	results_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at    DATETIME NOT NULL,
	completed_at  DATETIME
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
	validated_at      DATETIME,
	profile           TEXT NOT NULL,
	embedding         TEXT,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_competitors_org_domain ON competitors(organization_id, normalized_domain);
CREATE INDEX IF NOT EXISTS idx_runs_project ON discovery_runs(project_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_competitors_org ON competitors(organization_id);
`

// sqliteRunRank mirrors the status rank used by the Postgres guard.
const sqliteRunRank = `CASE %s WHEN 'pending' THEN 1 WHEN 'searching' THEN 2 WHEN 'extracting' THEN 3 WHEN 'completed' THEN 4 WHEN 'failed' THEN 4 ELSE 0 END`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, projectID, userID string, keywords, regions []string) (*model.DiscoveryRun, error) {
	run := &model.DiscoveryRun{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		CreatedBy: userID,
		Status:    model.RunStatusPending,
		Keywords:  keywords,
		Regions:   regions,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO discovery_runs (id, project_id, created_by, status, keywords, regions, results_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		run.ID, run.ProjectID, run.CreatedBy, string(run.Status), jsonText(keywords), jsonText(regions), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.DiscoveryRun, error) {
	return scanSQLiteRun(s.db.QueryRowContext(ctx,
		`SELECT id, project_id, created_by, status, keywords, regions, results_count, error_message, created_at, completed_at
		 FROM discovery_runs WHERE id = ?`,
		runID,
	))
}

func (s *SQLiteStore) ListRuns(ctx context.Context, projectID string, limit int) ([]model.DiscoveryRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, created_by, status, keywords, regions, results_count, error_message, created_at, completed_at
		 FROM discovery_runs WHERE project_id = ? ORDER BY created_at DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.DiscoveryRun
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, opts StatusOpts) error {
	if !status.Valid() {
		return eris.Wrapf(ErrConflict, "unknown status %q", status)
	}

	query := strings.ReplaceAll(`UPDATE discovery_runs SET
		status = ?,
		results_count = COALESCE(?, results_count),
		error_message = CASE WHEN ? <> '' THEN ? ELSE error_message END,
		completed_at = CASE WHEN ? IN ('completed', 'failed') AND completed_at IS NULL THEN ? ELSE completed_at END
	 WHERE id = ? AND (RANK_OLD < RANK_NEW OR status = ?)`, "RANK_OLD", rankExpr("status"))
	query = strings.ReplaceAll(query, "RANK_NEW", rankExpr("?"))

	res, err := s.db.ExecContext(ctx, query,
		string(status), opts.ResultsCount, opts.ErrorMessage, opts.ErrorMessage,
		string(status), time.Now().UTC(), runID, string(status), string(status),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM discovery_runs WHERE id = ?`, runID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: check run %s", runID)
	}
	return eris.Wrapf(ErrConflict, "run %s: %s -> %s", runID, current, status)
}

func (s *SQLiteStore) RunStatsSince(ctx context.Context, since, stuckBefore time.Time) (*RunStats, error) {
	var stats RunStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN status IN ('pending', 'searching', 'extracting') AND created_at < ? THEN 1 ELSE 0 END)
		 FROM discovery_runs WHERE created_at >= ?`,
		stuckBefore, since,
	).Scan(&stats.Total, newNullInt(&stats.Completed), newNullInt(&stats.Failed), newNullInt(&stats.StuckPending))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: run stats")
	}
	return &stats, nil
}

func (s *SQLiteStore) InsertCompetitors(ctx context.Context, records []model.Competitor) ([]string, error) {
	inserted := make([]string, 0, len(records))
	for _, c := range records {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		now := time.Now().UTC()

		profile, err := json.Marshal(c.EnrichedCompetitor)
		if err != nil {
			return inserted, eris.Wrap(err, "sqlite: marshal competitor profile")
		}

		var embedding any
		if len(c.Embedding) > 0 {
			embedding = jsonText(c.Embedding)
		}

		res, err := s.db.ExecContext(ctx,
			`INSERT INTO competitors (id, organization_id, search_run_id, name, website, normalized_domain, industry, country, relevance_score, validation_status, profile, embedding, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (organization_id, normalized_domain) DO NOTHING`,
			c.ID, c.OrganizationID, nullable(c.SearchRunID), c.Name, c.Website,
			dedup.NormalizeDomain(c.Website), nullable(c.Industry), nullable(c.Country),
			c.RelevanceScore, string(model.ValidationPending), string(profile), embedding, now, now,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "sqlite: insert competitor %s", c.Name)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, eris.Wrap(err, "sqlite: rows affected")
		}
		if n == 0 {
			zap.L().Debug("competitor already exists, skipped",
				zap.String("name", c.Name),
				zap.String("org", c.OrganizationID))
			continue
		}
		inserted = append(inserted, c.ID)
	}
	return inserted, nil
}

func (s *SQLiteStore) FindCompetitor(ctx context.Context, id string) (*model.Competitor, error) {
	c, err := scanSQLiteCompetitor(s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, search_run_id, relevance_score, validation_status, validated_by, validated_at, profile, created_at, updated_at
		 FROM competitors WHERE id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "competitor %s", id)
	}
	return c, err
}

func (s *SQLiteStore) ListCompetitors(ctx context.Context, filter CompetitorFilter) ([]model.Competitor, error) {
	query := `SELECT id, organization_id, search_run_id, relevance_score, validation_status, validated_by, validated_at, profile, created_at, updated_at
	          FROM competitors WHERE organization_id = ?`
	args := []any{filter.OrganizationID}

	if filter.SearchRunID != "" {
		query += ` AND search_run_id = ?`
		args = append(args, filter.SearchRunID)
	}
	if filter.ValidationStatus != "" {
		query += ` AND validation_status = ?`
		args = append(args, string(filter.ValidationStatus))
	}
	if filter.Industry != "" {
		query += ` AND industry = ?`
		args = append(args, filter.Industry)
	}
	if filter.Country != "" {
		query += ` AND country = ?`
		args = append(args, strings.ToUpper(filter.Country))
	}
	query += ` ORDER BY relevance_score DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list competitors")
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		c, err := scanSQLiteCompetitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list competitors iterate")
}

func (s *SQLiteStore) ListCompetitorWebsites(ctx context.Context, orgID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT website FROM competitors WHERE organization_id = ?`, orgID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list websites")
	}
	defer rows.Close()

	var websites []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan website")
		}
		websites = append(websites, w)
	}
	return websites, eris.Wrap(rows.Err(), "sqlite: list websites iterate")
}

func (s *SQLiteStore) UpdateCompetitorValidation(ctx context.Context, id string, status model.ValidationStatus, validatorID string) error {
	if status != model.ValidationApproved && status != model.ValidationRejected {
		return eris.Wrapf(ErrConflict, "invalid validation status %q", status)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE competitors SET validation_status = ?, validated_by = ?, validated_at = ?, updated_at = ? WHERE id = ?`,
		string(status), nullable(validatorID), now, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update validation %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "competitor %s", id)
	}
	return nil
}

func (s *SQLiteStore) UpdateCompetitorEnrichment(ctx context.Context, id string, patch model.CompetitorPatch) error {
	existing, err := s.FindCompetitor(ctx, id)
	if err != nil {
		return err
	}

	patch.Apply(&existing.EnrichedCompetitor)
	now := time.Now().UTC()
	existing.EnrichmentDate = &now

	profile, err := json.Marshal(existing.EnrichedCompetitor)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enriched profile")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE competitors SET profile = ?, name = ?, industry = ?, country = ?, updated_at = ? WHERE id = ?`,
		string(profile), existing.Name, nullable(existing.Industry), nullable(existing.Country), now, id,
	)
	return eris.Wrapf(err, "sqlite: update enrichment %s", id)
}

// MatchCompetitorsByEmbedding loads the organization's stored vectors
// and computes cosine similarity in process. The local corpus is small
// enough that this beats shipping a vector index.
func (s *SQLiteStore) MatchCompetitorsByEmbedding(ctx context.Context, orgID string, vector []float32, threshold float64, limit int) ([]model.Competitor, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profile, embedding FROM competitors WHERE organization_id = ? AND embedding IS NOT NULL`,
		orgID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load embeddings")
	}
	defer rows.Close()

	type scored struct {
		c   model.Competitor
		sim float64
	}
	var matches []scored
	for rows.Next() {
		var (
			c             model.Competitor
			profile, vec  string
		)
		if err := rows.Scan(&c.ID, &profile, &vec); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan embedding row")
		}

		var stored []float32
		if err := json.Unmarshal([]byte(vec), &stored); err != nil {
			continue
		}
		sim := cosine(vector, stored)
		if sim < threshold {
			continue
		}
		if err := json.Unmarshal([]byte(profile), &c.EnrichedCompetitor); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal match profile")
		}
		c.OrganizationID = orgID
		matches = append(matches, scored{c: c, sim: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: embeddings iterate")
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].sim > matches[j].sim })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]model.Competitor, len(matches))
	for i, m := range matches {
		out[i] = m.c
	}
	return out, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var (
		p                             model.Project
		keywords, industries, regions string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, name, description, keywords, industries, target_regions FROM projects WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &keywords, &industries, &regions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "project %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get project %s", id)
	}

	if err := json.Unmarshal([]byte(keywords), &p.Keywords); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal keywords")
	}
	if err := json.Unmarshal([]byte(industries), &p.Industries); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal industries")
	}
	if err := json.Unmarshal([]byte(regions), &p.TargetRegions); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal target regions")
	}
	return &p, nil
}

func (s *SQLiteStore) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	var o model.Organization
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, subscription_tier FROM organizations WHERE id = ?`,
		id,
	).Scan(&o.ID, &o.Name, &o.Tier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "organization %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get organization %s", id)
	}
	return &o, nil
}

func (s *SQLiteStore) CountRunsSince(ctx context.Context, orgID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM discovery_runs r JOIN projects p ON p.id = r.project_id
		 WHERE p.organization_id = ? AND r.created_at >= ?`,
		orgID, since,
	).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count runs")
}

// helpers

func rankExpr(col string) string {
	return strings.ReplaceAll(sqliteRunRank, "%s", col)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row rowScanner) (*model.DiscoveryRun, error) {
	var (
		r                 model.DiscoveryRun
		keywords, regions string
		errMsg            sql.NullString
		finished          sql.NullTime
	)
	err := row.Scan(&r.ID, &r.ProjectID, &r.CreatedBy, &r.Status, &keywords, &regions, &r.ResultsCount, &errMsg, &r.CreatedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal keywords")
	}
	if err := json.Unmarshal([]byte(regions), &r.Regions); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal regions")
	}
	if errMsg.Valid {
		r.ErrorMessage = errMsg.String
	}
	if finished.Valid {
		t := finished.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func scanSQLiteCompetitor(row rowScanner) (*model.Competitor, error) {
	var (
		c           model.Competitor
		runID       sql.NullString
		validatedBy sql.NullString
		validatedAt sql.NullTime
		profile     string
	)
	err := row.Scan(&c.ID, &c.OrganizationID, &runID, &c.RelevanceScore, &c.ValidationStatus, &validatedBy, &validatedAt, &profile, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan competitor")
	}

	if runID.Valid {
		c.SearchRunID = runID.String
	}
	if validatedBy.Valid {
		c.ValidatedBy = validatedBy.String
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		c.ValidatedAt = &t
	}
	if err := json.Unmarshal([]byte(profile), &c.EnrichedCompetitor); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	return &c, nil
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func newNullInt(dst *int) *nullInt {
	return &nullInt{dst: dst}
}

// nullInt scans SUM() results, which are NULL over zero rows.
type nullInt struct {
	dst *int
}

func (n *nullInt) Scan(value any) error {
	if value == nil {
		*n.dst = 0
		return nil
	}
	switch v := value.(type) {
	case int64:
		*n.dst = int(v)
	case float64:
		*n.dst = int(v)
	default:
		return eris.Errorf("unexpected sum type %T", value)
	}
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
