package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/venturescope/scout/internal/discovery"
	"github.com/venturescope/scout/internal/extract"
	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/query"
	"github.com/venturescope/scout/internal/score"
	"github.com/venturescope/scout/internal/search"
	"github.com/venturescope/scout/internal/store"
)

type recordingStore struct {
	store.Store

	mu        sync.Mutex
	statuses  []model.RunStatus
	lastError string
	lastCount *int
	insertErr error
}

func (s *recordingStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, opts store.StatusOpts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	s.lastError = opts.ErrorMessage
	s.lastCount = opts.ResultsCount
	return nil
}

func (s *recordingStore) InsertCompetitors(ctx context.Context, records []model.Competitor) ([]string, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].Name
	}
	return ids, nil
}

func (s *recordingStore) recorded() []model.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RunStatus(nil), s.statuses...)
}

type fixedSearcher struct {
	results []search.Result
}

func (f fixedSearcher) Run(ctx context.Context, queries []string) ([]search.Result, error) {
	return f.results, nil
}

type fixedExtractor struct {
	out []model.BasicCompetitor
}

func (f fixedExtractor) Extract(ctx context.Context, results []search.Result, ec extract.Context) ([]model.BasicCompetitor, error) {
	return f.out, nil
}

type noopDeduper struct{}

func (noopDeduper) Filter(ctx context.Context, orgID string, cands []model.Candidate) []model.Candidate {
	return cands
}

func strongCandidate(name string) model.BasicCompetitor {
	return model.BasicCompetitor{
		Name:             name,
		Website:          "https://" + name + ".com",
		Description:      "Digital bank",
		Industry:         "fintech",
		Country:          "NG",
		BusinessModel:    "B2C",
		ValueProposition: "Free banking",
		FoundedYear:      2024,
		TotalFunding:     5_000_000,
	}
}

func testPipeline(st *recordingStore, withResults bool) *discovery.Pipeline {
	var results []search.Result
	var extracted []model.BasicCompetitor
	if withResults {
		results = []search.Result{{URL: "https://kuda.com", Title: "Kuda"}}
		extracted = []model.BasicCompetitor{strongCandidate("kuda")}
	}
	return discovery.NewPipeline(st,
		query.NewBuilder(query.DefaultLadder()),
		fixedSearcher{results: results},
		fixedExtractor{out: extracted},
		score.NewScorer(75),
		noopDeduper{})
}

func testJob() model.DiscoveryContext {
	return model.DiscoveryContext{
		RunID:          "run-1",
		OrganizationID: "org-1",
		Keywords:       []string{"digital banking"},
		Regions:        []string{"NG"},
		Industries:     []string{"fintech"},
		Tier:           model.TierPremium,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestInlinePoolRunsJob(t *testing.T) {
	t.Parallel()

	st := &recordingStore{}
	pool := NewInlinePool(testPipeline(st, true), InlineConfig{Concurrency: 2, Backoff: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	jobID, err := pool.Enqueue(context.Background(), testJob())
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	waitFor(t, func() bool {
		rec := st.recorded()
		return len(rec) > 0 && rec[len(rec)-1] == model.RunStatusCompleted
	})
	assert.Equal(t, []model.RunStatus{
		model.RunStatusSearching,
		model.RunStatusExtracting,
		model.RunStatusCompleted,
	}, st.recorded())
}

func TestInlinePoolFailsRunAfterAttempts(t *testing.T) {
	t.Parallel()

	st := &recordingStore{insertErr: eris.New("schema mismatch")}
	pool := NewInlinePool(testPipeline(st, true), InlineConfig{
		Concurrency: 1,
		MaxAttempts: 2,
		Backoff:     time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	_, err := pool.Enqueue(context.Background(), testJob())
	require.NoError(t, err)

	waitFor(t, func() bool {
		rec := st.recorded()
		return len(rec) > 0 && rec[len(rec)-1] == model.RunStatusFailed
	})
	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Contains(t, st.lastError, "schema mismatch")
}

// guardedStore enforces the same monotonic rule as the real backends:
// forward transitions and same-status repeats succeed, backward ones
// conflict.
type guardedStore struct {
	recordingStore

	current        model.RunStatus
	insertFailures int
}

func statusRank(s model.RunStatus) int {
	switch s {
	case model.RunStatusPending:
		return 1
	case model.RunStatusSearching:
		return 2
	case model.RunStatusExtracting:
		return 3
	case model.RunStatusCompleted, model.RunStatusFailed:
		return 4
	}
	return 0
}

func (s *guardedStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus, opts store.StatusOpts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if statusRank(status) <= statusRank(s.current) && status != s.current {
		return eris.Wrapf(store.ErrConflict, "run %s: %s -> %s", runID, s.current, status)
	}
	s.current = status
	s.statuses = append(s.statuses, status)
	s.lastError = opts.ErrorMessage
	s.lastCount = opts.ResultsCount
	return nil
}

func (s *guardedStore) InsertCompetitors(ctx context.Context, records []model.Competitor) ([]string, error) {
	s.mu.Lock()
	if s.insertFailures > 0 {
		s.insertFailures--
		s.mu.Unlock()
		return nil, eris.New("connection reset by peer")
	}
	s.mu.Unlock()
	return s.recordingStore.InsertCompetitors(ctx, records)
}

// A transient failure on the first attempt must not poison the second:
// the retry walks the phases again over a run that already made partial
// progress and still completes.
func TestInlinePoolRetryRecoversRun(t *testing.T) {
	t.Parallel()

	st := &guardedStore{current: model.RunStatusPending, insertFailures: 1}
	pipeline := discovery.NewPipeline(st,
		query.NewBuilder(query.DefaultLadder()),
		fixedSearcher{results: []search.Result{{URL: "https://kuda.com", Title: "Kuda"}}},
		fixedExtractor{out: []model.BasicCompetitor{strongCandidate("kuda")}},
		score.NewScorer(75),
		noopDeduper{})
	pool := NewInlinePool(pipeline, InlineConfig{
		Concurrency: 1,
		MaxAttempts: 2,
		Backoff:     time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	_, err := pool.Enqueue(context.Background(), testJob())
	require.NoError(t, err)

	waitFor(t, func() bool {
		rec := st.recorded()
		return len(rec) > 0 && rec[len(rec)-1] == model.RunStatusCompleted
	})
	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Equal(t, model.RunStatusCompleted, st.current)
	require.NotNil(t, st.lastCount)
	assert.Equal(t, 1, *st.lastCount)
}

func TestInlinePoolEnqueueAfterShutdown(t *testing.T) {
	t.Parallel()

	pool := NewInlinePool(testPipeline(&recordingStore{}, false), InlineConfig{Concurrency: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	pool.Shutdown()

	_, err := pool.Enqueue(context.Background(), testJob())
	assert.Error(t, err)
}

func TestDiscoveryWorkflowHappyPath(t *testing.T) {
	t.Parallel()

	st := &recordingStore{}
	acts := NewActivities(testPipeline(st, true))

	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DiscoveryWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(DiscoveryWorkflow, WorkflowInput{Job: testJob()})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	assert.Equal(t, []model.RunStatus{
		model.RunStatusSearching,
		model.RunStatusExtracting,
		model.RunStatusCompleted,
	}, st.recorded())
	st.mu.Lock()
	defer st.mu.Unlock()
	require.NotNil(t, st.lastCount)
	assert.Equal(t, 1, *st.lastCount)
}

func TestDiscoveryWorkflowEmptyResults(t *testing.T) {
	t.Parallel()

	st := &recordingStore{}
	acts := NewActivities(testPipeline(st, false))

	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DiscoveryWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(DiscoveryWorkflow, WorkflowInput{Job: testJob()})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	assert.Equal(t, []model.RunStatus{
		model.RunStatusSearching,
		model.RunStatusCompleted,
	}, st.recorded())
	st.mu.Lock()
	defer st.mu.Unlock()
	require.NotNil(t, st.lastCount)
	assert.Zero(t, *st.lastCount)
}

func TestDiscoveryWorkflowPersistenceFatal(t *testing.T) {
	t.Parallel()

	st := &recordingStore{insertErr: eris.New("schema mismatch")}
	acts := NewActivities(testPipeline(st, true))

	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DiscoveryWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(DiscoveryWorkflow, WorkflowInput{Job: testJob()})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())

	rec := st.recorded()
	require.NotEmpty(t, rec)
	assert.Equal(t, model.RunStatusFailed, rec[len(rec)-1])
}
