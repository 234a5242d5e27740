package worker

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/venturescope/scout/internal/discovery"
	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/search"
)

// Activity names; the workflow calls by name so the worker can register
// the Activities struct as one unit.
const (
	activityMarkSearching       = "MarkSearching"
	activityRunSearch           = "RunSearch"
	activityMarkExtracting      = "MarkExtracting"
	activityExtractScorePersist = "ExtractScorePersist"
	activityCompleteRun         = "CompleteRun"
	activityFailRun             = "FailRun"
)

// DefaultJobBudget is the wall clock one discovery run may consume.
const DefaultJobBudget = 600 * time.Second

// Activities adapts the discovery pipeline's phase methods to Temporal.
type Activities struct {
	pipeline *discovery.Pipeline
}

func NewActivities(p *discovery.Pipeline) *Activities {
	return &Activities{pipeline: p}
}

func (a *Activities) MarkSearching(ctx context.Context, runID string) error {
	return a.pipeline.MarkSearching(ctx, runID)
}

func (a *Activities) RunSearch(ctx context.Context, job model.DiscoveryContext) ([]search.Result, error) {
	return a.pipeline.RunSearch(ctx, job)
}

func (a *Activities) MarkExtracting(ctx context.Context, runID string) error {
	return a.pipeline.MarkExtracting(ctx, runID)
}

func (a *Activities) ExtractScorePersist(ctx context.Context, job model.DiscoveryContext, results []search.Result) (int, error) {
	return a.pipeline.ExtractScorePersist(ctx, job, results)
}

func (a *Activities) CompleteRun(ctx context.Context, runID string, resultsCount int) error {
	return a.pipeline.CompleteRun(ctx, runID, resultsCount)
}

func (a *Activities) FailRun(ctx context.Context, runID, message string) error {
	return a.pipeline.FailRun(ctx, runID, message)
}

// WorkflowInput is the workflow's argument: the job plus its budget, so
// the workflow stays deterministic when configuration changes.
type WorkflowInput struct {
	Job    model.DiscoveryContext
	Budget time.Duration
}

// DiscoveryWorkflow drives one run through its phases. Every phase
// activity retries at most twice with a 5s initial backoff; when the job
// budget is spent between phases the run is marked failed with
// error_message "timeout".
func DiscoveryWorkflow(ctx workflow.Context, input WorkflowInput) error {
	logger := workflow.GetLogger(ctx)
	if input.Budget <= 0 {
		input.Budget = DefaultJobBudget
	}
	start := workflow.Now(ctx)
	job := input.Job

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 2,
		},
	})

	overBudget := func() bool {
		return workflow.Now(ctx).Sub(start) > input.Budget
	}
	fail := func(message string) error {
		// FailRun runs on a disconnected context so a cancelled workflow
		// can still record the failure.
		dctx, _ := workflow.NewDisconnectedContext(ctx)
		dctx = workflow.WithActivityOptions(dctx, workflow.ActivityOptions{
			StartToCloseTimeout: 30 * time.Second,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
		})
		if err := workflow.ExecuteActivity(dctx, activityFailRun, job.RunID, message).Get(dctx, nil); err != nil {
			logger.Error("could not mark run failed", "run_id", job.RunID, "error", err)
		}
		return temporal.NewApplicationError(message, "DiscoveryFailed")
	}

	if err := workflow.ExecuteActivity(ctx, activityMarkSearching, job.RunID).Get(ctx, nil); err != nil {
		return fail(err.Error())
	}

	var results []search.Result
	if err := workflow.ExecuteActivity(ctx, activityRunSearch, job).Get(ctx, &results); err != nil {
		return fail(err.Error())
	}
	if overBudget() {
		return fail("timeout")
	}

	if len(results) == 0 {
		logger.Info("no search results, completing run empty", "run_id", job.RunID)
		return workflow.ExecuteActivity(ctx, activityCompleteRun, job.RunID, 0).Get(ctx, nil)
	}

	if err := workflow.ExecuteActivity(ctx, activityMarkExtracting, job.RunID).Get(ctx, nil); err != nil {
		return fail(err.Error())
	}

	var inserted int
	if err := workflow.ExecuteActivity(ctx, activityExtractScorePersist, job, results).Get(ctx, &inserted); err != nil {
		return fail(err.Error())
	}
	if overBudget() {
		return fail("timeout")
	}

	return workflow.ExecuteActivity(ctx, activityCompleteRun, job.RunID, inserted).Get(ctx, nil)
}
