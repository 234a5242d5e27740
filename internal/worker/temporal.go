package worker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/model"
)

// TemporalConfig locates the Temporal cluster and task queue.
type TemporalConfig struct {
	HostPort    string
	Namespace   string
	TaskQueue   string
	Concurrency int
	JobBudget   time.Duration
}

func (c *TemporalConfig) defaults() {
	if c.TaskQueue == "" {
		c.TaskQueue = "scout-discovery"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.JobBudget <= 0 {
		c.JobBudget = DefaultJobBudget
	}
}

// NewTemporalClient dials the cluster with zap plugged into the SDK.
func NewTemporalClient(cfg TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    NewZapAdapter(zap.L()),
	})
	if err != nil {
		return nil, eris.Wrap(err, "worker: dial temporal")
	}
	return c, nil
}

// TemporalQueue enqueues discovery jobs as workflow executions.
type TemporalQueue struct {
	client client.Client
	cfg    TemporalConfig
}

func NewTemporalQueue(c client.Client, cfg TemporalConfig) *TemporalQueue {
	cfg.defaults()
	return &TemporalQueue{client: c, cfg: cfg}
}

// Enqueue starts the discovery workflow for the run. The workflow id is
// derived from the run id so a duplicate enqueue of the same run is
// rejected by the cluster instead of racing itself.
func (q *TemporalQueue) Enqueue(ctx context.Context, job model.DiscoveryContext) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:                 "discovery-" + job.RunID,
		TaskQueue:          q.cfg.TaskQueue,
		WorkflowRunTimeout: q.cfg.JobBudget + 60*time.Second,
	}
	run, err := q.client.ExecuteWorkflow(ctx, opts, DiscoveryWorkflow, WorkflowInput{
		Job:    job,
		Budget: q.cfg.JobBudget,
	})
	if err != nil {
		return "", eris.Wrap(err, "worker: start discovery workflow")
	}
	return run.GetID(), nil
}

// RunWorker registers the workflow and activities and blocks until an
// interrupt signal. Meant to be the body of `scout worker`.
func RunWorker(c client.Client, cfg TemporalConfig, acts *Activities) error {
	cfg.defaults()
	wk := worker.New(c, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.Concurrency,
	})
	wk.RegisterWorkflow(DiscoveryWorkflow)
	wk.RegisterActivity(acts)

	zap.L().Info("temporal worker starting",
		zap.String("task_queue", cfg.TaskQueue),
		zap.Int("concurrency", cfg.Concurrency))
	if err := wk.Run(worker.InterruptCh()); err != nil {
		return eris.Wrap(err, "worker: run")
	}
	return nil
}
