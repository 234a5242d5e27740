// Package worker runs discovery jobs. Two backends serve the same queue
// port: a durable Temporal workflow and an in-process pool for dev and
// single-node deployments.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/discovery"
	"github.com/venturescope/scout/internal/metrics"
	"github.com/venturescope/scout/internal/model"
)

// InlineConfig sizes the in-process pool.
type InlineConfig struct {
	Concurrency  int
	MaxAttempts  int
	Backoff      time.Duration
	Wallclock    time.Duration
	DrainTimeout time.Duration
}

func (c *InlineConfig) defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.Backoff <= 0 {
		c.Backoff = 5 * time.Second
	}
	if c.Wallclock <= 0 {
		c.Wallclock = 600 * time.Second
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 30 * time.Second
	}
}

// InlinePool executes jobs on a bounded channel with a fixed goroutine
// pool. Not durable: jobs die with the process.
type InlinePool struct {
	pipeline *discovery.Pipeline
	cfg      InlineConfig

	jobs chan model.DiscoveryContext
	wg   sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

func NewInlinePool(p *discovery.Pipeline, cfg InlineConfig) *InlinePool {
	cfg.defaults()
	return &InlinePool{
		pipeline: p,
		cfg:      cfg,
		jobs:     make(chan model.DiscoveryContext, cfg.Concurrency*4),
	}
}

// Start launches the worker goroutines. ctx bounds the whole pool: when
// it is done, intake closes and in-flight jobs get the drain timeout to
// finish.
func (p *InlinePool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.process(job)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		p.Shutdown()
	}()
}

// Enqueue hands a job to the pool. Fails when the pool is shut down or
// the buffer is full; callers surface that to the tenant rather than
// blocking a request goroutine.
func (p *InlinePool) Enqueue(ctx context.Context, job model.DiscoveryContext) (string, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return "", eris.New("worker: pool is shut down")
	}

	select {
	case p.jobs <- job:
		metrics.QueueDepth.Set(float64(len(p.jobs)))
		return "inline-" + uuid.NewString(), nil
	default:
		return "", eris.New("worker: job buffer full")
	}
}

// Shutdown stops intake and waits for in-flight jobs up to the drain
// timeout. Safe to call more than once.
func (p *InlinePool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		zap.L().Info("inline pool drained")
	case <-time.After(p.cfg.DrainTimeout):
		zap.L().Warn("inline pool drain timed out, abandoning in-flight jobs")
	}
}

// process runs one job with attempts and a wall-clock budget per attempt.
// When every attempt is spent the run is marked failed.
func (p *InlinePool) process(job model.DiscoveryContext) {
	metrics.QueueDepth.Set(float64(len(p.jobs)))
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		lastErr = p.attempt(job)
		if lastErr == nil {
			metrics.JobAttempts.WithLabelValues("ok").Inc()
			metrics.RunsFinished.WithLabelValues("completed").Inc()
			metrics.RunDuration.Observe(time.Since(start).Seconds())
			return
		}
		metrics.JobAttempts.WithLabelValues("error").Inc()
		zap.L().Warn("discovery attempt failed",
			zap.String("run_id", job.RunID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		if attempt < p.cfg.MaxAttempts {
			time.Sleep(p.cfg.Backoff * time.Duration(1<<(attempt-1)))
		}
	}

	metrics.RunsFinished.WithLabelValues("failed").Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	msg := lastErr.Error()
	if eris.Is(lastErr, context.DeadlineExceeded) {
		msg = "timeout"
	}
	failCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.pipeline.FailRun(failCtx, job.RunID, msg); err != nil {
		zap.L().Error("could not mark run failed",
			zap.String("run_id", job.RunID),
			zap.Error(err))
	}
}

func (p *InlinePool) attempt(job model.DiscoveryContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.New(fmt.Sprintf("panic in discovery job: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Wallclock)
	defer cancel()
	return p.pipeline.Execute(ctx, job)
}
