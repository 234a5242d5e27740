// Package monitoring takes periodic health snapshots from the store and
// raises webhook alerts when thresholds are breached.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/venturescope/scout/internal/store"
)

// MetricsSnapshot is a point-in-time view of discovery health.
type MetricsSnapshot struct {
	RunsTotal     int     `json:"runs_total"`
	RunsCompleted int     `json:"runs_completed"`
	RunsFailed    int     `json:"runs_failed"`
	StuckPending  int     `json:"stuck_pending"`
	FailureRate   float64 `json:"failure_rate"`
	SpendUSD      float64 `json:"spend_usd"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// SpendReader reports process-lifetime provider spend. Optional; nil
// means the cost alert never fires.
type SpendReader interface {
	Total() float64
}

// Collector gathers snapshots from the store.
type Collector struct {
	store      store.Store
	spend      SpendReader
	stuckAfter time.Duration
	now        func() time.Time
}

func NewCollector(st store.Store, spend SpendReader, stuckAfter time.Duration) *Collector {
	if stuckAfter <= 0 {
		stuckAfter = 15 * time.Minute
	}
	return &Collector{store: st, spend: spend, stuckAfter: stuckAfter, now: time.Now}
}

// Collect aggregates run outcomes over the lookback window. A pending
// run older than the stuck threshold counts as stuck.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	since := now.Add(-time.Duration(lookbackHours) * time.Hour)
	stuckBefore := now.Add(-c.stuckAfter)

	stats, err := c.store.RunStatsSince(ctx, since, stuckBefore)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: run stats")
	}

	snap := &MetricsSnapshot{
		RunsTotal:     stats.Total,
		RunsCompleted: stats.Completed,
		RunsFailed:    stats.Failed,
		StuckPending:  stats.StuckPending,
		FailureRate:   stats.FailureRate(),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	if c.spend != nil {
		snap.SpendUSD = c.spend.Total()
	}
	return snap, nil
}
