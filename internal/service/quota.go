package service

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/venturescope/scout/internal/model"
)

// AllowAll is the no-quota checker used when billing is not wired in.
type AllowAll struct{}

func (AllowAll) CheckDiscovery(ctx context.Context, orgID string, tier model.Tier) error {
	return nil
}

// RunCounter is the store slice the run-count quota needs.
type RunCounter interface {
	CountRunsSince(ctx context.Context, orgID string, since time.Time) (int, error)
}

// MonthlyRunQuota caps runs per calendar month by tier. It is the dev
// stand-in for the external billing collaborator; zero means unlimited.
type MonthlyRunQuota struct {
	counter RunCounter
	limits  map[model.Tier]int
	now     func() time.Time
}

// DefaultTierLimits are the dev limits: free plans get a taste, trial
// enough to evaluate, premium unmetered.
func DefaultTierLimits() map[model.Tier]int {
	return map[model.Tier]int{
		model.TierFree:    5,
		model.TierTrial:   25,
		model.TierPremium: 0,
	}
}

func NewMonthlyRunQuota(counter RunCounter, limits map[model.Tier]int) *MonthlyRunQuota {
	if limits == nil {
		limits = DefaultTierLimits()
	}
	return &MonthlyRunQuota{counter: counter, limits: limits, now: time.Now}
}

func (q *MonthlyRunQuota) CheckDiscovery(ctx context.Context, orgID string, tier model.Tier) error {
	limit := q.limits[tier]
	if limit <= 0 {
		return nil
	}

	now := q.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	used, err := q.counter.CountRunsSince(ctx, orgID, monthStart)
	if err != nil {
		return eris.Wrap(err, "service: count runs for quota")
	}
	if used >= limit {
		return eris.Wrapf(ErrQuotaExceeded, "%d of %d runs used this month", used, limit)
	}
	return nil
}
