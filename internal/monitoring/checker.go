package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/config"
)

// Checker runs the collect/evaluate/alert cycle on a timer.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
	log       *zap.Logger
}

func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		log:       zap.L().With(zap.String("component", "monitoring.checker")),
	}
}

// Run blocks until ctx is cancelled, checking at the configured interval.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	c.log.Info("monitoring started",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("monitoring stopped")
			return
		case <-ticker.C:
			c.check(ctx)
		}
	}
}

func (c *Checker) check(ctx context.Context) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		c.log.Error("health check failed", zap.Error(err))
		return
	}

	c.log.Debug("health snapshot",
		zap.Int("runs_total", snap.RunsTotal),
		zap.Int("runs_failed", snap.RunsFailed),
		zap.Int("stuck_pending", snap.StuckPending),
		zap.Float64("failure_rate", snap.FailureRate),
		zap.Float64("spend_usd", snap.SpendUSD))

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		return
	}
	sent := c.alerter.SendAlerts(ctx, alerts)
	c.log.Warn("health thresholds breached",
		zap.Int("alerts", len(alerts)),
		zap.Int("sent", sent))
}
