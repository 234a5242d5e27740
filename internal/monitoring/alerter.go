package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate AlertType = "run_failure_rate"
	AlertStuckRuns      AlertType = "stuck_runs"
	AlertCostOverrun    AlertType = "cost_overrun"
)

// Alert is one threshold breach, posted to the webhook as JSON.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates snapshots against configured thresholds and posts
// breaches to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// minFinishedRuns keeps the failure-rate alert quiet on tiny samples.
const minFinishedRuns = 5

// Evaluate returns the alerts the snapshot triggers.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.RunsCompleted + snap.RunsFailed
	if finished >= minFinishedRuns && snap.FailureRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"discovery failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailureRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours),
			Details: map[string]any{
				"failure_rate": snap.FailureRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if snap.StuckPending > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertStuckRuns,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d run(s) stuck pending, the queue is not draining",
				snap.StuckPending),
			Details: map[string]any{
				"stuck_pending": snap.StuckPending,
				"runs_total":    snap.RunsTotal,
			},
			Timestamp: now,
		})
	}

	if a.cfg.CostThresholdUSD > 0 && snap.SpendUSD > a.cfg.CostThresholdUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "high",
			Message: fmt.Sprintf(
				"provider spend $%.2f exceeds threshold $%.2f",
				snap.SpendUSD, a.cfg.CostThresholdUSD),
			Details: map[string]any{
				"spend_usd":     snap.SpendUSD,
				"threshold_usd": a.cfg.CostThresholdUSD,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts posts alerts to the configured webhook and returns how many
// went through.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("could not send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err))
			continue
		}
		zap.L().Info("alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity))
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
