package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturescope/scout/internal/config"
	"github.com/venturescope/scout/internal/store"
)

type statsStore struct {
	store.Store

	stats    *store.RunStats
	gotSince time.Time
	gotStuck time.Time
}

func (s *statsStore) RunStatsSince(_ context.Context, since, stuckBefore time.Time) (*store.RunStats, error) {
	s.gotSince = since
	s.gotStuck = stuckBefore
	return s.stats, nil
}

type fixedSpend float64

func (f fixedSpend) Total() float64 { return float64(f) }

func TestCollectorSnapshot(t *testing.T) {
	t.Parallel()

	st := &statsStore{stats: &store.RunStats{Total: 10, Completed: 7, Failed: 2, StuckPending: 1}}
	c := NewCollector(st, fixedSpend(12.5), 15*time.Minute)

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 10, snap.RunsTotal)
	assert.Equal(t, 7, snap.RunsCompleted)
	assert.Equal(t, 2, snap.RunsFailed)
	assert.Equal(t, 1, snap.StuckPending)
	assert.InDelta(t, 0.2, snap.FailureRate, 0.001)
	assert.InDelta(t, 12.5, snap.SpendUSD, 0.001)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, now, snap.CollectedAt)

	assert.Equal(t, now.Add(-24*time.Hour), st.gotSince)
	assert.Equal(t, now.Add(-15*time.Minute), st.gotStuck)
}

func TestCollectorNilSpend(t *testing.T) {
	t.Parallel()

	st := &statsStore{stats: &store.RunStats{}}
	c := NewCollector(st, nil, 0)

	snap, err := c.Collect(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, snap.SpendUSD)
}

func TestAlerterEvaluate(t *testing.T) {
	t.Parallel()

	cfg := config.MonitoringConfig{
		FailureRateThreshold: 0.5,
		CostThresholdUSD:     10,
	}

	tests := []struct {
		name string
		snap MetricsSnapshot
		want []AlertType
	}{
		{
			name: "healthy",
			snap: MetricsSnapshot{RunsTotal: 10, RunsCompleted: 9, RunsFailed: 1, FailureRate: 0.1},
			want: nil,
		},
		{
			name: "failure rate breached",
			snap: MetricsSnapshot{RunsTotal: 10, RunsCompleted: 3, RunsFailed: 7, FailureRate: 0.7},
			want: []AlertType{AlertRunFailureRate},
		},
		{
			name: "failure rate ignored on small sample",
			snap: MetricsSnapshot{RunsTotal: 2, RunsCompleted: 0, RunsFailed: 2, FailureRate: 1},
			want: nil,
		},
		{
			name: "stuck runs",
			snap: MetricsSnapshot{RunsTotal: 3, StuckPending: 2},
			want: []AlertType{AlertStuckRuns},
		},
		{
			name: "cost overrun",
			snap: MetricsSnapshot{SpendUSD: 25},
			want: []AlertType{AlertCostOverrun},
		},
		{
			name: "everything at once",
			snap: MetricsSnapshot{
				RunsTotal: 10, RunsCompleted: 2, RunsFailed: 8,
				FailureRate: 0.8, StuckPending: 1, SpendUSD: 11,
			},
			want: []AlertType{AlertRunFailureRate, AlertStuckRuns, AlertCostOverrun},
		},
	}

	a := NewAlerter(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			alerts := a.Evaluate(&tt.snap)
			var got []AlertType
			for _, al := range alerts {
				got = append(got, al.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlerterCostThresholdDisabled(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{CostThresholdUSD: 0})
	alerts := a.Evaluate(&MetricsSnapshot{SpendUSD: 9999})
	assert.Empty(t, alerts)
}

func TestSendAlertsPostsJSON(t *testing.T) {
	t.Parallel()

	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, AlertStuckRuns, alert.Type)
		assert.Equal(t, "high", alert.Severity)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{
		Type:      AlertStuckRuns,
		Severity:  "high",
		Message:   "2 run(s) stuck pending",
		Timestamp: time.Now().UTC(),
	}})

	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
}

func TestSendAlertsWebhookFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertCostOverrun}})
	assert.Zero(t, sent)
}

func TestSendAlertsNoWebhookConfigured(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{})
	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertStuckRuns}})
	assert.Zero(t, sent)
}
