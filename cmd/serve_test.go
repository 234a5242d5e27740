package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venturescope/scout/internal/config"
	"github.com/venturescope/scout/internal/worker"
)

func TestTemporalConfigFromAppConfig(t *testing.T) {
	cfg = &config.Config{
		Queue: config.QueueConfig{
			TemporalHostPort: "temporal:7233",
			TemporalNS:       "scout",
			TaskQueue:        "scout-discovery",
		},
		Worker: config.WorkerConfig{
			Concurrency:   8,
			WallclockSecs: 300,
		},
	}

	got := temporalConfig()
	assert.Equal(t, "temporal:7233", got.HostPort)
	assert.Equal(t, "scout", got.Namespace)
	assert.Equal(t, "scout-discovery", got.TaskQueue)
	assert.Equal(t, 8, got.Concurrency)
	assert.Equal(t, 300*time.Second, got.JobBudget)
}

func TestBuildQueueInlineDefault(t *testing.T) {
	cfg = &config.Config{
		Queue:  config.QueueConfig{Backend: "inline"},
		Worker: config.WorkerConfig{Concurrency: 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue, cleanup, err := buildQueue(ctx, &appEnv{})
	require.NoError(t, err)
	defer cleanup()

	_, ok := queue.(*worker.InlinePool)
	assert.True(t, ok)
}
