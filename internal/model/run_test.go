package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   int
	}{
		{RunStatusPending, 1},
		{RunStatusSearching, 2},
		{RunStatusExtracting, 3},
		{RunStatusCompleted, 4},
		{RunStatusFailed, 4},
		{RunStatus("bogus"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.status.Rank())
		})
	}
}

func TestRunStatusOrdering(t *testing.T) {
	t.Parallel()

	// Forward transitions strictly increase rank.
	assert.Less(t, RunStatusPending.Rank(), RunStatusSearching.Rank())
	assert.Less(t, RunStatusSearching.Rank(), RunStatusExtracting.Rank())
	assert.Less(t, RunStatusExtracting.Rank(), RunStatusCompleted.Rank())

	// Terminal statuses share a rank: neither may replace the other.
	assert.Equal(t, RunStatusCompleted.Rank(), RunStatusFailed.Rank())
}

func TestRunStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, RunStatusCompleted.Terminal())
	assert.True(t, RunStatusFailed.Terminal())
	assert.False(t, RunStatusPending.Terminal())
	assert.False(t, RunStatusSearching.Terminal())
	assert.False(t, RunStatusExtracting.Terminal())
}

func TestTierAIAnalysisDefault(t *testing.T) {
	t.Parallel()

	assert.False(t, TierFree.AIAnalysisDefault())
	assert.True(t, TierTrial.AIAnalysisDefault())
	assert.True(t, TierPremium.AIAnalysisDefault())
}
