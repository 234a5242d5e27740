package cost

import (
	"sync"

	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/metrics"
	"github.com/venturescope/scout/pkg/anthropic"
)

// Accumulator totals one run's provider spend. Safe for concurrent use;
// the search composite and the extractor report from different call
// sites.
type Accumulator struct {
	calc *Calculator

	mu      sync.Mutex
	byPhase map[string]float64
}

func NewAccumulator(calc *Calculator) *Accumulator {
	return &Accumulator{calc: calc, byPhase: make(map[string]float64)}
}

// AddChat records a chat-model call for the given phase.
func (a *Accumulator) AddChat(phase, model string, usage anthropic.TokenUsage) {
	metrics.ChatTokens.WithLabelValues(phase, "input").Add(float64(usage.InputTokens))
	metrics.ChatTokens.WithLabelValues(phase, "output").Add(float64(usage.OutputTokens))
	a.add(phase, a.calc.Chat(model, usage.InputTokens, usage.OutputTokens))
}

// AddSearchCall records one provider search request. The fallback
// provider prices per query; the primary per request.
func (a *Accumulator) AddSearchCall(provider string) {
	switch provider {
	case "perplexity":
		a.add("search", a.calc.FallbackQuery())
	default:
		a.add("search", a.calc.SearchRequest())
	}
}

// AddEmbedding records embedding-token usage.
func (a *Accumulator) AddEmbedding(tokens int) {
	a.add("dedup", a.calc.Embedding(tokens))
}

// Total returns the accumulated spend in USD.
func (a *Accumulator) Total() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total float64
	for _, v := range a.byPhase {
		total += v
	}
	return total
}

// Breakdown returns a copy of the per-phase spend.
func (a *Accumulator) Breakdown() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]float64, len(a.byPhase))
	for k, v := range a.byPhase {
		out[k] = v
	}
	return out
}

// Log emits the run's spend summary.
func (a *Accumulator) Log(runID string) {
	zap.L().Info("run spend",
		zap.String("run_id", runID),
		zap.Float64("total_usd", a.Total()),
		zap.Any("by_phase", a.Breakdown()))
}

func (a *Accumulator) add(phase string, usd float64) {
	if usd == 0 {
		return
	}
	metrics.SpendUSD.WithLabelValues(phase).Add(usd)
	a.mu.Lock()
	a.byPhase[phase] += usd
	a.mu.Unlock()
}
