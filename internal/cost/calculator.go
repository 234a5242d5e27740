// Package cost prices provider usage so each run can report what it
// spent. Rates come from configuration; unknown models price at zero
// rather than failing a run over accounting.
package cost

import (
	"github.com/venturescope/scout/internal/config"
)

// Calculator converts provider usage into USD.
type Calculator struct {
	pricing config.PricingConfig
}

func NewCalculator(pricing config.PricingConfig) *Calculator {
	return &Calculator{pricing: pricing}
}

// Chat prices one chat-model call.
func (c *Calculator) Chat(model string, inputTokens, outputTokens int64) float64 {
	rate, ok := c.pricing.Chat[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*rate.Input + float64(outputTokens)/1e6*rate.Output
}

// FallbackQuery returns the flat cost of one AI-fallback search query.
func (c *Calculator) FallbackQuery() float64 {
	return c.pricing.Fallback.PerQuery
}

// SearchRequest returns the flat cost of one primary search request.
func (c *Calculator) SearchRequest() float64 {
	return c.pricing.Search.PerRequest
}

// Embedding prices embedding-token usage.
func (c *Calculator) Embedding(tokens int) float64 {
	return float64(tokens) / 1e6 * c.pricing.Embeddings.PerMTok
}

// DefaultPricing returns list rates for the default stack.
func DefaultPricing() config.PricingConfig {
	return config.PricingConfig{
		Chat: map[string]config.ModelPricing{
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		Fallback:   config.PerQueryPricing{PerQuery: 0.005},
		Search:     config.PerRequestPricing{PerRequest: 0.01},
		Embeddings: config.PerMTokPricing{PerMTok: 0.02},
	}
}
