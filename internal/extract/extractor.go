// Package extract turns raw search results and scraped pages into typed
// competitor records via the chat model. Parse failures yield empty
// output, never errors; an unparseable model response must not fail a
// discovery run.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/internal/search"
	"github.com/venturescope/scout/pkg/anthropic"
)

// Extractor drives the chat model for basic and enriched extraction.
type Extractor struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64

	// OnUsage receives token usage per call, for run spend accounting.
	// May be nil.
	OnUsage func(usage anthropic.TokenUsage, model string)
}

// NewExtractor creates an extractor. Temperature above 0.3 is clamped;
// extraction needs determinism, not creativity.
func NewExtractor(client anthropic.Client, chatModel string, maxTokens int, temperature float64) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if temperature <= 0 || temperature > 0.3 {
		temperature = 0.2
	}
	return &Extractor{
		client:      client,
		model:       chatModel,
		maxTokens:   int64(maxTokens),
		temperature: temperature,
	}
}

// Extract pulls basic competitor records out of up to 15 search
// results. Candidates missing name or website are discarded; countries
// are normalized to ISO2 and website URLs to https-no-trailing-slash.
func (e *Extractor) Extract(ctx context.Context, results []search.Result, ec Context) ([]model.BasicCompetitor, error) {
	if len(results) == 0 {
		return nil, nil
	}

	resp, err := e.call(ctx, basicPolicy, buildBasicPrompt(results, ec), "extraction")
	if err != nil {
		return nil, err
	}

	var raw []model.BasicCompetitor
	if !parseArray(resp.Text(), &raw) {
		zap.L().Warn("extraction response did not contain a JSON array",
			zap.String("model", e.model),
			zap.Int("results", len(results)))
		return nil, nil
	}

	out := make([]model.BasicCompetitor, 0, len(raw))
	for _, c := range raw {
		c.Website = NormalizeURL(c.Website)
		if c.Name == "" || c.Website == "" {
			continue
		}
		c.Country = NormalizeCountry(c.Country)
		out = append(out, c)
	}
	return out, nil
}

// ExtractEnriched builds a full profile from scraped website content.
// The seed fields survive wherever the model leaves a field empty.
func (e *Extractor) ExtractEnriched(ctx context.Context, content string, seed model.BasicCompetitor) (*model.EnrichedCompetitor, error) {
	resp, err := e.call(ctx, enrichedPolicy, buildEnrichedPrompt(seed.Name, seed.Website, content), "enrichment")
	if err != nil {
		return nil, err
	}

	var enriched model.EnrichedCompetitor
	if !parseObject(resp.Text(), &enriched) {
		zap.L().Warn("enriched extraction response did not contain a JSON object",
			zap.String("company", seed.Name))
		enriched = model.EnrichedCompetitor{}
	}

	if enriched.Name == "" {
		enriched.Name = seed.Name
	}
	enriched.Website = NormalizeURL(enriched.Website)
	if enriched.Website == "" {
		enriched.Website = seed.Website
	}
	enriched.Country = NormalizeCountry(enriched.Country)
	if enriched.Country == "" {
		enriched.Country = seed.Country
	}
	if enriched.Description == "" {
		enriched.Description = seed.Description
	}
	if enriched.Industry == "" {
		enriched.Industry = seed.Industry
	}

	regexLinks := ParseSocialLinks(content)
	enriched.SocialLinks = model.MergeSocialLinks(regexLinks, enriched.SocialLinks)

	return &enriched, nil
}

func (e *Extractor) call(ctx context.Context, policy, prompt, phase string) (*anthropic.MessageResponse, error) {
	temp := e.temperature
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(policy),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}

	resp.Usage.LogCost(e.model, phase)
	if e.OnUsage != nil {
		e.OnUsage(resp.Usage, e.model)
	}
	return resp, nil
}

// parseArray extracts the first-[ to last-] substring and unmarshals it.
func parseArray(text string, out any) bool {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(text[start:end+1]), out) == nil
}

// parseObject extracts the first-{ to last-} substring and unmarshals it.
func parseObject(text string, out any) bool {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(text[start:end+1]), out) == nil
}
