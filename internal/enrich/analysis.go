package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturescope/scout/internal/model"
	"github.com/venturescope/scout/pkg/anthropic"
)

const (
	analysisTemperature = 0.2
	maxAnalysisContext  = 2000
)

const analysisPolicy = `You are a competitive-intelligence analyst. Given a
company profile, produce a JSON object with exactly these keys:

{
  "competitive_analysis": {
    "strengths": ["..."],
    "weaknesses": ["..."],
    "opportunities": ["..."],
    "threats": ["..."]
  },
  "market_positioning": "one sentence",
  "growth_signals": ["..."],
  "risk_factors": ["..."]
}

Base every point on the profile given. Two to four entries per list.
Respond with the JSON object only, no commentary.`

// analysisResult is the shape the analysis call returns.
type analysisResult struct {
	CompetitiveAnalysis model.SWOT `json:"competitive_analysis"`
	MarketPositioning   string     `json:"market_positioning"`
	GrowthSignals       []string   `json:"growth_signals"`
	RiskFactors         []string   `json:"risk_factors"`
}

// analyze runs the SWOT pass over the assembled profile. extraContext is
// crawl markdown, capped so a long site cannot blow up the prompt.
func (e *Engine) analyze(ctx context.Context, c model.EnrichedCompetitor, extraContext string) (*analysisResult, error) {
	limit := maxAnalysisContext
	if e.MaxContextLen > 0 {
		limit = e.MaxContextLen
	}
	if len(extraContext) > limit {
		extraContext = extraContext[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nWebsite: %s\n", c.Name, c.Website)
	writeIf := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	writeIf("Description", c.Description)
	writeIf("Industry", c.Industry)
	writeIf("Country", c.Country)
	writeIf("Business model", c.BusinessModel)
	writeIf("Value proposition", c.ValueProposition)
	writeIf("Target market", c.TargetMarket)
	writeIf("Funding stage", c.FundingStage)
	if c.TotalFunding > 0 {
		fmt.Fprintf(&b, "Total funding: $%.0f\n", c.TotalFunding)
	}
	if len(c.Technologies) > 0 {
		fmt.Fprintf(&b, "Technologies: %s\n", strings.Join(c.Technologies, ", "))
	}
	if extraContext != "" {
		fmt.Fprintf(&b, "\nAdditional context from the company site:\n%s\n", extraContext)
	}

	temp := analysisTemperature
	resp, err := e.chat.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.chatModel,
		MaxTokens:   e.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(analysisPolicy),
		Temperature: &temp,
		Messages:    []anthropic.Message{{Role: "user", Content: b.String()}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: analysis call")
	}
	resp.Usage.LogCost(e.chatModel, "analysis")
	if e.OnUsage != nil {
		e.OnUsage(resp.Usage, e.chatModel)
	}

	text := resp.Text()
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.New("enrich: analysis response carried no JSON object")
	}

	var out analysisResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, eris.Wrap(err, "enrich: decode analysis")
	}
	return &out, nil
}

// fallbackAnalysis derives a baseline SWOT from fields already on the
// profile when the model call fails. Better a thin analysis than none.
func fallbackAnalysis(c model.EnrichedCompetitor) *analysisResult {
	zap.L().Warn("analysis call failed, using derived fallback",
		zap.String("company", c.Name))

	out := &analysisResult{}
	if c.ValueProposition != "" {
		out.CompetitiveAnalysis.Strengths = append(out.CompetitiveAnalysis.Strengths, c.ValueProposition)
	}
	if len(c.Technologies) > 0 {
		out.CompetitiveAnalysis.Strengths = append(out.CompetitiveAnalysis.Strengths,
			"Established technology stack: "+strings.Join(c.Technologies, ", "))
	}
	if c.TotalFunding > 0 {
		out.CompetitiveAnalysis.Strengths = append(out.CompetitiveAnalysis.Strengths,
			fmt.Sprintf("Raised $%.0f in disclosed funding", c.TotalFunding))
		out.GrowthSignals = append(out.GrowthSignals, "Has attracted institutional investment")
	}
	if len(out.CompetitiveAnalysis.Strengths) == 0 {
		out.CompetitiveAnalysis.Strengths = []string{"Active presence in its market"}
	}
	out.CompetitiveAnalysis.Weaknesses = []string{"Limited public information available"}
	if c.Industry != "" {
		out.CompetitiveAnalysis.Opportunities = []string{
			fmt.Sprintf("Growing demand in the %s sector", strings.ToLower(c.Industry)),
		}
		out.CompetitiveAnalysis.Threats = []string{
			fmt.Sprintf("New entrants in the %s sector", strings.ToLower(c.Industry)),
		}
	} else {
		out.CompetitiveAnalysis.Opportunities = []string{"Regional market expansion"}
		out.CompetitiveAnalysis.Threats = []string{"Competition from better-funded entrants"}
	}
	if c.Industry != "" && c.Country != "" {
		out.MarketPositioning = fmt.Sprintf("%s operator in %s", c.Industry, c.Country)
	}
	out.RiskFactors = []string{"Assessment based on incomplete data"}
	return out
}
