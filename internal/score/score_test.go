package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/venturescope/scout/internal/model"
)

func fixedScorer(threshold int) *Scorer {
	s := NewScorer(threshold)
	s.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func fullCandidate() model.BasicCompetitor {
	return model.BasicCompetitor{
		Name:             "Kuda",
		Website:          "https://kuda.com",
		Description:      "Digital-only bank",
		Industry:         "fintech",
		Country:          "NG",
		BusinessModel:    "B2C",
		ValueProposition: "Free banking for Africans",
		FoundedYear:      2024,
		TotalFunding:     55_000_000,
	}
}

func TestScore(t *testing.T) {
	s := fixedScorer(0)
	target := Target{Industries: []string{"Fintech"}, Regions: []string{"ng", "GH"}}

	tests := []struct {
		name   string
		mutate func(*model.BasicCompetitor)
		want   int
	}{
		{"everything matches", func(c *model.BasicCompetitor) {}, 100},
		{"wrong industry", func(c *model.BasicCompetitor) { c.Industry = "mining" }, 70},
		{"no country", func(c *model.BasicCompetitor) { c.Country = "" }, 75},
		{"older company", func(c *model.BasicCompetitor) { c.FoundedYear = 2022 }, 95},
		{"decade old", func(c *model.BasicCompetitor) { c.FoundedYear = 2017 }, 90},
		{"ancient", func(c *model.BasicCompetitor) { c.FoundedYear = 2000 }, 85},
		{"future year ignored", func(c *model.BasicCompetitor) { c.FoundedYear = 2030 }, 85},
		{"small funding", func(c *model.BasicCompetitor) { c.TotalFunding = 500_000 }, 95},
		{"no funding", func(c *model.BasicCompetitor) { c.TotalFunding = 0 }, 90},
		{
			"sparse profile",
			func(c *model.BasicCompetitor) {
				c.Description, c.BusinessModel, c.ValueProposition = "", "", ""
			},
			// industry 30 + region 25 + 2/5 completeness 8 + recency 15 + funding 10
			88,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fullCandidate()
			tt.mutate(&c)
			assert.Equal(t, tt.want, s.Score(c, target))
		})
	}
}

func TestScore_IndustrySubstringBothWays(t *testing.T) {
	s := fixedScorer(0)
	c := model.BasicCompetitor{Name: "X", Website: "https://x.com", Industry: "financial technology"}

	assert.GreaterOrEqual(t, s.Score(c, Target{Industries: []string{"technology"}}), 30)
	c.Industry = "tech"
	assert.GreaterOrEqual(t, s.Score(c, Target{Industries: []string{"fintech"}}), 30)
}

func TestFilter_ThresholdAndOrder(t *testing.T) {
	s := fixedScorer(75)
	target := Target{Industries: []string{"fintech"}, Regions: []string{"NG"}}

	strong := fullCandidate()
	weak := model.BasicCompetitor{Name: "Weak", Website: "https://weak.com"}
	alsoStrong := fullCandidate()
	alsoStrong.Name = "FairMoney"

	kept := s.Filter([]model.BasicCompetitor{strong, weak, alsoStrong}, target)

	assert.Len(t, kept, 2)
	assert.Equal(t, "Kuda", kept[0].Enriched.Name)
	assert.Equal(t, "FairMoney", kept[1].Enriched.Name)
	assert.Equal(t, 100, kept[0].Score)
}

func TestNewScorer_DefaultThreshold(t *testing.T) {
	s := NewScorer(0)
	assert.Equal(t, DefaultThreshold, s.threshold)
}
