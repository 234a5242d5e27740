package query

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Vertical is one rung of the keyword ladder: the trigger words that
// detect it in a project description and the search phrase it emits.
// Order matters; the first rung whose trigger matches wins, which keeps
// a neobank from classifying as generic fintech.
type Vertical struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
	Phrase   string   `yaml:"phrase"`
}

// DefaultLadder returns the built-in vertical ladder, most specific
// first.
func DefaultLadder() []Vertical {
	return []Vertical{
		{
			Name:     "neobank",
			Triggers: []string{"neobank", "challenger bank", "challenger-bank", "digital bank", "mobile-first bank"},
			Phrase:   "neobank challenger bank mobile banking",
		},
		{
			Name:     "mobile-money",
			Triggers: []string{"mobile money", "mobile-money", "mobile wallet"},
			Phrase:   "mobile money wallet",
		},
		{
			Name:     "lending",
			Triggers: []string{"lending", "loans", "credit scoring", "microfinance"},
			Phrase:   "digital lending fintech",
		},
		{
			Name:     "remittance",
			Triggers: []string{"remittance", "money transfer", "cross-border payment"},
			Phrase:   "remittance money transfer fintech",
		},
		{
			Name:     "payment-infra",
			Triggers: []string{"payment infrastructure", "payment gateway", "payment api", "payments api"},
			Phrase:   "payment infrastructure API fintech",
		},
		{
			Name:     "savings",
			Triggers: []string{"savings", "wealth management", "investment app"},
			Phrase:   "savings investment fintech",
		},
		{
			Name:     "fintech",
			Triggers: []string{"fintech", "payments", "financial technology", "financial services"},
			Phrase:   "fintech payments",
		},
		{
			Name:     "construction-materials",
			Triggers: []string{"construction materials", "building materials", "cement", "aggregates"},
			Phrase:   "construction materials supplier",
		},
		{
			Name:     "logistics",
			Triggers: []string{"logistics", "delivery", "last-mile", "freight", "courier"},
			Phrase:   "logistics delivery",
		},
		{
			Name:     "agritech",
			Triggers: []string{"agritech", "agriculture", "farming", "agtech"},
			Phrase:   "agritech agriculture technology",
		},
		{
			Name:     "healthtech",
			Triggers: []string{"healthtech", "health tech", "telemedicine", "digital health", "healthcare"},
			Phrase:   "healthtech digital health",
		},
		{
			Name:     "marketplace",
			Triggers: []string{"marketplace", "e-commerce", "ecommerce", "online store", "online shopping"},
			Phrase:   "online marketplace e-commerce",
		},
		{
			Name:     "edtech",
			Triggers: []string{"edtech", "education technology", "online learning", "e-learning"},
			Phrase:   "edtech online education",
		},
	}
}

// LoadLadder reads a vertical ladder from a YAML file so ops can re-rank
// verticals without a release. Rungs missing a phrase or triggers are
// dropped.
func LoadLadder(path string) ([]Vertical, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "query: read ladder %s", path)
	}

	var wrapper struct {
		Verticals []Vertical `yaml:"verticals"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "query: parse ladder")
	}

	ladder := make([]Vertical, 0, len(wrapper.Verticals))
	for _, v := range wrapper.Verticals {
		if strings.TrimSpace(v.Phrase) == "" || len(v.Triggers) == 0 {
			continue
		}
		ladder = append(ladder, v)
	}
	if len(ladder) == 0 {
		return nil, eris.Errorf("query: ladder %s has no usable verticals", path)
	}
	return ladder, nil
}
