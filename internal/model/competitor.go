package model

import "time"

// ValidationStatus is the review state of a persisted competitor.
type ValidationStatus string

const (
	ValidationPending  ValidationStatus = "pending"
	ValidationApproved ValidationStatus = "approved"
	ValidationRejected ValidationStatus = "rejected"
)

// Data sources a competitor record can cite. Social links present without
// a matching source entry are synthesized guesses, not verified data.
const (
	SourceWebsite      = "website"
	SourceWebsiteCrawl = "website_crawl"
	SourceLinkedIn     = "linkedin"
	SourceTwitter      = "twitter"
	SourceFacebook     = "facebook"
	SourceAIAnalysis   = "ai_analysis"
)

// SocialLinks holds profile URLs per network.
type SocialLinks struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
}

// IsEmpty reports whether no link is set.
func (s SocialLinks) IsEmpty() bool {
	return s == SocialLinks{}
}

// MergeSocialLinks combines two link sets field by field; primary wins
// wherever it is non-empty.
func MergeSocialLinks(primary, secondary SocialLinks) SocialLinks {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return SocialLinks{
		LinkedIn:  pick(primary.LinkedIn, secondary.LinkedIn),
		Twitter:   pick(primary.Twitter, secondary.Twitter),
		Facebook:  pick(primary.Facebook, secondary.Facebook),
		Instagram: pick(primary.Instagram, secondary.Instagram),
		YouTube:   pick(primary.YouTube, secondary.YouTube),
	}
}

// SocialMetrics holds follower and employee counts scraped from social
// profiles.
type SocialMetrics struct {
	LinkedInFollowers int    `json:"linkedin_followers,omitempty"`
	LinkedInEmployees string `json:"linkedin_employees,omitempty"`
	TwitterFollowers  int    `json:"twitter_followers,omitempty"`
	FacebookLikes     int    `json:"facebook_likes,omitempty"`
}

// IsZero reports whether no metric was captured.
func (m SocialMetrics) IsZero() bool {
	return m == SocialMetrics{}
}

// SWOT is the competitive-analysis quadrant produced by AI analysis.
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// BasicCompetitor is the extractor's first-pass output: the fields a
// search-result batch can support. Name and Website are required;
// candidates missing either are discarded upstream.
type BasicCompetitor struct {
	Name             string  `json:"name"`
	Website          string  `json:"website"`
	Description      string  `json:"description,omitempty"`
	Industry         string  `json:"industry,omitempty"`
	Country          string  `json:"country,omitempty"`
	BusinessModel    string  `json:"business_model,omitempty"`
	ValueProposition string  `json:"value_proposition,omitempty"`
	FoundedYear      int     `json:"founded_year,omitempty"`
	TotalFunding     float64 `json:"total_funding,omitempty"`
}

// EnrichedCompetitor extends BasicCompetitor with the deep-enrichment
// fields. It is the closed shape crossing the enrichment boundary; no
// loosely typed payloads.
type EnrichedCompetitor struct {
	BasicCompetitor

	Tagline           string        `json:"tagline,omitempty"`
	Headquarters      string        `json:"headquarters,omitempty"`
	Founders          []string      `json:"founders,omitempty"`
	FundingStage      string        `json:"funding_stage,omitempty"`
	Investors         []string      `json:"investors,omitempty"`
	TargetMarket      string        `json:"target_market,omitempty"`
	Technologies      []string      `json:"technologies,omitempty"`
	EmployeeCount     string        `json:"employee_count,omitempty"`
	SocialLinks       SocialLinks   `json:"social_links,omitempty"`
	Metrics           SocialMetrics `json:"metrics,omitempty"`
	SWOT              *SWOT         `json:"swot,omitempty"`
	MarketPositioning string        `json:"market_positioning,omitempty"`
	GrowthSignals     []string      `json:"growth_signals,omitempty"`
	RiskFactors       []string      `json:"risk_factors,omitempty"`

	ConfidenceScore  int        `json:"confidence_score,omitempty"`
	DataCompleteness int        `json:"data_completeness,omitempty"`
	DataSources      []string   `json:"data_sources,omitempty"`
	EnrichmentDate   *time.Time `json:"enrichment_date,omitempty"`
}

// Competitor is a persisted company owned by exactly one organization.
// (organization_id, normalized domain of website) is unique.
type Competitor struct {
	EnrichedCompetitor

	ID               string           `json:"id"`
	OrganizationID   string           `json:"organization_id"`
	SearchRunID      string           `json:"search_run_id,omitempty"`
	RelevanceScore   int              `json:"relevance_score"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	ValidatedBy      string           `json:"validated_by,omitempty"`
	ValidatedAt      *time.Time       `json:"validated_at,omitempty"`
	Embedding        []float32        `json:"-"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Candidate is a competitor in flight between extraction and persistence.
type Candidate struct {
	Enriched  EnrichedCompetitor
	Score     int
	DomainKey string
	Embedding []float32
}

// CompetitorPatch updates a competitor with enrichment output. Nil fields
// are absent and leave the stored value untouched; the adapter always
// stamps enrichment_date.
type CompetitorPatch struct {
	Name              *string        `json:"name,omitempty"`
	Description       *string        `json:"description,omitempty"`
	Industry          *string        `json:"industry,omitempty"`
	Country           *string        `json:"country,omitempty"`
	BusinessModel     *string        `json:"business_model,omitempty"`
	ValueProposition  *string        `json:"value_proposition,omitempty"`
	FoundedYear       *int           `json:"founded_year,omitempty"`
	TotalFunding      *float64       `json:"total_funding,omitempty"`
	Tagline           *string        `json:"tagline,omitempty"`
	Headquarters      *string        `json:"headquarters,omitempty"`
	Founders          []string       `json:"founders,omitempty"`
	FundingStage      *string        `json:"funding_stage,omitempty"`
	Investors         []string       `json:"investors,omitempty"`
	TargetMarket      *string        `json:"target_market,omitempty"`
	Technologies      []string       `json:"technologies,omitempty"`
	EmployeeCount     *string        `json:"employee_count,omitempty"`
	SocialLinks       *SocialLinks   `json:"social_links,omitempty"`
	Metrics           *SocialMetrics `json:"metrics,omitempty"`
	SWOT              *SWOT          `json:"swot,omitempty"`
	MarketPositioning *string        `json:"market_positioning,omitempty"`
	GrowthSignals     []string       `json:"growth_signals,omitempty"`
	RiskFactors       []string       `json:"risk_factors,omitempty"`
	ConfidenceScore   *int           `json:"confidence_score,omitempty"`
	DataCompleteness  *int           `json:"data_completeness,omitempty"`
	DataSources       []string       `json:"data_sources,omitempty"`
}

// Apply merges the patch into e. Only present (non-nil, non-empty slice)
// fields overwrite.
func (p CompetitorPatch) Apply(e *EnrichedCompetitor) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&e.Name, p.Name)
	setStr(&e.Description, p.Description)
	setStr(&e.Industry, p.Industry)
	setStr(&e.Country, p.Country)
	setStr(&e.BusinessModel, p.BusinessModel)
	setStr(&e.ValueProposition, p.ValueProposition)
	setStr(&e.Tagline, p.Tagline)
	setStr(&e.Headquarters, p.Headquarters)
	setStr(&e.FundingStage, p.FundingStage)
	setStr(&e.TargetMarket, p.TargetMarket)
	setStr(&e.EmployeeCount, p.EmployeeCount)
	setStr(&e.MarketPositioning, p.MarketPositioning)

	if p.FoundedYear != nil {
		e.FoundedYear = *p.FoundedYear
	}
	if p.TotalFunding != nil {
		e.TotalFunding = *p.TotalFunding
	}
	if p.ConfidenceScore != nil {
		e.ConfidenceScore = *p.ConfidenceScore
	}
	if p.DataCompleteness != nil {
		e.DataCompleteness = *p.DataCompleteness
	}

	if len(p.Founders) > 0 {
		e.Founders = p.Founders
	}
	if len(p.Investors) > 0 {
		e.Investors = p.Investors
	}
	if len(p.Technologies) > 0 {
		e.Technologies = p.Technologies
	}
	if len(p.GrowthSignals) > 0 {
		e.GrowthSignals = p.GrowthSignals
	}
	if len(p.RiskFactors) > 0 {
		e.RiskFactors = p.RiskFactors
	}
	if len(p.DataSources) > 0 {
		e.DataSources = p.DataSources
	}

	if p.SocialLinks != nil {
		e.SocialLinks = MergeSocialLinks(*p.SocialLinks, e.SocialLinks)
	}
	if p.Metrics != nil {
		e.Metrics = *p.Metrics
	}
	if p.SWOT != nil {
		e.SWOT = p.SWOT
	}
}

// PatchFromEnriched builds a full patch out of an enrichment result,
// skipping empty fields so they do not clobber stored values.
func PatchFromEnriched(e EnrichedCompetitor) CompetitorPatch {
	str := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}

	p := CompetitorPatch{
		Name:              str(e.Name),
		Description:       str(e.Description),
		Industry:          str(e.Industry),
		Country:           str(e.Country),
		BusinessModel:     str(e.BusinessModel),
		ValueProposition:  str(e.ValueProposition),
		Tagline:           str(e.Tagline),
		Headquarters:      str(e.Headquarters),
		FundingStage:      str(e.FundingStage),
		TargetMarket:      str(e.TargetMarket),
		EmployeeCount:     str(e.EmployeeCount),
		MarketPositioning: str(e.MarketPositioning),
		Founders:          e.Founders,
		Investors:         e.Investors,
		Technologies:      e.Technologies,
		GrowthSignals:     e.GrowthSignals,
		RiskFactors:       e.RiskFactors,
		DataSources:       e.DataSources,
		SWOT:              e.SWOT,
	}
	if e.FoundedYear > 0 {
		p.FoundedYear = &e.FoundedYear
	}
	if e.TotalFunding > 0 {
		p.TotalFunding = &e.TotalFunding
	}
	if e.ConfidenceScore > 0 {
		p.ConfidenceScore = &e.ConfidenceScore
	}
	if e.DataCompleteness > 0 {
		p.DataCompleteness = &e.DataCompleteness
	}
	if !e.SocialLinks.IsEmpty() {
		links := e.SocialLinks
		p.SocialLinks = &links
	}
	if !e.Metrics.IsZero() {
		metrics := e.Metrics
		p.Metrics = &metrics
	}
	return p
}
