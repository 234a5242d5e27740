package model

// Tier is an organization's subscription level. It decides whether
// enrichment AI extras run by default.
type Tier string

const (
	TierFree    Tier = "free"
	TierTrial   Tier = "trial"
	TierPremium Tier = "premium"
)

// AIAnalysisDefault reports whether AI analysis is enabled by default
// for this tier.
func (t Tier) AIAnalysisDefault() bool {
	return t == TierTrial || t == TierPremium
}

// Organization is owned by the external identity collaborator; the
// pipeline reads only its id and tier.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tier Tier   `json:"tier"`
}

// Project describes what the tenant wants discovered. Owned externally;
// the pipeline snapshots its fields into each run.
type Project struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organization_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Keywords       []string `json:"keywords"`
	Industries     []string `json:"industries"`
	TargetRegions  []string `json:"target_regions"`
}

// ProjectSummary is the slice of a project embedded in run reads.
type ProjectSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
