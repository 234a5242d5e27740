package model

import "time"

// RunStatus represents the current state of a discovery run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusSearching  RunStatus = "searching"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Rank orders statuses along the run lifecycle. Transitions must be
// strictly increasing; completed and failed share the terminal rank so
// neither can replace the other.
func (s RunStatus) Rank() int {
	switch s {
	case RunStatusPending:
		return 1
	case RunStatusSearching:
		return 2
	case RunStatusExtracting:
		return 3
	case RunStatusCompleted, RunStatusFailed:
		return 4
	default:
		return 0
	}
}

// Terminal reports whether the status is final. Terminal runs are immutable.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Valid reports whether s is a known status value.
func (s RunStatus) Valid() bool {
	return s.Rank() > 0
}

// DiscoveryRun is the unit of work: one discovery invocation with its
// input snapshot, status, and aggregate result count.
type DiscoveryRun struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	CreatedBy    string     `json:"created_by"`
	Status       RunStatus  `json:"status"`
	Keywords     []string   `json:"keywords"`
	Regions      []string   `json:"regions"`
	ResultsCount int        `json:"results_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// RunWithProject is a run plus the summary of its owning project,
// returned by the single-run read endpoint.
type RunWithProject struct {
	DiscoveryRun
	Project ProjectSummary `json:"project"`
}

// DiscoveryContext is the queue payload for one discovery job. It carries
// everything the worker needs so no ambient tenant state is consulted
// mid-run.
type DiscoveryContext struct {
	RunID          string   `json:"run_id"`
	ProjectID      string   `json:"project_id"`
	OrganizationID string   `json:"organization_id"`
	UserID         string   `json:"user_id"`
	Keywords       []string `json:"keywords"`
	Regions        []string `json:"regions"`
	Industries     []string `json:"industries,omitempty"`
	MaxResults     int      `json:"max_results"`
	Tier           Tier     `json:"tier"`
}

// RequestContext identifies the caller of a request-scoped operation.
// It is resolved once by middleware and passed down explicitly.
type RequestContext struct {
	UserID         string
	OrganizationID string
	Tier           Tier
}
