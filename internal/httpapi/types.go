package httpapi

import (
	"time"

	"github.com/leadsweep/leadsweep/internal/collector"
)

// CollectRequest is the wire form of the engine's request contract.
type CollectRequest struct {
	TargetStatus   string `json:"target_status" validate:"required"`
	CutoffDate     string `json:"cutoff_date" validate:"required,datetime=2006-01-02"`
	StartDate      string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	MaxLeads       int    `json:"max_leads,omitempty" validate:"omitempty,gte=1"`
	ExtractDetails bool   `json:"extract_details,omitempty"`
}

// CollectResponse is the wire form of a completed run.
type CollectResponse struct {
	RunID       string           `json:"run_id"`
	ScrapedAt   time.Time        `json:"scraped_at"`
	CutoffDate  string           `json:"cutoff_date"`
	TotalLeads  int              `json:"total_leads"`
	Termination string           `json:"termination"`
	Leads       []collector.Lead `json:"leads"`
}

// RunRecord is what the server remembers about a run.
type RunRecord struct {
	ID          string    `json:"id"`
	State       string    `json:"state"` // running, done, failed
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	TotalLeads  int       `json:"total_leads"`
	Termination string    `json:"termination,omitempty"`
	Error       string    `json:"error,omitempty"`
}
