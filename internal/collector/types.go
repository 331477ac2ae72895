// Package collector implements the incremental lead-collection engine: the
// loop that scans rendered CRM rows, classifies them into status sections,
// deduplicates them, enriches them through secondary UI interactions, and
// decides when to stop.
package collector

import (
	"strings"
	"time"
)

// Status identifies a lead status section as presented by the CRM.
type Status string

const (
	StatusAll            Status = "all"
	StatusPendingContact Status = "pendiente_contactar"
	StatusInNegotiation  Status = "en_tratativa"
	StatusVisitScheduled Status = "visita_agendada"
	StatusReserved       Status = "reservado"
	StatusNotCurrent     Status = "no_vigente"
)

// SectionLabel returns the display label the CRM uses for a status, or ""
// for StatusAll.
func (s Status) SectionLabel() string {
	return sectionLabels[s]
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	if s == StatusAll {
		return true
	}
	_, ok := sectionLabels[s]
	return ok
}

var sectionLabels = map[Status]string{
	StatusPendingContact: "Pendiente contactar",
	StatusInNegotiation:  "En tratativa",
	StatusVisitScheduled: "Visita agendada",
	StatusReserved:       "Reservado",
	StatusNotCurrent:     "No vigente",
}

// Contact holds the person-level detail of a lead.
type Contact struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	MobilePhone string `json:"mobile_phone,omitempty"`
}

// Agent is the responsible agent attached to a lead or property.
type Agent struct {
	Name string `json:"name,omitempty"`
}

// Property is the listing the lead is interested in.
type Property struct {
	ExternalID string `json:"external_id,omitempty"`
	Address    string `json:"address,omitempty"`
}

// Lead is one canonical record extracted from the CRM. It lives in the
// dedup store for the duration of a run and is exported in insertion order.
type Lead struct {
	Contact     Contact   `json:"contact"`
	Agent       Agent     `json:"agent"`
	Property    Property  `json:"property"`
	LastUpdated string    `json:"last_updated,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
	CollectedAt time.Time `json:"collected_at"`
}

// Key derives the composite identity for deduplication: contact name,
// counterpart address and the raw update stamp, normalized to lowercase.
func (l Lead) Key() string {
	return LeadKey(l.Contact.Name, l.Property.Address, l.LastUpdated)
}

// LeadKey builds the composite dedup key from its raw parts.
func LeadKey(name, address, stamp string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" +
		strings.ToLower(strings.TrimSpace(address)) + "|" +
		strings.ToLower(strings.TrimSpace(stamp))
}

// Fragment is the transient, best-effort result of parsing one row's text.
// Only ContactName is required; every other field may be empty.
type Fragment struct {
	ContactName  string
	Address      string
	RawTimestamp string
	SectionLabel string
	AgentHint    string
}

// Lead promotes a fragment to a canonical Lead.
func (f Fragment) Lead(now time.Time) Lead {
	return Lead{
		Contact:     Contact{Name: f.ContactName},
		Agent:       Agent{Name: f.AgentHint},
		Property:    Property{Address: f.Address},
		LastUpdated: f.RawTimestamp,
		CollectedAt: now,
	}
}

// Request is the contract the engine is driven by.
type Request struct {
	TargetStatus   Status    `json:"target_status"`
	CutoffDate     time.Time `json:"cutoff_date"`
	StartDate      time.Time `json:"start_date,omitzero"`
	MaxLeads       int       `json:"max_leads,omitempty"`
	ExtractDetails bool      `json:"extract_details,omitempty"`
}

// Termination identifies which terminal condition ended a run. It is
// diagnostic; every termination still carries the accumulated leads.
type Termination string

const (
	TermDone             Termination = "done"
	TermExhaustedRetries Termination = "exhausted_retries"
	TermHitCutoff        Termination = "hit_cutoff"
	TermHitMaxLeads      Termination = "hit_max_leads"
)

// Result is what a collection run yields: the ordered lead export plus run
// metadata.
type Result struct {
	Leads       []Lead      `json:"leads"`
	Termination Termination `json:"termination"`
	Passes      int         `json:"passes"`
	ScrapedAt   time.Time   `json:"scraped_at"`
	CutoffDate  time.Time   `json:"cutoff_date"`
	TotalLeads  int         `json:"total_leads"`
}

// Progress is a snapshot emitted after each scanning pass.
type Progress struct {
	RunID  string `json:"run_id,omitempty"`
	Passes int    `json:"passes"`
	Leads  int    `json:"leads"`
	State  string `json:"state"`
}
