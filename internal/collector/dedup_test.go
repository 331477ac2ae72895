package collector

import (
	"testing"
	"time"
)

// --- LeadKey Tests ---

func TestLeadKey_Normalizes(t *testing.T) {
	a := LeadKey("Juan Pérez", "Colombres 148", "26/11/2025 08:15")
	b := LeadKey("  juan pérez ", " COLOMBRES 148", "26/11/2025 08:15 ")
	if a != b {
		t.Errorf("keys should match after normalization: %q vs %q", a, b)
	}

	c := LeadKey("Juan Pérez", "Colombres 148", "27/11/2025 08:15")
	if a == c {
		t.Error("a different update stamp should produce a different key")
	}
}

// --- DedupStore Tests ---

func TestDedupStore_Upsert_New(t *testing.T) {
	s := NewDedupStore()
	lead := Lead{Contact: Contact{Name: "Juan Pérez"}}

	if !s.Upsert(lead.Key(), lead) {
		t.Error("Upsert() should report true for a new identity")
	}
	if s.Size() != 1 {
		t.Errorf("expected size 1, got %d", s.Size())
	}
	if !s.Has(lead.Key()) {
		t.Error("Has() should report true after Upsert()")
	}
}

func TestDedupStore_Upsert_DuplicateIsIdempotent(t *testing.T) {
	s := NewDedupStore()
	lead := Lead{Contact: Contact{Name: "Juan Pérez"}, Property: Property{Address: "Colombres 148"}}

	s.Upsert(lead.Key(), lead)
	if s.Upsert(lead.Key(), lead) {
		t.Error("Upsert() should report false for a repeat identity")
	}
	if s.Size() != 1 {
		t.Errorf("expected size 1 after duplicate, got %d", s.Size())
	}
}

func TestDedupStore_Upsert_MergeKeepsEnrichment(t *testing.T) {
	s := NewDedupStore()
	enriched := Lead{
		Contact:  Contact{Name: "Juan Pérez", Email: "juan@mail.com", MobilePhone: "5491112345678"},
		Agent:    Agent{Name: "Ana Gómez"},
		Property: Property{Address: "Colombres 148", ExternalID: "AB1234"},
	}
	s.Upsert(enriched.Key(), enriched)

	// The same row re-observed after a scroll carries no enrichment; the
	// merge must not lose what was already fetched.
	bare := Lead{
		Contact:  Contact{Name: "Juan Pérez", Phone: "01143218765"},
		Property: Property{Address: "Colombres 148"},
	}
	s.Upsert(bare.Key(), bare)

	got := s.Leads()[0]
	if got.Contact.Email != "juan@mail.com" {
		t.Errorf("email lost in merge: %q", got.Contact.Email)
	}
	if got.Contact.MobilePhone != "5491112345678" {
		t.Errorf("mobile lost in merge: %q", got.Contact.MobilePhone)
	}
	if got.Property.ExternalID != "AB1234" {
		t.Errorf("external id lost in merge: %q", got.Property.ExternalID)
	}
	if got.Agent.Name != "Ana Gómez" {
		t.Errorf("agent lost in merge: %q", got.Agent.Name)
	}
	if got.Contact.Phone != "01143218765" {
		t.Errorf("merge should fill fields that were empty, got %q", got.Contact.Phone)
	}
}

func TestDedupStore_Upsert_ExistingValueWins(t *testing.T) {
	s := NewDedupStore()
	first := Lead{Contact: Contact{Name: "Juan Pérez", Email: "primero@mail.com"}}
	s.Upsert(first.Key(), first)

	second := Lead{Contact: Contact{Name: "Juan Pérez", Email: "segundo@mail.com"}}
	s.Upsert(second.Key(), second)

	if got := s.Leads()[0].Contact.Email; got != "primero@mail.com" {
		t.Errorf("existing non-empty value should win, got %q", got)
	}
}

func TestDedupStore_Upsert_UpdatedAtFilledOnce(t *testing.T) {
	s := NewDedupStore()
	undated := Lead{Contact: Contact{Name: "Juan Pérez"}}
	s.Upsert(undated.Key(), undated)

	stamp := time.Date(2025, time.November, 26, 8, 15, 0, 0, time.UTC)
	dated := undated
	dated.UpdatedAt = stamp
	s.Upsert(dated.Key(), dated)

	if got := s.Leads()[0].UpdatedAt; !got.Equal(stamp) {
		t.Errorf("zero UpdatedAt should be filled by the merge, got %v", got)
	}
}

func TestDedupStore_Leads_PreservesInsertionOrder(t *testing.T) {
	s := NewDedupStore()
	names := []string{"Juan Pérez", "María Paz", "Pedro Ruiz"}
	for _, name := range names {
		lead := Lead{Contact: Contact{Name: name}}
		s.Upsert(lead.Key(), lead)
	}

	// Re-observing the first lead must not move it.
	first := Lead{Contact: Contact{Name: "Juan Pérez"}}
	s.Upsert(first.Key(), first)

	leads := s.Leads()
	if len(leads) != len(names) {
		t.Fatalf("expected %d leads, got %d", len(names), len(leads))
	}
	for i, name := range names {
		if leads[i].Contact.Name != name {
			t.Errorf("position %d: expected %q, got %q", i, name, leads[i].Contact.Name)
		}
	}
}
