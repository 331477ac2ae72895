package collector

// DedupStore owns the canonical leads of one run. It preserves insertion
// order, suppresses repeats observed across re-scroll overlap, and never
// removes entries within a run.
type DedupStore struct {
	order []string
	byKey map[string]*Lead
}

// NewDedupStore creates an empty store.
func NewDedupStore() *DedupStore {
	return &DedupStore{byKey: make(map[string]*Lead)}
}

// Has reports whether a lead with this identity was already absorbed.
func (s *DedupStore) Has(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Upsert merges a lead under its identity key and reports whether it was
// new. On conflict the merge keeps, field by field, the most complete
// value: enrichment already fetched (email, phones, agent, property id) is
// never overwritten by a less detailed duplicate seen after a re-scroll.
func (s *DedupStore) Upsert(key string, lead Lead) bool {
	existing, ok := s.byKey[key]
	if !ok {
		l := lead
		s.byKey[key] = &l
		s.order = append(s.order, key)
		return true
	}

	existing.Contact.Email = firstNonEmpty(existing.Contact.Email, lead.Contact.Email)
	existing.Contact.Phone = firstNonEmpty(existing.Contact.Phone, lead.Contact.Phone)
	existing.Contact.MobilePhone = firstNonEmpty(existing.Contact.MobilePhone, lead.Contact.MobilePhone)
	existing.Agent.Name = firstNonEmpty(existing.Agent.Name, lead.Agent.Name)
	existing.Property.ExternalID = firstNonEmpty(existing.Property.ExternalID, lead.Property.ExternalID)
	existing.Property.Address = firstNonEmpty(existing.Property.Address, lead.Property.Address)
	existing.LastUpdated = firstNonEmpty(existing.LastUpdated, lead.LastUpdated)
	if existing.UpdatedAt.IsZero() {
		existing.UpdatedAt = lead.UpdatedAt
	}
	return false
}

// Size returns the number of distinct leads absorbed so far.
func (s *DedupStore) Size() int {
	return len(s.order)
}

// Leads exports the store as an ordered sequence.
func (s *DedupStore) Leads() []Lead {
	out := make([]Lead, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byKey[key])
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
