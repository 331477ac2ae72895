package collector

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/leadsweep/leadsweep/internal/logger"
)

// ContactEnricher reads the floating contact card the CRM reveals when a
// contact's name is activated: email, landline and mobile.
type ContactEnricher struct {
	surface Surface
	settle  time.Duration
}

// NewContactEnricher creates a contact enricher over the given surface.
func NewContactEnricher(surface Surface, settle time.Duration) *ContactEnricher {
	if settle <= 0 {
		settle = 800 * time.Millisecond
	}
	return &ContactEnricher{surface: surface, settle: settle}
}

// Enrich fills the lead's email and phone fields from the contact popover.
// Transient friction (element missing, popover never shown) degrades to an
// unenriched lead and is logged; only session invalidation propagates.
func (e *ContactEnricher) Enrich(ctx context.Context, lead *Lead) error {
	name := strings.TrimSpace(lead.Contact.Name)
	if name == "" {
		return nil
	}

	logger.Debug("contact enrichment starting", "contact", name)

	if err := e.surface.ClickByText(ctx, name); err != nil {
		if errors.Is(err, ErrSessionInvalidated) {
			return err
		}
		logger.Debug("contact enrichment reveal failed", "contact", name, "error", err)
		return nil
	}

	if err := e.surface.Sleep(ctx, e.settle); err != nil {
		return err
	}

	text, err := e.readPopover(ctx)
	if err != nil {
		return err
	}

	// Dismiss the card regardless of what we read; only one overlay may be
	// open at a time.
	if err := e.surface.PressEscape(ctx); err != nil && errors.Is(err, ErrSessionInvalidated) {
		return err
	}

	if text == "" {
		logger.Debug("contact enrichment popover not found", "contact", name)
		return nil
	}

	email, phone, mobile := ExtractContactDetails(text)
	lead.Contact.Email = firstNonEmpty(lead.Contact.Email, email)
	lead.Contact.Phone = firstNonEmpty(lead.Contact.Phone, phone)
	lead.Contact.MobilePhone = firstNonEmpty(lead.Contact.MobilePhone, mobile)

	logger.Debug("contact enrichment complete",
		"contact", name,
		"has_email", email != "",
		"has_phone", phone != "",
		"has_mobile", mobile != "")
	return nil
}

// readPopover tries the known panel selectors in priority order, then falls
// back to scanning all floating elements for one that looks like a contact
// card (contains an @ or a leading +54).
func (e *ContactEnricher) readPopover(ctx context.Context) (string, error) {
	for _, sel := range popoverSelectors {
		text, err := e.surface.Text(ctx, sel)
		if err != nil {
			if errors.Is(err, ErrSessionInvalidated) {
				return "", err
			}
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}

	for _, sel := range floatingSelectors {
		texts, err := e.surface.TextAll(ctx, sel)
		if err != nil {
			if errors.Is(err, ErrSessionInvalidated) {
				return "", err
			}
			continue
		}
		for _, text := range texts {
			trimmed := strings.TrimSpace(text)
			if strings.Contains(trimmed, "@") || strings.HasPrefix(trimmed, "+54") {
				return text, nil
			}
		}
	}

	return "", nil
}
