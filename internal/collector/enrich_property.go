package collector

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/leadsweep/leadsweep/internal/logger"
)

var (
	externalIDRe = regexp.MustCompile(propertyAvailableMarker + `\s*:?\s*([A-Z]{2,4}\d+)`)
	agentLineRe  = regexp.MustCompile(propertyAgentMarker + `\s*:?\s*([^\n]+)`)

	// agentBoilerplate rejects marker captures that are UI chrome rather
	// than a person's name.
	agentBoilerplate = []string{"contacto", "contactar", "información", "informacion"}

	// agentTrailingPhrases cut the agent capture before trailing UI text.
	agentTrailingPhrases = []string{"Ver más", "Ver ficha", "Compartir"}
)

// PropertyEnricher opens the property detail surface behind a lead's
// counterpart address and reads the listing's external identifier and
// responsible agent.
type PropertyEnricher struct {
	surface  Surface
	attempts int
	backoff  time.Duration
}

// NewPropertyEnricher creates a property enricher over the given surface.
func NewPropertyEnricher(surface Surface, attempts int, backoff time.Duration) *PropertyEnricher {
	if attempts <= 0 {
		attempts = 10
	}
	if backoff <= 0 {
		backoff = 300 * time.Millisecond
	}
	return &PropertyEnricher{surface: surface, attempts: attempts, backoff: backoff}
}

// Enrich activates the address link and polls for the detail surface to
// populate. An address that does not correspond to a real listing never
// produces the surface (the UI shows an inline editable field instead);
// that is an expected outcome and the lead is returned unmodified.
func (e *PropertyEnricher) Enrich(ctx context.Context, lead *Lead) error {
	address, ok := CleanAddress(lead.Property.Address)
	if !ok {
		return nil
	}

	logger.Debug("property enrichment starting", "address", address)

	if err := e.surface.ClickByText(ctx, address); err != nil {
		if errors.Is(err, ErrSessionInvalidated) {
			return err
		}
		logger.Debug("property enrichment link not found", "address", address, "error", err)
		return nil
	}

	text, err := e.pollModal(ctx)
	if err != nil {
		return err
	}

	// The surface is dismissed regardless of extraction success.
	defer func() {
		if derr := e.dismiss(ctx); derr != nil {
			logger.Debug("property modal dismissal failed", "error", derr)
		}
	}()

	if text == "" {
		logger.Debug("property enrichment surface never appeared", "address", address)
		return nil
	}

	externalID, agent := ExtractPropertyDetails(text)
	lead.Property.ExternalID = firstNonEmpty(lead.Property.ExternalID, externalID)
	lead.Agent.Name = firstNonEmpty(lead.Agent.Name, agent)

	logger.Debug("property enrichment complete",
		"address", address,
		"external_id", externalID,
		"agent", agent)
	return nil
}

// pollModal waits for the detail surface to populate, drilling into the
// embedded frame when the content loads there. It terminates early once a
// known marker shows up in the text.
func (e *PropertyEnricher) pollModal(ctx context.Context) (string, error) {
	for attempt := 0; attempt < e.attempts; attempt++ {
		if err := e.surface.Sleep(ctx, e.backoff); err != nil {
			return "", err
		}

		for _, sel := range modalSelectors {
			text, err := e.surface.Text(ctx, sel)
			if err != nil {
				if errors.Is(err, ErrSessionInvalidated) {
					return "", err
				}
				continue
			}
			if hasPropertyMarker(text) {
				return text, nil
			}
		}

		text, err := e.surface.FrameText(ctx, modalFrameSelector)
		if err != nil {
			if errors.Is(err, ErrSessionInvalidated) {
				return "", err
			}
			continue
		}
		if hasPropertyMarker(text) {
			return text, nil
		}
	}
	return "", nil
}

func hasPropertyMarker(text string) bool {
	return strings.Contains(text, propertyAvailableMarker) ||
		strings.Contains(text, propertyAgentMarker)
}

// dismiss closes the surface: escape first, then a click outside the modal
// with a re-check.
func (e *PropertyEnricher) dismiss(ctx context.Context) error {
	if err := e.surface.PressEscape(ctx); err != nil {
		if errors.Is(err, ErrSessionInvalidated) {
			return err
		}
	}
	if err := e.surface.WaitHidden(ctx, modalSelectors[len(modalSelectors)-1], time.Second); err == nil {
		return nil
	} else if errors.Is(err, ErrSessionInvalidated) {
		return err
	}

	if err := e.surface.ClickAt(ctx, 5, 5); err != nil {
		if errors.Is(err, ErrSessionInvalidated) {
			return err
		}
	}
	err := e.surface.WaitHidden(ctx, modalSelectors[len(modalSelectors)-1], time.Second)
	if errors.Is(err, ErrSessionInvalidated) {
		return err
	}
	return nil
}

// ExtractPropertyDetails pulls the external identifier and the responsible
// agent's name out of the detail surface's text. Either may come back
// empty.
func ExtractPropertyDetails(text string) (externalID, agent string) {
	if m := externalIDRe.FindStringSubmatch(text); m != nil {
		externalID = m[1]
	}

	if m := agentLineRe.FindStringSubmatch(text); m != nil {
		candidate := m[1]
		for _, phrase := range agentTrailingPhrases {
			if idx := strings.Index(candidate, phrase); idx >= 0 {
				candidate = candidate[:idx]
			}
		}
		candidate = strings.TrimSpace(candidate)
		if len([]rune(candidate)) >= 2 && !isAgentBoilerplate(candidate) {
			agent = candidate
		}
	}
	return externalID, agent
}

func isAgentBoilerplate(s string) bool {
	lower := strings.ToLower(s)
	for _, b := range agentBoilerplate {
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}
