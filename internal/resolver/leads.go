package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadsweep/leadsweep/internal/collector"
	"github.com/leadsweep/leadsweep/internal/logger"
)

const leadSystemPrompt = `You extract sales leads from the rendered text of a CRM lead board. Each
lead has a contact name, optionally a counterpart property address, an
update stamp as displayed, and optionally the responsible agent. Return a
JSON array; do not invent leads that are not in the text.`

type semanticLead struct {
	ContactName string `json:"contact_name"`
	Address     string `json:"address"`
	LastUpdated string `json:"last_updated"`
	AgentName   string `json:"agent_name"`
}

// LeadExtractor is the semantic extraction strategy: it recovers leads from
// a whole-page snapshot via the LLM. The orchestrator selects it only when
// the structural scrape yields zero rows.
type LeadExtractor struct {
	client *Client
}

// NewLeadExtractor creates a semantic lead extractor over a resolver
// client.
func NewLeadExtractor(client *Client) *LeadExtractor {
	return &LeadExtractor{client: client}
}

var _ collector.SemanticExtractor = (*LeadExtractor)(nil)

// ExtractLeads cleans the page HTML down to its visible text and asks the
// provider for the leads it contains.
func (e *LeadExtractor) ExtractLeads(ctx context.Context, html string) ([]collector.Lead, error) {
	text, err := pageText(html)
	if err != nil {
		return nil, fmt.Errorf("clean page HTML: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	logger.Debug("semantic lead extraction", "text_size", len(text))

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"leads": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"contact_name": map[string]any{"type": "string"},
						"address":      map[string]any{"type": "string"},
						"last_updated": map[string]any{"type": "string"},
						"agent_name":   map[string]any{"type": "string"},
					},
					"required": []any{"contact_name"},
				},
			},
		},
		"required": []any{"leads"},
	}

	resp, err := e.client.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: leadSystemPrompt},
			{Role: RoleUser, Content: clipHTML(text, 80_000)},
		},
		MaxTokens:   4096,
		Temperature: 0.0,
		JSONSchema:  schema,
	})
	if err != nil {
		return nil, fmt.Errorf("semantic extraction: %w", err)
	}

	var payload struct {
		Leads []semanticLead `json:"leads"`
	}
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &payload); err != nil {
		return nil, fmt.Errorf("semantic extraction returned malformed JSON: %w", err)
	}

	leads := make([]collector.Lead, 0, len(payload.Leads))
	for _, sl := range payload.Leads {
		if strings.TrimSpace(sl.ContactName) == "" {
			continue
		}
		leads = append(leads, collector.Lead{
			Contact:     collector.Contact{Name: strings.TrimSpace(sl.ContactName)},
			Agent:       collector.Agent{Name: strings.TrimSpace(sl.AgentName)},
			Property:    collector.Property{Address: strings.TrimSpace(sl.Address)},
			LastUpdated: strings.TrimSpace(sl.LastUpdated),
		})
	}
	logger.Info("semantic extraction complete", "leads", len(leads))
	return leads, nil
}

// pageText strips scripts and chrome out of the HTML and returns the
// visible text.
func pageText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, svg").Remove()

	var parts []string
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n"), nil
}
