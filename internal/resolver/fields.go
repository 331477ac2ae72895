package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadsweep/leadsweep/internal/logger"
)

// FieldKind discriminates what a field query resolved to. There is no
// runtime shape sniffing: every result is explicitly tagged.
type FieldKind int

const (
	// FieldUnresolved means no element could be mapped to the query.
	FieldUnresolved FieldKind = iota
	// FieldSingle is a single-element handle.
	FieldSingle
	// FieldCollection is a handle to several matching elements.
	FieldCollection
)

// ResolvedField is one query result: a selector addressing the element(s),
// tagged with what it resolved to.
type ResolvedField struct {
	Kind     FieldKind
	Selector string
	Count    int
}

// Client is the explicitly constructed resolver dependency. It carries its
// provider and nothing else; callers own its lifecycle.
type Client struct {
	provider Provider
}

// NewClient creates a resolver client over a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

const fieldSystemPrompt = `You map form fields to CSS selectors. Given an HTML page and a list of
field names, return for each name the CSS selector of the interactive
element that fills that role, or an empty string when the page has no such
element. Answer with JSON only.`

// ResolveFormFields asks the provider to map each queried field name to a
// CSS selector on the page, then verifies every selector against the HTML
// and tags the result. Unverifiable selectors come back FieldUnresolved
// rather than failing the whole resolution.
func (c *Client) ResolveFormFields(ctx context.Context, html string, fields []string) (map[string]ResolvedField, error) {
	logger.Debug("resolving form fields", "fields", fields, "html_size", len(html))

	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []any{},
	}
	props := schema["properties"].(map[string]any)
	required := make([]any, 0, len(fields))
	for _, f := range fields {
		props[f] = map[string]any{"type": "string"}
		required = append(required, f)
	}
	schema["required"] = required

	prompt := fmt.Sprintf("Fields: %s\n\nHTML:\n%s",
		strings.Join(fields, ", "), clipHTML(html, 60_000))

	resp, err := c.provider.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: fieldSystemPrompt},
			{Role: RoleUser, Content: prompt},
		},
		MaxTokens:   1024,
		Temperature: 0.0,
		JSONSchema:  schema,
	})
	if err != nil {
		return nil, fmt.Errorf("field resolution: %w", err)
	}

	var selectors map[string]string
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &selectors); err != nil {
		return nil, fmt.Errorf("field resolution returned malformed JSON: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page HTML: %w", err)
	}

	out := make(map[string]ResolvedField, len(fields))
	for _, f := range fields {
		out[f] = verifySelector(doc, selectors[f])
	}
	logger.Debug("form fields resolved", "resolved", out)
	return out, nil
}

// verifySelector checks a proposed selector against the snapshot and tags
// the outcome.
func verifySelector(doc *goquery.Document, sel string) ResolvedField {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return ResolvedField{Kind: FieldUnresolved}
	}
	matches := doc.Find(sel)
	switch matches.Length() {
	case 0:
		return ResolvedField{Kind: FieldUnresolved}
	case 1:
		return ResolvedField{Kind: FieldSingle, Selector: sel, Count: 1}
	default:
		return ResolvedField{Kind: FieldCollection, Selector: sel, Count: matches.Length()}
	}
}

func clipHTML(html string, max int) string {
	if len(html) <= max {
		return html
	}
	return html[:max]
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
