package collector

import (
	"context"
)

// The two extraction strategies are distinct capabilities. The structural
// one reads the rendered row structure; the semantic one recovers leads
// from the whole page without it. The run loop owns the choice: semantic
// extraction is selected only when the structural scan yields nothing.

// StructuralExtractor reads the flattened text of every currently rendered
// lead row, in document order.
type StructuralExtractor interface {
	ExtractRows(ctx context.Context) ([]string, error)
}

// SemanticExtractor recovers leads from the whole page's HTML without
// relying on the row structure.
type SemanticExtractor interface {
	ExtractLeads(ctx context.Context, html string) ([]Lead, error)
}

// rowScanner is the default structural extractor: it tries the row
// selectors in priority order and returns the first non-empty match set.
type rowScanner struct {
	surface Surface
}

// NewStructuralExtractor creates the selector-table row reader over the
// given surface.
func NewStructuralExtractor(surface Surface) StructuralExtractor {
	return &rowScanner{surface: surface}
}

func (r *rowScanner) ExtractRows(ctx context.Context) ([]string, error) {
	for _, sel := range rowSelectors {
		rows, err := r.surface.TextAll(ctx, sel)
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			continue
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}
