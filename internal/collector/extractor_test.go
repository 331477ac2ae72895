package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// multiSelectorSurface answers TextAll per selector, to exercise the row
// selector fallback order.
type multiSelectorSurface struct {
	*fakeSurface
	bySelector map[string][]string
	errors     map[string]error
}

func (m *multiSelectorSurface) TextAll(ctx context.Context, sel string) ([]string, error) {
	if err, ok := m.errors[sel]; ok {
		return nil, err
	}
	return m.bySelector[sel], nil
}

// --- StructuralExtractor Tests ---

func TestStructuralExtractor_SelectorFallbackOrder(t *testing.T) {
	surface := &multiSelectorSurface{
		fakeSurface: &fakeSurface{},
		bySelector: map[string][]string{
			rowSelectors[2]: {"Juan Pérez (Ana Gómez) Colombres 148"},
		},
	}
	e := NewStructuralExtractor(surface)

	rows, err := e.ExtractRows(context.Background())
	if err != nil {
		t.Fatalf("ExtractRows() error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the later selector's rows, got %d rows", len(rows))
	}
}

func TestStructuralExtractor_TransientErrorTriesNextSelector(t *testing.T) {
	surface := &multiSelectorSurface{
		fakeSurface: &fakeSurface{},
		bySelector: map[string][]string{
			rowSelectors[1]: {"Juan Pérez (Ana Gómez) Colombres 148"},
		},
		errors: map[string]error{
			rowSelectors[0]: errors.New("stale node"),
		},
	}
	e := NewStructuralExtractor(surface)

	rows, err := e.ExtractRows(context.Background())
	if err != nil {
		t.Fatalf("a transient selector failure should fall through: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row from the fallback selector, got %d", len(rows))
	}
}

func TestStructuralExtractor_FatalErrorStops(t *testing.T) {
	surface := &multiSelectorSurface{
		fakeSurface: &fakeSurface{},
		errors: map[string]error{
			rowSelectors[0]: fmt.Errorf("landed on /not_connected: %w", ErrSessionInvalidated),
		},
	}
	e := NewStructuralExtractor(surface)

	if _, err := e.ExtractRows(context.Background()); !errors.Is(err, ErrSessionInvalidated) {
		t.Fatalf("expected ErrSessionInvalidated, got %v", err)
	}
}

func TestStructuralExtractor_NoRowsAnywhere(t *testing.T) {
	e := NewStructuralExtractor(&fakeSurface{})

	rows, err := e.ExtractRows(context.Background())
	if err != nil {
		t.Fatalf("ExtractRows() error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}
