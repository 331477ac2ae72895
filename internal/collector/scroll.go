package collector

import (
	"context"
	"fmt"

	"github.com/leadsweep/leadsweep/internal/logger"
)

// ScrollDriver advances the lead board's scrollable surface. The container
// is located by a prioritized list of heuristics evaluated in the page,
// falling back to whole-document scroll.
type ScrollDriver struct {
	surface Surface
}

// NewScrollDriver creates a scroll driver over the given surface.
func NewScrollDriver(surface Surface) *ScrollDriver {
	return &ScrollDriver{surface: surface}
}

// Advance scrolls one viewport forward and reports the offsets.
func (d *ScrollDriver) Advance(ctx context.Context) (ScrollStep, error) {
	var step ScrollStep
	if err := d.surface.Evaluate(ctx, scrollContainerJS, &step); err != nil {
		return ScrollStep{}, fmt.Errorf("scroll advance: %w", err)
	}
	logger.Debug("scroll advanced",
		"previous", step.Previous,
		"offset", step.Offset,
		"max", step.Max,
		"at_end", step.AtEnd())
	return step, nil
}
