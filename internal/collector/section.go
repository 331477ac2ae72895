package collector

import (
	"regexp"
	"strings"
)

// RowDecision is what the classifier tells the loop to do with a row.
type RowDecision int

const (
	// RowSkip drops the row (headers, rows outside the target section).
	RowSkip RowDecision = iota
	// RowYield passes the row on to parsing.
	RowYield
	// RowSectionExhausted marks the boundary where the traversal left the
	// target section; the caller stops yielding rows for this pass.
	RowSectionExhausted
)

type cursorState int

const (
	cursorNone cursorState = iota
	cursorTarget
	cursorOther
)

var headerCountRe = regexp.MustCompile(`\((\d+)\)`)

// SectionClassifier tracks which status section the traversal is currently
// inside. It is single-owner mutable state, advanced only by Classify.
type SectionClassifier struct {
	target Status
	cursor cursorState
}

// NewSectionClassifier creates a classifier filtering for the given status.
// StatusAll disables section filtering: every data row is yielded.
func NewSectionClassifier(target Status) *SectionClassifier {
	return &SectionClassifier{target: target}
}

// Classify inspects one row's text. Header rows move the cursor and are
// never yielded; data rows are yielded while the cursor is inside the
// target section (or unconditionally for StatusAll).
func (c *SectionClassifier) Classify(text string) RowDecision {
	if label, ok := headerLabel(text); ok {
		if c.target == StatusAll {
			c.cursor = cursorOther
			return RowSkip
		}
		if strings.EqualFold(label, c.target.SectionLabel()) {
			c.cursor = cursorTarget
			return RowSkip
		}
		if c.cursor == cursorTarget {
			c.cursor = cursorOther
			return RowSectionExhausted
		}
		c.cursor = cursorOther
		return RowSkip
	}

	if c.target == StatusAll {
		return RowYield
	}
	if c.cursor == cursorTarget {
		return RowYield
	}
	return RowSkip
}

// InTarget reports whether the cursor currently sits inside the requested
// section.
func (c *SectionClassifier) InTarget() bool {
	return c.target == StatusAll || c.cursor == cursorTarget
}

// headerLabel reports whether a row is a status-section header: it must
// carry one of the known section labels and a parenthesized count.
func headerLabel(text string) (string, bool) {
	if !headerCountRe.MatchString(text) {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, label := range sectionLabels {
		if strings.Contains(lower, strings.ToLower(label)) {
			return label, true
		}
	}
	return "", false
}
