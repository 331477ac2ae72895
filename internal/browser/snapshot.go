package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TargetQuery describes an action target to look for in a page snapshot:
// an element whose text carries the label, or an interactive control found
// within a bounded number of ancestor hops of that label.
type TargetQuery struct {
	Label           string
	ControlSelector string // defaults to the common interactive controls
	MaxAncestorHops int    // defaults to 3
}

// ActionTarget is a resolved control, addressable by a CSS selector built
// from the snapshot.
type ActionTarget struct {
	Selector string
	Text     string
}

const defaultControlSelector = "button, a, input, select, [role='switch'], [role='button']"

// FindActionTarget resolves a query against a parsed page snapshot. It is a
// pure function over the document, so control lookup is testable against
// fixture markup without a live browser. The fallback order is fixed: a
// control that itself carries the label, then the nearest control probing
// upward through a bounded number of ancestors of the labeled node. Returns
// nil when nothing matches.
func FindActionTarget(doc *goquery.Document, q TargetQuery) *ActionTarget {
	if q.Label == "" {
		return nil
	}
	control := q.ControlSelector
	if control == "" {
		control = defaultControlSelector
	}
	hops := q.MaxAncestorHops
	if hops <= 0 {
		hops = 3
	}

	label := strings.ToLower(q.Label)

	// A control carrying the label directly wins.
	var direct *goquery.Selection
	doc.Find(control).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.Text()), label) {
			direct = s
			return false
		}
		return true
	})
	if direct != nil {
		return targetFor(direct)
	}

	// Otherwise find the labeled node and probe its ancestors for a
	// control.
	var labeled *goquery.Selection
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true // only leaf-ish nodes carry a usable label
		}
		if strings.Contains(strings.ToLower(s.Text()), label) {
			labeled = s
			return false
		}
		return true
	})
	if labeled == nil {
		return nil
	}

	node := labeled
	for hop := 0; hop < hops; hop++ {
		node = node.Parent()
		if node.Length() == 0 {
			break
		}
		if found := node.Find(control).First(); found.Length() > 0 {
			return targetFor(found)
		}
	}
	return nil
}

func targetFor(s *goquery.Selection) *ActionTarget {
	return &ActionTarget{
		Selector: cssPath(s),
		Text:     strings.TrimSpace(s.Text()),
	}
}

// cssPath builds a selector addressing the node: its id when present,
// otherwise a tag/class/nth-of-type chain up to the nearest id or the root.
func cssPath(s *goquery.Selection) string {
	var parts []string
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		node := cur.Get(0)
		if node.Data == "" || node.Data == "html" {
			break
		}
		if id, ok := cur.Attr("id"); ok && id != "" {
			parts = append([]string{"#" + id}, parts...)
			return strings.Join(parts, " > ")
		}
		part := node.Data
		if class, ok := cur.Attr("class"); ok {
			if fields := strings.Fields(class); len(fields) > 0 {
				part += "." + fields[0]
			}
		}
		// Disambiguate among same-tag siblings.
		if prev := cur.PrevAllFiltered(node.Data); prev.Length() > 0 {
			part += fmt.Sprintf(":nth-of-type(%d)", prev.Length()+1)
		}
		parts = append([]string{part}, parts...)
	}
	return strings.Join(parts, " > ")
}
