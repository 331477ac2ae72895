package collector

// Selector tables for the CRM's lead board. The DOM is not a stable
// contract, so every lookup carries ordered fallbacks.
var (
	// rowSelectors locate the rendered lead rows, most specific first.
	rowSelectors = []string{
		"div.lead-row",
		"table.leads-table tbody tr",
		"div[class*='lead-item']",
		"div[role='row']",
	}

	// popoverSelectors locate the floating contact card, in priority order.
	popoverSelectors = []string{
		"div.contact-popover",
		"div[class*='popover'][class*='contact']",
		"div.tooltip-contact",
		"div[role='tooltip']",
	}

	// floatingSelectors is the last-resort scan for any floating element
	// that could be the contact card.
	floatingSelectors = []string{
		"div[style*='position: absolute']",
		"div[style*='position: fixed']",
	}

	// modalSelectors locate the property detail surface.
	modalSelectors = []string{
		"div.property-modal",
		"div[class*='modal'][class*='property']",
		"div.modal-dialog",
		"div[role='dialog']",
	}

	// modalFrameSelector is the embedded frame the detail content may load
	// inside.
	modalFrameSelector = "div.modal-dialog iframe, div[role='dialog'] iframe"

	// scrollContainerJS advances the first scrollable ancestor found among
	// the container heuristics, falling back to whole-document scroll, and
	// reports previous/new/max offsets.
	scrollContainerJS = `(() => {
	const candidates = [
		document.querySelector('div.leads-board'),
		document.querySelector('div[class*="lead-list"]'),
		document.querySelector('div.scroll-container'),
		document.querySelector('main'),
	].filter(el => el && el.scrollHeight > el.clientHeight + 1);
	const el = candidates[0] || document.scrollingElement;
	const prev = el.scrollTop;
	el.scrollTop = el.scrollTop + el.clientHeight;
	return {
		previous: prev,
		offset: el.scrollTop,
		max: Math.max(0, el.scrollHeight - el.clientHeight),
	};
})()`
)

const (
	// branchFilterSelector applies the "all branches" equivalent.
	branchFilterSelector = "select[name='branch'] option[value='all'], a[data-filter='all-branches']"

	// reassignToggleText is the switch that reveals reassignment-eligible
	// sections.
	reassignToggleText = "Mostrar reasignables"

	// propertyAvailableMarker precedes the external identifier in the
	// property detail surface.
	propertyAvailableMarker = "Disponible"

	// propertyAgentMarker precedes the responsible agent's name.
	propertyAgentMarker = "Agente"
)
