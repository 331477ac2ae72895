package collector

import (
	"regexp"
	"strings"
)

var (
	rowTimestampRe = regexp.MustCompile(`\d{2}/\d{2}/\d{4}\s+\d{2}:\d{2}`)
	nameAgentRe    = regexp.MustCompile(`^\s*([^()]+?)\s*\(([^)]+)\)`)

	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?[\d][\d\s().\-]{7,}\d`)
)

// ParseRow turns one row's flattened, whitespace-collapsed text into a
// fragment. It is a best-effort heuristic over free text: a missing
// timestamp or address degrades the fragment, only a missing contact name
// rejects the row.
func ParseRow(text string) (Fragment, bool) {
	text = collapseSpaces(text)
	if text == "" {
		return Fragment{}, false
	}

	var f Fragment

	tsLoc := rowTimestampRe.FindStringIndex(text)
	if tsLoc != nil {
		f.RawTimestamp = text[tsLoc[0]:tsLoc[1]]
	}

	m := nameAgentRe.FindStringSubmatchIndex(text)
	if m == nil {
		return Fragment{}, false
	}
	f.ContactName = strings.TrimSpace(text[m[2]:m[3]])
	f.AgentHint = strings.TrimSpace(text[m[4]:m[5]])
	if f.ContactName == "" {
		return Fragment{}, false
	}

	// The counterpart address is whatever sits between the agent's closing
	// parenthesis and the timestamp, minus leading separator artifacts.
	addrEnd := len(text)
	if tsLoc != nil {
		addrEnd = tsLoc[0]
	}
	if m[1] < addrEnd {
		f.Address = trimAddress(text[m[1]:addrEnd])
	}

	return f, true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func trimAddress(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-–|•:,. ")
	return strings.TrimSpace(s)
}

// CleanAddress strips the trailing "+" and whitespace artifacts the row
// layout appends to addresses. An address that reduces to nothing is
// reported as absent.
func CleanAddress(s string) (string, bool) {
	s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "+"))
	if s == "" || s == "+" {
		return "", false
	}
	return s, true
}

// PhoneClass distinguishes Argentine mobile numbers from landlines.
type PhoneClass int

const (
	PhoneLandline PhoneClass = iota
	PhoneMobile
)

// ClassifyPhone normalizes a phone-shaped token and reports its class. A
// digit string carrying the 549 mobile prefix right after the country code
// is a mobile; anything else is treated as a landline.
func ClassifyPhone(token string) (normalized string, class PhoneClass, ok bool) {
	var digits strings.Builder
	for _, r := range token {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized = digits.String()
	if len(normalized) < 9 {
		return "", PhoneLandline, false
	}
	if strings.HasPrefix(normalized, "549") {
		return normalized, PhoneMobile, true
	}
	return normalized, PhoneLandline, true
}

// ExtractContactDetails pulls the first email and the first phone of each
// class out of a popover's text. Later matches of an already-filled class
// are discarded.
func ExtractContactDetails(text string) (email, phone, mobile string) {
	if m := emailRe.FindString(text); m != "" {
		email = m
	}
	for _, tok := range phoneRe.FindAllString(text, -1) {
		normalized, class, ok := ClassifyPhone(tok)
		if !ok {
			continue
		}
		switch class {
		case PhoneMobile:
			if mobile == "" {
				mobile = normalized
			}
		case PhoneLandline:
			if phone == "" {
				phone = normalized
			}
		}
		if phone != "" && mobile != "" {
			break
		}
	}
	return email, phone, mobile
}
