package collector

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// The CRM shows ages as calendar-ish spans ("8 años 182 días"). They are
// resolved with fixed 365/30-day approximations; the imprecision is accepted
// and matches what the source UI itself displays.
const (
	daysPerYear  = 365
	daysPerMonth = 30
)

var (
	spanYearsRe  = regexp.MustCompile(`(?i)(\d+)\s*años?`)
	spanMonthsRe = regexp.MustCompile(`(?i)(\d+)\s*mes(?:es)?`)
	spanDaysRe   = regexp.MustCompile(`(?i)(\d+)\s*d[ií]as?`)

	agoRe = regexp.MustCompile(`(?i)hace\s+(\d+)\s+(hora|minuto)s?`)

	absoluteRe = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})(?:\s+(\d{2}):(\d{2}))?`)
)

// ResolveDate converts one of the CRM's heterogeneous date displays into an
// absolute instant relative to now. It never fails hard: an unrecognized
// string yields ok == false and the caller treats the row as undated.
//
// Resolution order: relative span, "hace N horas/minutos", explicit
// DD/MM/YYYY[ HH:MM], generically parseable absolute date. First match wins.
// The explicit rule runs before the generic parse because the CRM is strictly
// day-first and ambiguous strings like "05/11/2025" must not flip to May 11.
func ResolveDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := resolveSpan(s, now); ok {
		return t, true
	}
	if t, ok := resolveAgo(s, now); ok {
		return t, true
	}
	if t, ok := resolveExplicit(s, now.Location()); ok {
		return t, true
	}
	if t, err := dateparse.ParseIn(s, now.Location(), dateparse.PreferMonthFirst(false)); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func resolveSpan(s string, now time.Time) (time.Time, bool) {
	days := 0
	matched := false

	if m := spanYearsRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		days += n * daysPerYear
		matched = true
	}
	if m := spanMonthsRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		days += n * daysPerMonth
		matched = true
	}
	if m := spanDaysRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		days += n
		matched = true
	}

	if !matched {
		return time.Time{}, false
	}
	return now.AddDate(0, 0, -days), true
}

func resolveAgo(s string, now time.Time) (time.Time, bool) {
	m := agoRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n, _ := strconv.Atoi(m[1])
	switch strings.ToLower(m[2]) {
	case "hora":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "minuto":
		return now.Add(-time.Duration(n) * time.Minute), true
	}
	return time.Time{}, false
}

func resolveExplicit(s string, loc *time.Location) (time.Time, bool) {
	m := absoluteRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, minute := 0, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc), true
}
