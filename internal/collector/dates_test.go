package collector

import (
	"testing"
	"time"
)

var dateNow = time.Date(2025, time.November, 27, 10, 0, 0, 0, time.UTC)

// --- ResolveDate Tests ---

func TestResolveDate_Span_YearsAndDays(t *testing.T) {
	got, ok := ResolveDate("8 años 182 días", dateNow)
	if !ok {
		t.Fatal("ResolveDate() should resolve a year/day span")
	}

	want := dateNow.AddDate(0, 0, -(8*365 + 182))
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolveDate_Span_SingleMonth(t *testing.T) {
	got, ok := ResolveDate("1 mes", dateNow)
	if !ok {
		t.Fatal("ResolveDate() should resolve a month span")
	}

	want := dateNow.AddDate(0, 0, -30)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolveDate_Span_MonthsAndDays(t *testing.T) {
	got, ok := ResolveDate("2 meses 5 días", dateNow)
	if !ok {
		t.Fatal("ResolveDate() should resolve a month/day span")
	}

	want := dateNow.AddDate(0, 0, -(2*30 + 5))
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolveDate_Ago_Hours(t *testing.T) {
	got, ok := ResolveDate("hace 3 horas", dateNow)
	if !ok {
		t.Fatal("ResolveDate() should resolve an hours-ago display")
	}

	want := dateNow.Add(-3 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolveDate_Ago_Minutes(t *testing.T) {
	got, ok := ResolveDate("hace 45 minutos", dateNow)
	if !ok {
		t.Fatal("ResolveDate() should resolve a minutes-ago display")
	}

	want := dateNow.Add(-45 * time.Minute)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolveDate_Absolute_WithTime(t *testing.T) {
	got, ok := ResolveDate("26/11/2025 08:15", dateNow)
	if !ok {
		t.Fatal("ResolveDate() should resolve DD/MM/YYYY HH:MM")
	}

	want := time.Date(2025, time.November, 26, 8, 15, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolveDate_Absolute_DateOnly(t *testing.T) {
	got, ok := ResolveDate("26/11/2025", dateNow)
	if !ok {
		t.Fatal("ResolveDate() should resolve DD/MM/YYYY")
	}

	want := time.Date(2025, time.November, 26, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestResolveDate_Absolute_AmbiguousDayIsDayFirst(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"05/11/2025 08:15", time.Date(2025, time.November, 5, 8, 15, 0, 0, time.UTC)},
		{"01/02/2025", time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{"12/06/2025", time.Date(2025, time.June, 12, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		got, ok := ResolveDate(tc.in, dateNow)
		if !ok {
			t.Fatalf("ResolveDate(%q) should resolve", tc.in)
		}
		if !got.Equal(tc.want) {
			t.Errorf("ResolveDate(%q): expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestResolveDate_Unresolvable(t *testing.T) {
	for _, s := range []string{"", "   ", "sin actividad reciente", "—"} {
		if _, ok := ResolveDate(s, dateNow); ok {
			t.Errorf("ResolveDate(%q) should not resolve", s)
		}
	}
}
