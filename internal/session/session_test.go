package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leadsweep/leadsweep/internal/collector"
)

// scriptedSurface fakes the login page: Evaluate answers element-count
// probes from a selector set, and fills and clicks are recorded.
type scriptedSurface struct {
	present  map[string]bool
	location string
	html     string

	fills  map[string]string
	clicks []string
}

var _ collector.Surface = (*scriptedSurface)(nil)

func newScriptedSurface() *scriptedSurface {
	return &scriptedSurface{
		present: make(map[string]bool),
		fills:   make(map[string]string),
	}
}

func (s *scriptedSurface) Navigate(ctx context.Context, url string) error { return nil }
func (s *scriptedSurface) Location(ctx context.Context) (string, error)   { return s.location, nil }
func (s *scriptedSurface) WaitIdle(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (s *scriptedSurface) Click(ctx context.Context, sel string) error {
	s.clicks = append(s.clicks, sel)
	return nil
}
func (s *scriptedSurface) ClickByText(ctx context.Context, text string) error { return nil }
func (s *scriptedSurface) ClickAt(ctx context.Context, x, y float64) error    { return nil }

func (s *scriptedSurface) Fill(ctx context.Context, sel, value string) error {
	s.fills[sel] = value
	return nil
}

func (s *scriptedSurface) PressEscape(ctx context.Context) error                { return nil }
func (s *scriptedSurface) ScrollIntoView(ctx context.Context, sel string) error { return nil }

func (s *scriptedSurface) Text(ctx context.Context, sel string) (string, error) { return "", nil }
func (s *scriptedSurface) TextAll(ctx context.Context, sel string) ([]string, error) {
	return nil, nil
}
func (s *scriptedSurface) FrameText(ctx context.Context, frameSel string) (string, error) {
	return "", nil
}
func (s *scriptedSurface) HTML(ctx context.Context, sel string) (string, error) {
	return s.html, nil
}

func (s *scriptedSurface) Evaluate(ctx context.Context, js string, out any) error {
	if p, ok := out.(*int); ok {
		for sel, present := range s.present {
			if present && strings.Contains(js, sel) {
				*p = 1
				return nil
			}
		}
		*p = 0
	}
	return nil
}

func (s *scriptedSurface) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return nil
}
func (s *scriptedSurface) WaitHidden(ctx context.Context, sel string, timeout time.Duration) error {
	return nil
}
func (s *scriptedSurface) Sleep(ctx context.Context, d time.Duration) error { return nil }

func testConfig() Config {
	return Config{
		LoginURL: "https://crm.test/login",
		BoardURL: "https://crm.test/leads",
		Email:    "agente@inmobiliaria.test",
		Password: "secreta",
	}
}

// --- Login Tests ---

func TestManager_Login_StructuralForm(t *testing.T) {
	surface := newScriptedSurface()
	surface.present["input[type='email']"] = true
	surface.present["input[type='password']"] = true
	surface.present["button[type='submit']"] = true
	surface.location = "https://crm.test/dashboard"

	m := New(surface, nil, testConfig())
	if err := m.Login(context.Background()); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	if got := surface.fills["input[type='email']"]; got != "agente@inmobiliaria.test" {
		t.Errorf("expected email filled, got %q", got)
	}
	if got := surface.fills["input[type='password']"]; got != "secreta" {
		t.Errorf("expected password filled, got %q", got)
	}
	if len(surface.clicks) != 1 || surface.clicks[0] != "button[type='submit']" {
		t.Errorf("expected one submit click, got %v", surface.clicks)
	}
}

func TestManager_Login_RejectedWhenStillOnLoginPage(t *testing.T) {
	surface := newScriptedSurface()
	surface.present["input[type='email']"] = true
	surface.present["input[type='password']"] = true
	surface.present["button[type='submit']"] = true
	surface.location = "https://crm.test/login?error=1"

	m := New(surface, nil, testConfig())
	if err := m.Login(context.Background()); err == nil {
		t.Fatal("Login() should fail when the landing is still the login page")
	}
}

func TestManager_Login_NoFormNoResolver(t *testing.T) {
	surface := newScriptedSurface()
	surface.location = "https://crm.test/dashboard"

	m := New(surface, nil, testConfig())
	if err := m.Login(context.Background()); err == nil {
		t.Fatal("Login() should fail without a form or a resolver")
	}
}

// --- Preflight Tests ---

func TestManager_Preflight_LoginPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><form>
			<input type="email" name="email">
			<input type="password" name="password">
		</form></body></html>`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.LoginURL = srv.URL
	m := New(newScriptedSurface(), nil, cfg)

	if err := m.Preflight(context.Background()); err != nil {
		t.Fatalf("Preflight() error: %v", err)
	}
}

func TestManager_Preflight_NotALoginPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Mantenimiento programado</h1></body></html>`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.LoginURL = srv.URL
	m := New(newScriptedSurface(), nil, cfg)

	if err := m.Preflight(context.Background()); err == nil {
		t.Fatal("Preflight() should reject a page with no login form")
	}
}

func TestManager_Preflight_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mantenimiento", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.LoginURL = srv.URL
	m := New(newScriptedSurface(), nil, cfg)

	if err := m.Preflight(context.Background()); err == nil {
		t.Fatal("Preflight() should fail on a non-200 status")
	}
}
