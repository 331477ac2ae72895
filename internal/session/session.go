// Package session bootstraps the authenticated browsing context: a static
// preflight of the login page, the login itself, and the landing check.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/leadsweep/leadsweep/internal/collector"
	"github.com/leadsweep/leadsweep/internal/logger"
	"github.com/leadsweep/leadsweep/internal/resolver"
)

// Config holds the credentials and entry points for one CRM account.
type Config struct {
	LoginURL  string
	BoardURL  string
	Email     string
	Password  string
	UserAgent string
	Timeout   time.Duration
}

// Structural selectors tried before falling back to the resolver.
var (
	emailSelectors    = []string{"input[type='email']", "input[name='email']", "input[name='username']"}
	passwordSelectors = []string{"input[type='password']", "input[name='password']"}
	submitSelectors   = []string{"button[type='submit']", "input[type='submit']", "form button"}
)

// Manager drives login over the browser surface. The resolver client is
// optional; without it only the structural selectors are tried.
type Manager struct {
	surface  collector.Surface
	resolver *resolver.Client
	cfg      Config
}

// New creates a session manager.
func New(surface collector.Surface, res *resolver.Client, cfg Config) *Manager {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Manager{surface: surface, resolver: res, cfg: cfg}
}

// Preflight fetches the login page statically and verifies it looks like a
// login form. It fails fast when the portal is unreachable, before any
// browser is spent on it.
func (m *Manager) Preflight(ctx context.Context) error {
	logger.Debug("preflight starting", "url", m.cfg.LoginURL)

	c := colly.NewCollector(colly.UserAgent(m.cfg.UserAgent))
	c.SetRequestTimeout(m.cfg.Timeout)

	var html string
	var status int
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		html = string(r.Body)
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(m.cfg.LoginURL); err != nil {
		return fmt.Errorf("preflight visit: %w", err)
	}
	if fetchErr != nil {
		return fmt.Errorf("preflight fetch: %w", fetchErr)
	}
	if status != 200 {
		return fmt.Errorf("preflight: login page returned status %d", status)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("preflight parse: %w", err)
	}
	if doc.Find("input[type='password']").Length() == 0 && doc.Find("form").Length() == 0 {
		return fmt.Errorf("preflight: %s does not look like a login page", m.cfg.LoginURL)
	}

	logger.Debug("preflight ok", "status", status)
	return nil
}

// Login navigates to the login page, fills the form and verifies the
// landing. Form fields are located structurally first; when that fails and
// a resolver client is present, the page HTML is handed to it.
func (m *Manager) Login(ctx context.Context) error {
	logger.Info("logging in", "url", m.cfg.LoginURL)

	if err := m.surface.Navigate(ctx, m.cfg.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := m.surface.WaitIdle(ctx, m.cfg.Timeout); err != nil {
		logger.Debug("login page idle wait failed", "error", err)
	}

	emailSel, passwordSel, submitSel, err := m.locateForm(ctx)
	if err != nil {
		return err
	}

	if err := m.surface.Fill(ctx, emailSel, m.cfg.Email); err != nil {
		return fmt.Errorf("fill email: %w", err)
	}
	if err := m.surface.Fill(ctx, passwordSel, m.cfg.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := m.surface.Click(ctx, submitSel); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	if err := m.surface.WaitIdle(ctx, m.cfg.Timeout); err != nil {
		logger.Debug("post-login idle wait failed", "error", err)
	}

	loc, err := m.surface.Location(ctx)
	if err != nil {
		return fmt.Errorf("read landing url: %w", err)
	}
	if strings.Contains(loc, m.cfg.LoginURL) {
		return fmt.Errorf("login rejected, still at %s", loc)
	}

	logger.Info("login ok", "landing", loc)
	return nil
}

// OpenBoard navigates to the lead board.
func (m *Manager) OpenBoard(ctx context.Context) error {
	if m.cfg.BoardURL == "" {
		return nil
	}
	if err := m.surface.Navigate(ctx, m.cfg.BoardURL); err != nil {
		return fmt.Errorf("open lead board: %w", err)
	}
	return nil
}

func (m *Manager) locateForm(ctx context.Context) (emailSel, passwordSel, submitSel string, err error) {
	emailSel = firstPresent(ctx, m.surface, emailSelectors)
	passwordSel = firstPresent(ctx, m.surface, passwordSelectors)
	submitSel = firstPresent(ctx, m.surface, submitSelectors)
	if emailSel != "" && passwordSel != "" && submitSel != "" {
		return emailSel, passwordSel, submitSel, nil
	}

	if m.resolver == nil {
		return "", "", "", fmt.Errorf("login form not found structurally and no resolver configured")
	}

	logger.Info("login form not found structurally, asking resolver")
	html, err := m.surface.HTML(ctx, "html")
	if err != nil {
		return "", "", "", fmt.Errorf("read login page: %w", err)
	}
	fields, err := m.resolver.ResolveFormFields(ctx, html, []string{"email", "password", "submit"})
	if err != nil {
		return "", "", "", fmt.Errorf("resolve login form: %w", err)
	}

	emailSel = coalesce(emailSel, singleSelector(fields["email"]))
	passwordSel = coalesce(passwordSel, singleSelector(fields["password"]))
	submitSel = coalesce(submitSel, singleSelector(fields["submit"]))
	if emailSel == "" || passwordSel == "" || submitSel == "" {
		return "", "", "", fmt.Errorf("login form fields unresolved: %+v", fields)
	}
	return emailSel, passwordSel, submitSel, nil
}

func firstPresent(ctx context.Context, s collector.Surface, selectors []string) string {
	for _, sel := range selectors {
		var count int
		js := fmt.Sprintf(`document.querySelectorAll(%q).length`, sel)
		if err := s.Evaluate(ctx, js, &count); err != nil {
			continue
		}
		if count > 0 {
			return sel
		}
	}
	return ""
}

func singleSelector(f resolver.ResolvedField) string {
	if f.Kind == resolver.FieldSingle || f.Kind == resolver.FieldCollection {
		return f.Selector
	}
	return ""
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
