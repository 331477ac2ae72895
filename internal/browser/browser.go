// Package browser is the chromedp-backed automation surface the engine
// drives. It owns exactly one page per run and is responsible for spotting
// out-of-band session invalidation after every network-affecting operation.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/leadsweep/leadsweep/internal/collector"
	"github.com/leadsweep/leadsweep/internal/logger"
)

// Config holds browser settings.
type Config struct {
	Headless  bool
	UserAgent string
	OpTimeout time.Duration
	// DisconnectedMarkers are URL fragments of the CRM's "not connected"
	// surface. Landing on one of them means the credential was used
	// concurrently elsewhere.
	DisconnectedMarkers []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:  true,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		OpTimeout: 30 * time.Second,
		DisconnectedMarkers: []string{
			"/not_connected",
			"session_expired",
			"desconectado",
		},
	}
}

// Browser wraps a chromedp exec allocator. One Browser can hand out pages
// for sequential runs; pages are never shared across concurrent runs.
type Browser struct {
	cfg       Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// New launches the browser allocator.
func New(cfg Config) (*Browser, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.OpTimeout == 0 {
		cfg.OpTimeout = DefaultConfig().OpTimeout
	}
	if len(cfg.DisconnectedMarkers) == 0 {
		cfg.DisconnectedMarkers = DefaultConfig().DisconnectedMarkers
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	logger.Debug("browser allocator created", "headless", cfg.Headless)

	return &Browser{
		cfg:       cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// NewPage creates a fresh page context for one run.
func (b *Browser) NewPage() (*Page, error) {
	pageCtx, cancel := chromedp.NewContext(b.allocCtx)
	return &Page{
		cfg:    b.cfg,
		ctx:    pageCtx,
		cancel: cancel,
	}, nil
}

// Close releases browser resources.
func (b *Browser) Close() error {
	if b.cancelCtx != nil {
		b.cancelCtx()
	}
	return nil
}

// Page is one browser page; it implements the engine's Surface contract.
type Page struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
}

var _ collector.Surface = (*Page)(nil)

// Close releases the page context.
func (p *Page) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}

// run executes chromedp actions against the page, bounded by the operation
// timeout and the caller's context.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = p.cfg.OpTimeout
	}
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tctx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// checkSession inspects the current location after a network-affecting
// operation and converts a "not connected" landing into the distinguished
// fatal error.
func (p *Page) checkSession(ctx context.Context) error {
	loc, err := p.Location(ctx)
	if err != nil {
		return nil // transient; the next operation will surface real trouble
	}
	lower := strings.ToLower(loc)
	for _, marker := range p.cfg.DisconnectedMarkers {
		if strings.Contains(lower, marker) {
			logger.Warn("session invalidated", "location", loc)
			return fmt.Errorf("landed on %s: %w", loc, collector.ErrSessionInvalidated)
		}
	}
	return nil
}

// Navigate loads a URL and waits for the body to render.
func (p *Page) Navigate(ctx context.Context, url string) error {
	logger.Debug("navigate", "url", url)
	if err := p.run(ctx, 0,
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return p.checkSession(ctx)
}

// Location returns the page's current URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, 5*time.Second, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// WaitIdle waits for the document to finish loading, bounded by timeout.
// The CRM keeps background requests trickling, so readiness plus a short
// settle is the practical notion of "idle" here.
func (p *Page) WaitIdle(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.cfg.OpTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		var state string
		if err := p.run(ctx, 2*time.Second,
			chromedp.Evaluate(`document.readyState`, &state),
		); err == nil && state == "complete" {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("page not idle after %s", timeout)
		}
		if err := p.Sleep(ctx, 200*time.Millisecond); err != nil {
			return err
		}
	}
}

// Click clicks the first match of a CSS selector.
func (p *Page) Click(ctx context.Context, sel string) error {
	if err := p.run(ctx, 0,
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return p.checkSession(ctx)
}

// ClickByText locates an element by its visible text, brings it into view
// and clicks it.
func (p *Page) ClickByText(ctx context.Context, text string) error {
	q := fmt.Sprintf(`//*[contains(normalize-space(.), %s)][not(.//*[contains(normalize-space(.), %s)])]`,
		xpathString(text), xpathString(text))
	if err := p.run(ctx, 0,
		chromedp.ScrollIntoView(q, chromedp.BySearch),
		chromedp.Click(q, chromedp.BySearch),
	); err != nil {
		return fmt.Errorf("click by text %q: %w", text, err)
	}
	return p.checkSession(ctx)
}

// ClickAt dispatches a raw mouse click at viewport coordinates.
func (p *Page) ClickAt(ctx context.Context, x, y float64) error {
	return p.run(ctx, 5*time.Second, chromedp.MouseClickXY(x, y))
}

// Fill sets an input's value.
func (p *Page) Fill(ctx context.Context, sel, value string) error {
	if err := p.run(ctx, 0,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("fill %s: %w", sel, err)
	}
	return nil
}

// PressEscape sends the escape key to the page.
func (p *Page) PressEscape(ctx context.Context) error {
	return p.run(ctx, 5*time.Second, chromedp.KeyEvent(kb.Escape))
}

// ScrollIntoView brings the first match of a selector into the viewport.
func (p *Page) ScrollIntoView(ctx context.Context, sel string) error {
	return p.run(ctx, 5*time.Second, chromedp.ScrollIntoView(sel, chromedp.ByQuery))
}

// Text returns the inner text of the first match.
func (p *Page) Text(ctx context.Context, sel string) (string, error) {
	var out string
	if err := p.run(ctx, 5*time.Second, chromedp.Text(sel, &out, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("text %s: %w", sel, err)
	}
	return out, nil
}

// TextAll returns the flattened inner text of every match, in document
// order.
func (p *Page) TextAll(ctx context.Context, sel string) ([]string, error) {
	var out []string
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(el => el.innerText.replace(/\s+/g, ' ').trim())`,
		sel)
	if err := p.run(ctx, 10*time.Second, chromedp.Evaluate(js, &out)); err != nil {
		return nil, fmt.Errorf("text all %s: %w", sel, err)
	}
	return out, nil
}

// FrameText reads the text of a same-origin embedded frame's document.
func (p *Page) FrameText(ctx context.Context, frameSel string) (string, error) {
	var out string
	js := fmt.Sprintf(`(() => {
	const frame = document.querySelector(%q);
	if (!frame || !frame.contentDocument || !frame.contentDocument.body) return "";
	return frame.contentDocument.body.innerText;
})()`, frameSel)
	if err := p.run(ctx, 5*time.Second, chromedp.Evaluate(js, &out)); err != nil {
		return "", fmt.Errorf("frame text %s: %w", frameSel, err)
	}
	return out, nil
}

// HTML returns the outer HTML of the first match.
func (p *Page) HTML(ctx context.Context, sel string) (string, error) {
	var out string
	if err := p.run(ctx, 10*time.Second, chromedp.OuterHTML(sel, &out, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("html %s: %w", sel, err)
	}
	return out, nil
}

// Evaluate runs a JavaScript expression and unmarshals its result.
func (p *Page) Evaluate(ctx context.Context, js string, out any) error {
	return p.run(ctx, 10*time.Second, chromedp.Evaluate(js, out))
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (p *Page) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// WaitHidden blocks until the selector is hidden or the timeout elapses.
func (p *Page) WaitHidden(ctx context.Context, sel string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitNotVisible(sel, chromedp.ByQuery))
}

// Sleep pauses, honoring the caller's context.
func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// xpathString quotes a literal for use inside an XPath expression.
func xpathString(s string) string {
	if !strings.Contains(s, `'`) {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+part+"'")
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}
