package collector

import (
	"context"
	"errors"
	"time"
)

// ErrSessionInvalidated is raised when the browsing context was redirected
// to the CRM's "not connected" surface, meaning the credential was used
// concurrently elsewhere. It must propagate through every call frame and
// abort the run; only the external caller decides whether to retry.
var ErrSessionInvalidated = errors.New("session invalidated: credential in use elsewhere")

// ScrollStep reports one advance of the scrollable surface.
type ScrollStep struct {
	Previous float64 `json:"previous"`
	Offset   float64 `json:"offset"`
	Max      float64 `json:"max"`
}

// AtEnd reports whether the step landed at (effectively) the end of the
// scrollable content. The 1% slack absorbs sub-pixel rounding in the
// browser's reported offsets.
func (s ScrollStep) AtEnd() bool {
	return s.Max <= 0 || s.Offset >= 0.99*s.Max
}

// Progressed reports whether the scroll actually moved.
func (s ScrollStep) Progressed() bool {
	return s.Offset > s.Previous
}

// Surface is the browser-automation surface the engine drives. It mirrors
// the interaction primitives of the underlying page; implementations must
// return ErrSessionInvalidated (possibly wrapped) whenever the session was
// invalidated out-of-band, and plain errors for transient UI friction.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	WaitIdle(ctx context.Context, timeout time.Duration) error

	Click(ctx context.Context, sel string) error
	ClickByText(ctx context.Context, text string) error
	ClickAt(ctx context.Context, x, y float64) error
	Fill(ctx context.Context, sel, value string) error
	PressEscape(ctx context.Context) error
	ScrollIntoView(ctx context.Context, sel string) error

	Text(ctx context.Context, sel string) (string, error)
	TextAll(ctx context.Context, sel string) ([]string, error)
	FrameText(ctx context.Context, frameSel string) (string, error)
	HTML(ctx context.Context, sel string) (string, error)
	Evaluate(ctx context.Context, js string, out any) error

	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	WaitHidden(ctx context.Context, sel string, timeout time.Duration) error
	Sleep(ctx context.Context, d time.Duration) error
}
