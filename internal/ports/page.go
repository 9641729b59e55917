package ports

import (
	"context"
	"time"

	"github.com/bnema/xserver-renew/internal/domain"
)

// Page is one browser session owned by a single account run.
//
// Element lookups return domain.ErrElementNotFound once the timeout elapses
// and domain.ErrStaleReference when the node disappears between lookup and
// interaction.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, locator domain.Locator, value string, timeout time.Duration) error
	Click(ctx context.Context, locator domain.Locator, timeout time.Duration) error
	// ForceClick invokes the element's click() directly, ignoring overlays.
	ForceClick(ctx context.Context, locator domain.Locator, timeout time.Duration) error
	Exists(ctx context.Context, locator domain.Locator) (bool, error)
	Text(ctx context.Context, locator domain.Locator, timeout time.Duration) (string, error)
	URL(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	WaitURL(ctx context.Context, match func(url string) bool, timeout time.Duration) error
	// WaitStable blocks until the document reports ready and then for settle.
	WaitStable(ctx context.Context, settle time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

type BrowserOptions struct {
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	ExecPath     string
}

type BrowserLauncher interface {
	Launch(ctx context.Context, opts BrowserOptions) (Page, error)
}
