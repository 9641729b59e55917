package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

const (
	pollInterval = 250 * time.Millisecond
	readyTimeout = 30 * time.Second
)

// Page drives one Chrome tab. It is not safe for concurrent use.
type Page struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      zerolog.Logger

	closeOnce sync.Once
}

// scoped derives a context from the tab that also ends with ctx or after timeout.
func (p *Page) scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var scoped context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		scoped, cancel = context.WithTimeout(p.tab, timeout)
	} else {
		scoped, cancel = context.WithCancel(p.tab)
	}

	stop := context.AfterFunc(ctx, cancel)
	return scoped, func() {
		stop()
		cancel()
	}
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := p.scoped(ctx, readyTimeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return classify(ctx, "navigate to "+url, err)
	}

	return nil
}

func (p *Page) Fill(ctx context.Context, locator domain.Locator, value string, timeout time.Duration) error {
	sel, by, err := selector(locator)
	if err != nil {
		return err
	}

	runCtx, cancel := p.scoped(ctx, timeout)
	defer cancel()

	err = chromedp.Run(runCtx,
		chromedp.WaitVisible(sel, by),
		chromedp.Clear(sel, by),
		chromedp.SendKeys(sel, value, by),
	)

	return classify(ctx, "fill "+locator.String(), err)
}

func (p *Page) Click(ctx context.Context, locator domain.Locator, timeout time.Duration) error {
	sel, by, err := selector(locator)
	if err != nil {
		return err
	}

	runCtx, cancel := p.scoped(ctx, timeout)
	defer cancel()

	return classify(ctx, "click "+locator.String(), chromedp.Run(runCtx, chromedp.Click(sel, by, chromedp.NodeVisible)))
}

// ForceClick resolves the first matching node and calls its click() method,
// so overlays and off-screen positions do not block it.
func (p *Page) ForceClick(ctx context.Context, locator domain.Locator, timeout time.Duration) error {
	sel, by, err := selector(locator)
	if err != nil {
		return err
	}

	runCtx, cancel := p.scoped(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(sel, &nodes, by)); err != nil {
		return classify(ctx, "find "+locator.String(), err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("find %s: %w", locator, domain.ErrElementNotFound)
	}

	err = chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		object, err := dom.ResolveNode().WithNodeID(nodes[0].NodeID).Do(ctx)
		if err != nil {
			return err
		}

		_, exception, err := runtime.CallFunctionOn("function() { this.click(); }").
			WithObjectID(object.ObjectID).
			Do(ctx)
		if err != nil {
			return err
		}
		if exception != nil {
			return fmt.Errorf("click threw: %s", exception.Text)
		}

		return nil
	}))

	return classify(ctx, "force click "+locator.String(), err)
}

func (p *Page) Exists(ctx context.Context, locator domain.Locator) (bool, error) {
	sel, by, err := selector(locator)
	if err != nil {
		return false, err
	}

	runCtx, cancel := p.scoped(ctx, readyTimeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(sel, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return false, classify(ctx, "query "+locator.String(), err)
	}

	return len(nodes) > 0, nil
}

func (p *Page) Text(ctx context.Context, locator domain.Locator, timeout time.Duration) (string, error) {
	sel, by, err := selector(locator)
	if err != nil {
		return "", err
	}

	runCtx, cancel := p.scoped(ctx, timeout)
	defer cancel()

	var text string
	if err := chromedp.Run(runCtx, chromedp.Text(sel, &text, by)); err != nil {
		return "", classify(ctx, "read text of "+locator.String(), err)
	}

	return strings.TrimSpace(text), nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	runCtx, cancel := p.scoped(ctx, readyTimeout)
	defer cancel()

	var url string
	if err := chromedp.Run(runCtx, chromedp.Location(&url)); err != nil {
		return "", classify(ctx, "read location", err)
	}

	return url, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	runCtx, cancel := p.scoped(ctx, readyTimeout)
	defer cancel()

	var text string
	err := chromedp.Run(runCtx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
	if err != nil {
		return "", classify(ctx, "read page text", err)
	}

	return text, nil
}

func (p *Page) WaitURL(ctx context.Context, match func(url string) bool, timeout time.Duration) error {
	runCtx, cancel := p.scoped(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last string
	for {
		var url string
		if err := chromedp.Run(runCtx, chromedp.Location(&url)); err == nil {
			last = url
			if match(url) {
				return nil
			}
		}

		select {
		case <-runCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("url still %q after %s: %w", last, timeout, context.DeadlineExceeded)
		case <-ticker.C:
		}
	}
}

// WaitStable waits for document.readyState to reach "complete", then settles.
func (p *Page) WaitStable(ctx context.Context, settle time.Duration) error {
	readyCtx, cancel := p.scoped(ctx, readyTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

ready:
	for {
		var state string
		if err := chromedp.Run(readyCtx, chromedp.Evaluate(`document.readyState`, &state)); err == nil && state == "complete" {
			break
		}

		select {
		case <-readyCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			p.logger.Debug().Dur("timeout", readyTimeout).Msg("document never reported complete")
			break ready
		case <-ticker.C:
		}
	}

	if settle <= 0 {
		return nil
	}

	timer := time.NewTimer(settle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := p.scoped(ctx, readyTimeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}

	return buf, nil
}

func (p *Page) Close() error {
	var err error
	p.closeOnce.Do(func() {
		closeCtx, cancel := context.WithTimeout(p.tab, 5*time.Second)
		defer cancel()

		if cancelErr := chromedp.Cancel(closeCtx); cancelErr != nil && p.tab.Err() == nil {
			err = fmt.Errorf("close browser: %w", cancelErr)
		}
		p.cancelTab()
		p.cancelAlloc()
	})

	return err
}
