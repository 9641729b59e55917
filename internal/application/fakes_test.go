package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
	"github.com/stretchr/testify/mock"
)

func anyContext() interface{} {
	return mock.MatchedBy(func(context.Context) bool { return true })
}

// fakePage is a scripted ports.Page. Locators are keyed by Locator.String().
type fakePage struct {
	mu sync.Mutex

	url     string
	content string
	present map[string]bool
	texts   map[string]string
	// clickErrs are returned, in order, before a click on the locator succeeds.
	clickErrs map[string][]error
	onClick   map[string]func(p *fakePage)

	fills       map[string]string
	clicks      []string
	closeCount  int
	stableCalls int
	shot        []byte
}

func newFakePage(present ...domain.Locator) *fakePage {
	p := &fakePage{
		present:   map[string]bool{},
		texts:     map[string]string{},
		clickErrs: map[string][]error{},
		onClick:   map[string]func(p *fakePage){},
		fills:     map[string]string{},
		shot:      []byte("png"),
	}
	for _, locator := range present {
		p.present[locator.String()] = true
	}

	return p
}

func (p *fakePage) show(locators ...domain.Locator) {
	for _, locator := range locators {
		p.present[locator.String()] = true
	}
}

func (p *fakePage) hide(locators ...domain.Locator) {
	for _, locator := range locators {
		delete(p.present, locator.String())
	}
}

func (p *fakePage) on(locator domain.Locator, fn func(p *fakePage)) {
	p.onClick[locator.String()] = fn
}

func (p *fakePage) failClicks(locator domain.Locator, errs ...error) {
	p.clickErrs[locator.String()] = append(p.clickErrs[locator.String()], errs...)
}

func (p *fakePage) clicked(locator domain.Locator) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, key := range p.clicks {
		if key == locator.String() {
			count++
		}
	}

	return count
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.url = url

	return nil
}

func (p *fakePage) Fill(_ context.Context, locator domain.Locator, value string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.present[locator.String()] {
		return fmt.Errorf("fill %s: %w", locator, domain.ErrElementNotFound)
	}
	p.fills[locator.String()] = value

	return nil
}

func (p *fakePage) Click(ctx context.Context, locator domain.Locator, timeout time.Duration) error {
	return p.ForceClick(ctx, locator, timeout)
}

func (p *fakePage) ForceClick(_ context.Context, locator domain.Locator, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := locator.String()
	if errs := p.clickErrs[key]; len(errs) > 0 {
		p.clickErrs[key] = errs[1:]
		return errs[0]
	}
	if !p.present[key] {
		return fmt.Errorf("click %s: %w", locator, domain.ErrElementNotFound)
	}

	p.clicks = append(p.clicks, key)
	if fn := p.onClick[key]; fn != nil {
		fn(p)
	}

	return nil
}

func (p *fakePage) Exists(_ context.Context, locator domain.Locator) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.present[locator.String()], nil
}

func (p *fakePage) Text(_ context.Context, locator domain.Locator, _ time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.present[locator.String()] {
		return "", domain.ErrElementNotFound
	}

	return p.texts[locator.String()], nil
}

func (p *fakePage) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.url, nil
}

func (p *fakePage) Content(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.content, nil
}

func (p *fakePage) WaitURL(_ context.Context, match func(string) bool, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if match(p.url) {
		return nil
	}

	return context.DeadlineExceeded
}

func (p *fakePage) WaitStable(context.Context, time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stableCalls++

	return nil
}

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	return p.shot, nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeCount++
	return nil
}

type fakeLauncher struct {
	page  ports.Page
	err   error
	calls int
}

func (l *fakeLauncher) Launch(context.Context, ports.BrowserOptions) (ports.Page, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}

	return l.page, nil
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)

	return ctx.Err()
}

var (
	testLoginID   = domain.CSS("#memberid")
	testServerID  = domain.CSS("#server")
	testPassword  = domain.CSS("#password")
	testSubmit    = domain.CSS("#submit")
	testAuthError = domain.CSS(".auth-error")
	testManage    = domain.Text("Game panel")
	testEntry     = domain.Text("Extend plan")
	testEntryAlt  = domain.CSS("a.extend")
	testProceed   = domain.Text("Proceed")
	testConfirm   = domain.Text("Extend now")
	testError     = domain.CSS(".error")
)

func testSettings() Settings {
	settings := DefaultSettings()
	settings.Site = SiteSettings{
		LoginURL:           "https://panel.test/login",
		LoginURLMarker:     "login",
		LoginIDField:       testLoginID,
		ServerIDField:      testServerID,
		PasswordField:      testPassword,
		SubmitButton:       testSubmit,
		AuthErrorLocator:   testAuthError,
		AuthErrorMarkers:   []string{"wrong password"},
		ManageLocators:     []domain.Locator{testManage},
		ServiceIndexMarker: "/game/index",
		EntryLocators:      []domain.Locator{testEntry, testEntryAlt},
		ConfirmLocators:    []domain.Locator{testConfirm, testProceed},

		SuccessURLFragments: []string{"/extend/done"},
		SuccessTextMarkers:  []string{"plan extended"},
		ErrorLocator:        testError,
	}
	settings.ArtifactDir = ""

	return settings
}

// renewablePage is an authenticated service page where one confirm click
// completes the renewal.
func renewablePage() *fakePage {
	page := newFakePage(testEntry)
	page.url = "https://panel.test/game/index"
	page.on(testEntry, func(p *fakePage) {
		p.url = "https://panel.test/extend/input"
		p.hide(testEntry)
		p.show(testConfirm)
	})
	page.on(testConfirm, func(p *fakePage) {
		p.url = "https://panel.test/extend/done"
		p.content = "Your plan extended until next month"
		p.hide(testConfirm)
	})

	return page
}

// loginPage serves the login form; submitting lands on a panel with a
// management link that leads into renewablePage.
func loginPage() *fakePage {
	page := renewablePage()
	page.hide(testEntry)
	page.show(testLoginID, testServerID, testPassword, testSubmit)
	page.on(testSubmit, func(p *fakePage) {
		p.url = "https://panel.test/dashboard"
		p.show(testManage)
	})
	page.on(testManage, func(p *fakePage) {
		p.url = "https://panel.test/game/index"
		p.show(testEntry)
	})

	return page
}

// sequenceLauncher hands out one page per launch, in order.
type sequenceLauncher struct {
	mu    sync.Mutex
	pages []*fakePage
}

func (l *sequenceLauncher) Launch(context.Context, ports.BrowserOptions) (ports.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pages) == 0 {
		return nil, fmt.Errorf("no more pages")
	}
	page := l.pages[0]
	l.pages = l.pages[1:]

	return page, nil
}
