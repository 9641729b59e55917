package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	reportadapter "github.com/bnema/xserver-renew/internal/adapters/render/report"
	filestore "github.com/bnema/xserver-renew/internal/adapters/secrets/file"
	"github.com/bnema/xserver-renew/internal/application"
	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var fixedNow = time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)

func TestVersionPrintsBuildVersion(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestRenewAllAccountsSucceed(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1")

	stdout, stderr, err := executeCLI(t, home, "renew")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Xserver renewal report")
	assert.Contains(t, stdout, "succeeded: 1/1")
	assert.Contains(t, stdout, "ali***ount")
	assert.Contains(t, stdout, "✓ renewed")
	assert.Contains(t, stdout, "renewal completed (clicks=1)")
	assert.Contains(t, stderr, "telegram not configured, skipping notification")
	assert.NotContains(t, stderr, "alice-account")
}

func TestRenewPartialFailureReturnsError(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1,bob-account:wrong:srv2")

	d := testDeps(t, home)
	stdout, _, err := executeCLIWith(t, home, d, "renew")

	require.ErrorIs(t, err, errRenewalFailed)
	assert.Contains(t, err.Error(), "1 of 2 accounts failed")
	assert.Contains(t, stdout, "succeeded: 1/2")
	assert.Contains(t, stdout, "✗ failed")
	assert.Contains(t, stdout, "login failed: authentication rejected")

	launcher := d.launcher
	assert.Equal(t, 2, launcher.launchCount())
	for _, page := range launcher.pages {
		assert.Equal(t, 1, page.closed)
	}

	shot := filepath.Join(home, "artifacts", "xsr-bobxxxount-login-20260214-090000.png")
	assert.FileExists(t, shot)
}

func TestRenewJSONOutput(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1")

	stdout, _, err := executeCLI(t, home, "renew", "--output", "json")
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(stdout)))

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Outcomes, 1)
	assert.True(t, report.Outcomes[0].Success)
	assert.Equal(t, "ali***ount", report.Outcomes[0].Account)
	assert.NotEmpty(t, report.RunID)
}

func TestRenewYAMLOutput(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "bob-account:wrong:srv2")

	stdout, _, err := executeCLI(t, home, "renew", "-o", "yaml")
	require.ErrorIs(t, err, errRenewalFailed)

	var report domain.Report
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Outcomes, 1)
	assert.False(t, report.Outcomes[0].Success)
	assert.Contains(t, stdout, "success: false")
}

func TestRenewRejectsUnknownOutput(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1")

	d := testDeps(t, home)
	_, _, err := executeCLIWith(t, home, d, "renew", "--output", "xml")

	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Zero(t, d.launcher.launchCount())
}

func TestRenewWithoutAccountsFailsBeforeLaunching(t *testing.T) {
	home := newTestHome(t)

	d := testDeps(t, home)
	_, _, err := executeCLIWith(t, home, d, "renew")

	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "no accounts configured")
	assert.Zero(t, d.launcher.launchCount())
}

func TestRenewResolvesSecretReferences(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "secret", "set", "--key", "alice", "--value", "good")
	require.NoError(t, err)

	t.Setenv("XSERVER_ACCOUNTS", "alice-account:secret://alice:srv1")
	d := testDeps(t, home)
	_, _, err = executeCLIWith(t, home, d, "renew")
	require.NoError(t, err)

	require.Len(t, d.launcher.pages, 1)
	site := application.DefaultSettings().Site
	assert.Equal(t, "good", d.launcher.pages[0].fills[site.PasswordField.String()])
	assert.Equal(t, "srv1", d.launcher.pages[0].fills[site.ServerIDField.String()])
}

func TestRenewMissingSecretReferenceIsConfigurationError(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:secret://absent:srv1")

	d := testDeps(t, home)
	_, _, err := executeCLIWith(t, home, d, "renew")

	require.ErrorIs(t, err, domain.ErrConfiguration)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
	assert.Zero(t, d.launcher.launchCount())
}

func TestRenewSendsTelegramReport(t *testing.T) {
	var mu sync.Mutex
	var gotPath string
	var gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		mu.Lock()
		gotPath = r.URL.Path
		gotText = r.PostForm.Get("text")
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	home := newTestHome(t)
	_, _, err := executeCLI(t, home, "secret", "set", "--key", "telegram", "--value", "123:abc")
	require.NoError(t, err)

	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1,bob-account:wrong:srv2")
	t.Setenv("TELEGRAM_BOT_TOKEN", "secret://telegram")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("TELEGRAM_API_BASE", server.URL)

	_, _, err = executeCLI(t, home, "renew")
	require.ErrorIs(t, err, errRenewalFailed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Contains(t, gotText, "Succeeded: 1/2")
	assert.Contains(t, gotText, "Run at: 2026/02/14 09:00:00")
	assert.Contains(t, gotText, "ali***ount")
	assert.Contains(t, gotText, "bob***ount")
}

func TestRenewNotificationFailureDoesNotChangeResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("TELEGRAM_API_BASE", server.URL)

	stdout, stderr, err := executeCLI(t, home, "renew")
	require.NoError(t, err)
	assert.Contains(t, stdout, "succeeded: 1/1")
	assert.Contains(t, stderr, "send notification")
	assert.NotContains(t, stderr, "123:abc")
}

func TestRenewInteractiveShowsSpinnerAndReport(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1")

	d := testDeps(t, home)
	d.launcher.delay = 200 * time.Millisecond

	stdout, stderr, err := executeCLIWith(t, home, d, "renew", "--interactive")
	require.NoError(t, err)
	assert.Contains(t, stdout, "succeeded: 1/1")
	assert.Contains(t, stderr, "Renewing accounts")
	assert.NotContains(t, stderr, "telegram not configured")
}

func TestRenewJSONLogFormat(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1")

	_, stderr, err := executeCLI(t, home, "--log-format", "json", "renew")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), line)
	}
	assert.Contains(t, stderr, `"run_id"`)
	assert.Contains(t, stderr, `"account":"ali***ount"`)
}

func TestInvalidLogLevel(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "--log-level", "loud", "accounts")
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestAccountsListsMaskedAccounts(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:pw:srv1,bob-account:secret://bob")
	t.Setenv("XSERVER_SERVER_ID", "srv-default")

	stdout, _, err := executeCLI(t, home, "accounts")
	require.NoError(t, err)
	assert.Equal(t,
		"ali***ount\tserver:srv1\tsecret:inline\n"+
			"bob***ount\tserver:srv-default\tsecret:secret://bob\n",
		stdout,
	)
}

func TestConfigShowMasksSecrets(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:hunter2:srv1")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	stdout, _, err := executeCLI(t, home, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# source: defaults and environment")
	assert.Contains(t, stdout, "alice-account:********:srv1")
	assert.NotContains(t, stdout, "hunter2")
	assert.NotContains(t, stdout, "123:abc")
	assert.Contains(t, stdout, "login_url")
}

func TestConfigInitWritesDefaultFile(t *testing.T) {
	home := newTestHome(t)
	path := filepath.Join(home, "custom", "xsr.toml")

	stdout, _, err := executeCLI(t, home, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", stdout)
	assert.FileExists(t, path)

	_, _, err = executeCLI(t, home, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file already exists")

	_, _, err = executeCLI(t, home, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# source: "+path)
}

func TestConfigInitUsesDefaultLocation(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, ".config", "xsr", "xsr.toml"))
}

func TestSecretSetRequiresValueFlag(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "secret", "set", "--key", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"value\" not set")
}

func TestSecretSetThenRemove(t *testing.T) {
	home := newTestHome(t)

	stdout, _, err := executeCLI(t, home, "secret", "set", "--key", "secret://alice", "--value", "pw")
	require.NoError(t, err)
	assert.Equal(t, "stored secret://alice\n", stdout)

	store := filestore.NewStore(filepath.Join(home, "secrets"))
	got, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "pw", got)

	stdout, _, err = executeCLI(t, home, "secret", "rm", "--key", "alice")
	require.NoError(t, err)
	assert.Equal(t, "removed secret://alice\n", stdout)

	_, err = store.Get(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestScheduleRequiresExpression(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "schedule")
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "no schedule")
}

func TestScheduleRejectsInvalidExpression(t *testing.T) {
	home := newTestHome(t)

	_, _, err := executeCLI(t, home, "schedule", "--cron", "every tuesday")
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestScheduleRunNowThenStopsOnCancel(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1")
	t.Setenv("XSR_CRON", "@daily")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := testDeps(t, home)
	d.launcher.afterClose = cancel

	_, stderr, err := executeCLIContext(t, ctx, home, d, "schedule", "--run-now")
	require.NoError(t, err)
	assert.Equal(t, 1, d.launcher.launchCount())
	assert.Contains(t, stderr, "scheduled renewal finished")
	assert.Contains(t, stderr, "scheduler stopped")
}

func TestScheduleSkipsRunWhenAlreadyCancelled(t *testing.T) {
	home := newTestHome(t)
	t.Setenv("XSERVER_ACCOUNTS", "alice-account:good:srv1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := testDeps(t, home)
	_, _, err := executeCLIContext(t, ctx, home, d, "schedule", "--cron", "0 9 * * *", "--run-now")
	require.NoError(t, err)
	assert.Zero(t, d.launcher.launchCount())
}

// testHarness carries the fakes behind one CLI invocation.
type testHarness struct {
	deps
	launcher *panelLauncher
}

func newTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, env := range []string{
		"XSERVER_ACCOUNTS", "XSERVER_USERNAME", "XSERVER_PASSWORD", "XSERVER_SERVER_ID",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_API_BASE",
		"XSERVER_HEADLESS", "XSR_CHROME_PATH", "XSR_CRON",
	} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
	t.Setenv("XSR_ARTIFACT_DIR", filepath.Join(home, "artifacts"))

	return home
}

func testDeps(t *testing.T, home string) testHarness {
	t.Helper()

	launcher := &panelLauncher{accepted: "good"}
	store := filestore.NewStore(filepath.Join(home, "secrets"))

	return testHarness{
		deps: deps{
			newLauncher:    func(zerolog.Logger) ports.BrowserLauncher { return launcher },
			newSecretStore: func() (ports.SecretStore, error) { return store, nil },
			clock:          instantClock{},
			reportRenderer: reportadapter.Render,
			now:            func() time.Time { return fixedNow },
		},
		launcher: launcher,
	}
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()

	return executeCLIWith(t, home, testDeps(t, home), args...)
}

func executeCLIWith(t *testing.T, home string, h testHarness, args ...string) (string, string, error) {
	t.Helper()

	return executeCLIContext(t, context.Background(), home, h, args...)
}

func executeCLIContext(t *testing.T, ctx context.Context, home string, h testHarness, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmdWith(h.deps)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

type instantClock struct{}

func (instantClock) Now() time.Time { return fixedNow }

func (instantClock) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type panelLauncher struct {
	mu         sync.Mutex
	accepted   string
	pages      []*panelPage
	afterClose func()
	delay      time.Duration
}

func (l *panelLauncher) Launch(_ context.Context, _ ports.BrowserOptions) (ports.Page, error) {
	time.Sleep(l.delay)

	l.mu.Lock()
	defer l.mu.Unlock()

	page := &panelPage{
		site:       application.DefaultSettings().Site,
		accepted:   l.accepted,
		visible:    map[string]bool{},
		fills:      map[string]string{},
		afterClose: l.afterClose,
	}
	l.pages = append(l.pages, page)

	return page, nil
}

func (l *panelLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.pages)
}

// panelPage walks the default login, entry and confirm locators like the
// real panel: a correct password lands on the service index, the entry link
// opens the confirmation step and confirming finishes the extension.
type panelPage struct {
	site       application.SiteSettings
	accepted   string
	url        string
	content    string
	visible    map[string]bool
	fills      map[string]string
	closed     int
	afterClose func()
}

const panelBase = "https://secure.xserver.ne.jp/xapanel/xmgame"

func (p *panelPage) Navigate(_ context.Context, url string) error {
	p.url = url
	p.content = "login"
	p.visible = map[string]bool{}
	return nil
}

func (p *panelPage) Fill(_ context.Context, locator domain.Locator, value string, _ time.Duration) error {
	p.fills[locator.String()] = value
	return nil
}

func (p *panelPage) Click(_ context.Context, locator domain.Locator, _ time.Duration) error {
	if locator != p.site.SubmitButton {
		return domain.ErrElementNotFound
	}

	if p.fills[p.site.PasswordField.String()] != p.accepted {
		p.content = p.site.AuthErrorMarkers[0]
		return nil
	}

	p.url = panelBase + "/game/index"
	p.content = "game index"
	p.visible = map[string]bool{p.site.EntryLocators[0].String(): true}
	return nil
}

func (p *panelPage) ForceClick(_ context.Context, locator domain.Locator, _ time.Duration) error {
	if !p.visible[locator.String()] {
		return domain.ErrElementNotFound
	}

	switch locator {
	case p.site.EntryLocators[0]:
		p.url = panelBase + "/freeplan/extend/input"
		p.content = "confirm extension"
		p.visible = map[string]bool{p.site.ConfirmLocators[0].String(): true}
	case p.site.ConfirmLocators[0]:
		p.url = panelBase + "/freeplan/extend/do"
		p.content = p.site.SuccessTextMarkers[0]
		p.visible = map[string]bool{}
	}

	return nil
}

func (p *panelPage) Exists(_ context.Context, locator domain.Locator) (bool, error) {
	return p.visible[locator.String()], nil
}

func (p *panelPage) Text(context.Context, domain.Locator, time.Duration) (string, error) {
	return "", domain.ErrElementNotFound
}

func (p *panelPage) URL(context.Context) (string, error) { return p.url, nil }

func (p *panelPage) Content(context.Context) (string, error) { return p.content, nil }

func (p *panelPage) WaitURL(_ context.Context, match func(string) bool, _ time.Duration) error {
	if match(p.url) {
		return nil
	}

	return domain.ErrElementNotFound
}

func (p *panelPage) WaitStable(context.Context, time.Duration) error { return nil }

func (p *panelPage) Screenshot(context.Context) ([]byte, error) { return []byte("png"), nil }

func (p *panelPage) Close() error {
	p.closed++
	if p.afterClose != nil {
		p.afterClose()
	}
	return nil
}
