package config

import (
	"fmt"
	"time"

	"github.com/bnema/xserver-renew/internal/application"
	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version   int             `toml:"version" mapstructure:"version"`
	Accounts  accountsSchema  `toml:"accounts" mapstructure:"accounts"`
	Telegram  telegramSchema  `toml:"telegram" mapstructure:"telegram"`
	Schedule  scheduleSchema  `toml:"schedule" mapstructure:"schedule"`
	Artifacts artifactsSchema `toml:"artifacts" mapstructure:"artifacts"`
	Browser   browserSchema   `toml:"browser" mapstructure:"browser"`
	Timing    timingSchema    `toml:"timing" mapstructure:"timing"`
	Workflow  workflowSchema  `toml:"workflow" mapstructure:"workflow"`
	Site      siteSchema      `toml:"site" mapstructure:"site"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("%w: unsupported config version %d (current %d)", domain.ErrConfiguration, s.Version, currentSchemaVersion)
	}

	return nil
}

// accountsSchema accepts the list form ("id:secret[:server]", comma or newline
// separated), structured entries, or a single username/password pair.
type accountsSchema struct {
	List     string          `toml:"list,omitempty" mapstructure:"list"`
	Entries  []accountSchema `toml:"entries,omitempty" mapstructure:"entries"`
	Username string          `toml:"username,omitempty" mapstructure:"username"`
	Password string          `toml:"password,omitempty" mapstructure:"password"`
	ServerID string          `toml:"server_id,omitempty" mapstructure:"server_id"`
}

type accountSchema struct {
	ID       string `toml:"id" mapstructure:"id"`
	Secret   string `toml:"secret" mapstructure:"secret"`
	ServerID string `toml:"server_id,omitempty" mapstructure:"server_id"`
}

type telegramSchema struct {
	BotToken string `toml:"bot_token,omitempty" mapstructure:"bot_token"`
	ChatID   string `toml:"chat_id,omitempty" mapstructure:"chat_id"`
	APIBase  string `toml:"api_base" mapstructure:"api_base"`
}

type scheduleSchema struct {
	Cron string `toml:"cron,omitempty" mapstructure:"cron"`
}

type artifactsSchema struct {
	Dir string `toml:"dir" mapstructure:"dir"`
}

type browserSchema struct {
	Headless     bool   `toml:"headless" mapstructure:"headless"`
	UserAgent    string `toml:"user_agent" mapstructure:"user_agent"`
	WindowWidth  int    `toml:"window_width" mapstructure:"window_width"`
	WindowHeight int    `toml:"window_height" mapstructure:"window_height"`
	ExecPath     string `toml:"exec_path,omitempty" mapstructure:"exec_path"`
}

type timingSchema struct {
	ElementTimeout    string `toml:"element_timeout" mapstructure:"element_timeout"`
	NavigationTimeout string `toml:"navigation_timeout" mapstructure:"navigation_timeout"`
	LocatorTimeout    string `toml:"locator_timeout" mapstructure:"locator_timeout"`
	EntrySettle       string `toml:"entry_settle" mapstructure:"entry_settle"`
	StepSettle        string `toml:"step_settle" mapstructure:"step_settle"`
	StaleRetryPause   string `toml:"stale_retry_pause" mapstructure:"stale_retry_pause"`
	AccountDelay      string `toml:"account_delay" mapstructure:"account_delay"`
}

type workflowSchema struct {
	MaxConfirmIterations int `toml:"max_confirm_iterations" mapstructure:"max_confirm_iterations"`
	StaleRetries         int `toml:"stale_retries" mapstructure:"stale_retries"`
	ErrorTextLimit       int `toml:"error_text_limit" mapstructure:"error_text_limit"`
}

type siteSchema struct {
	LoginURL            string   `toml:"login_url" mapstructure:"login_url"`
	LoginURLMarker      string   `toml:"login_url_marker" mapstructure:"login_url_marker"`
	RequireServerID     bool     `toml:"require_server_id" mapstructure:"require_server_id"`
	LoginIDField        string   `toml:"login_id_field" mapstructure:"login_id_field"`
	ServerIDField       string   `toml:"server_id_field" mapstructure:"server_id_field"`
	PasswordField       string   `toml:"password_field" mapstructure:"password_field"`
	SubmitButton        string   `toml:"submit_button" mapstructure:"submit_button"`
	AuthErrorLocator    string   `toml:"auth_error_locator" mapstructure:"auth_error_locator"`
	AuthErrorMarkers    []string `toml:"auth_error_markers" mapstructure:"auth_error_markers"`
	ManageLocators      []string `toml:"manage_locators" mapstructure:"manage_locators"`
	ServiceIndexMarker  string   `toml:"service_index_marker" mapstructure:"service_index_marker"`
	EntryLocators       []string `toml:"entry_locators" mapstructure:"entry_locators"`
	ConfirmLocators     []string `toml:"confirm_locators" mapstructure:"confirm_locators"`
	SuccessURLFragments []string `toml:"success_url_fragments" mapstructure:"success_url_fragments"`
	SuccessTextMarkers  []string `toml:"success_text_markers" mapstructure:"success_text_markers"`
	ErrorLocator        string   `toml:"error_locator" mapstructure:"error_locator"`
}

func defaultSchema() fileSchema {
	settings := application.DefaultSettings()

	return fileSchema{
		Version:   currentSchemaVersion,
		Telegram:  telegramSchema{APIBase: "https://api.telegram.org"},
		Artifacts: artifactsSchema{Dir: settings.ArtifactDir},
		Browser: browserSchema{
			Headless:     settings.Browser.Headless,
			UserAgent:    settings.Browser.UserAgent,
			WindowWidth:  settings.Browser.WindowWidth,
			WindowHeight: settings.Browser.WindowHeight,
			ExecPath:     settings.Browser.ExecPath,
		},
		Timing: timingSchema{
			ElementTimeout:    settings.Timing.ElementTimeout.String(),
			NavigationTimeout: settings.Timing.NavigationTimeout.String(),
			LocatorTimeout:    settings.Timing.LocatorTimeout.String(),
			EntrySettle:       settings.Timing.EntrySettle.String(),
			StepSettle:        settings.Timing.StepSettle.String(),
			StaleRetryPause:   settings.Timing.StaleRetryPause.String(),
			AccountDelay:      settings.Timing.AccountDelay.String(),
		},
		Workflow: workflowSchema{
			MaxConfirmIterations: settings.Workflow.MaxConfirmIterations,
			StaleRetries:         settings.Workflow.StaleRetries,
			ErrorTextLimit:       settings.Workflow.ErrorTextLimit,
		},
		Site: siteSchema{
			LoginURL:            settings.Site.LoginURL,
			LoginURLMarker:      settings.Site.LoginURLMarker,
			RequireServerID:     settings.Site.RequireServerID,
			LoginIDField:        settings.Site.LoginIDField.String(),
			ServerIDField:       settings.Site.ServerIDField.String(),
			PasswordField:       settings.Site.PasswordField.String(),
			SubmitButton:        settings.Site.SubmitButton.String(),
			AuthErrorLocator:    settings.Site.AuthErrorLocator.String(),
			AuthErrorMarkers:    settings.Site.AuthErrorMarkers,
			ManageLocators:      locatorStrings(settings.Site.ManageLocators),
			ServiceIndexMarker:  settings.Site.ServiceIndexMarker,
			EntryLocators:       locatorStrings(settings.Site.EntryLocators),
			ConfirmLocators:     locatorStrings(settings.Site.ConfirmLocators),
			SuccessURLFragments: settings.Site.SuccessURLFragments,
			SuccessTextMarkers:  settings.Site.SuccessTextMarkers,
			ErrorLocator:        settings.Site.ErrorLocator.String(),
		},
	}
}

func locatorStrings(locators []domain.Locator) []string {
	out := make([]string, 0, len(locators))
	for _, locator := range locators {
		out = append(out, locator.String())
	}

	return out
}

func toSettings(s fileSchema) (application.Settings, error) {
	settings := application.Settings{
		ArtifactDir: s.Artifacts.Dir,
		Browser: ports.BrowserOptions{
			Headless:     s.Browser.Headless,
			UserAgent:    s.Browser.UserAgent,
			WindowWidth:  s.Browser.WindowWidth,
			WindowHeight: s.Browser.WindowHeight,
			ExecPath:     s.Browser.ExecPath,
		},
		Workflow: application.WorkflowSettings{
			MaxConfirmIterations: s.Workflow.MaxConfirmIterations,
			StaleRetries:         s.Workflow.StaleRetries,
			ErrorTextLimit:       s.Workflow.ErrorTextLimit,
		},
	}
	if settings.Workflow.MaxConfirmIterations < 1 {
		return application.Settings{}, fmt.Errorf("%w: workflow.max_confirm_iterations must be at least 1", domain.ErrConfiguration)
	}
	if settings.Workflow.StaleRetries < 0 {
		return application.Settings{}, fmt.Errorf("%w: workflow.stale_retries must not be negative", domain.ErrConfiguration)
	}

	durations := []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{"timing.element_timeout", s.Timing.ElementTimeout, &settings.Timing.ElementTimeout},
		{"timing.navigation_timeout", s.Timing.NavigationTimeout, &settings.Timing.NavigationTimeout},
		{"timing.locator_timeout", s.Timing.LocatorTimeout, &settings.Timing.LocatorTimeout},
		{"timing.entry_settle", s.Timing.EntrySettle, &settings.Timing.EntrySettle},
		{"timing.step_settle", s.Timing.StepSettle, &settings.Timing.StepSettle},
		{"timing.stale_retry_pause", s.Timing.StaleRetryPause, &settings.Timing.StaleRetryPause},
		{"timing.account_delay", s.Timing.AccountDelay, &settings.Timing.AccountDelay},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.raw)
		if err != nil || parsed < 0 {
			return application.Settings{}, fmt.Errorf("%w: %s: invalid duration %q", domain.ErrConfiguration, d.key, d.raw)
		}
		*d.target = parsed
	}

	site, err := toSiteSettings(s.Site)
	if err != nil {
		return application.Settings{}, err
	}
	settings.Site = site

	return settings, nil
}

func toSiteSettings(s siteSchema) (application.SiteSettings, error) {
	site := application.SiteSettings{
		LoginURL:            s.LoginURL,
		LoginURLMarker:      s.LoginURLMarker,
		RequireServerID:     s.RequireServerID,
		AuthErrorMarkers:    s.AuthErrorMarkers,
		ServiceIndexMarker:  s.ServiceIndexMarker,
		SuccessURLFragments: s.SuccessURLFragments,
		SuccessTextMarkers:  s.SuccessTextMarkers,
	}
	if site.LoginURL == "" {
		return application.SiteSettings{}, fmt.Errorf("%w: site.login_url is required", domain.ErrConfiguration)
	}

	singles := []struct {
		key      string
		raw      string
		target   *domain.Locator
		optional bool
	}{
		{key: "site.login_id_field", raw: s.LoginIDField, target: &site.LoginIDField},
		{key: "site.server_id_field", raw: s.ServerIDField, target: &site.ServerIDField, optional: true},
		{key: "site.password_field", raw: s.PasswordField, target: &site.PasswordField},
		{key: "site.submit_button", raw: s.SubmitButton, target: &site.SubmitButton},
		{key: "site.auth_error_locator", raw: s.AuthErrorLocator, target: &site.AuthErrorLocator, optional: true},
		{key: "site.error_locator", raw: s.ErrorLocator, target: &site.ErrorLocator, optional: true},
	}
	for _, single := range singles {
		if single.raw == "" && single.optional {
			continue
		}
		locator, err := domain.ParseLocator(single.raw)
		if err != nil {
			return application.SiteSettings{}, fmt.Errorf("%s: %w", single.key, err)
		}
		*single.target = locator
	}

	lists := []struct {
		key    string
		raw    []string
		target *[]domain.Locator
	}{
		{"site.manage_locators", s.ManageLocators, &site.ManageLocators},
		{"site.entry_locators", s.EntryLocators, &site.EntryLocators},
		{"site.confirm_locators", s.ConfirmLocators, &site.ConfirmLocators},
	}
	for _, list := range lists {
		locators, err := domain.ParseLocators(list.raw)
		if err != nil {
			return application.SiteSettings{}, fmt.Errorf("%s: %w", list.key, err)
		}
		*list.target = locators
	}
	if len(site.EntryLocators) == 0 || len(site.ConfirmLocators) == 0 {
		return application.SiteSettings{}, fmt.Errorf("%w: site.entry_locators and site.confirm_locators must not be empty", domain.ErrConfiguration)
	}

	return site, nil
}
