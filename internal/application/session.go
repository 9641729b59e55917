package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
	"github.com/rs/zerolog"
)

// Session owns one browser page for one account.
type Session struct {
	credential domain.Credential
	settings   Settings
	page       ports.Page
	clock      ports.Clock
	logger     zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

func NewSession(ctx context.Context, credential domain.Credential, settings Settings, launcher ports.BrowserLauncher, clock ports.Clock, logger zerolog.Logger) (*Session, error) {
	if err := credential.Validate(settings.Site.RequireServerID); err != nil {
		return nil, err
	}
	if launcher == nil {
		return nil, fmt.Errorf("%w: no browser launcher", domain.ErrSessionAcquisition)
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	page, err := launcher.Launch(ctx, settings.Browser)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionAcquisition, err)
	}

	return &Session{
		credential: credential,
		settings:   settings,
		page:       page,
		clock:      clock,
		logger:     logger.With().Str("account", domain.MaskIdentifier(credential.Identifier)).Logger(),
	}, nil
}

func (s *Session) Authenticate(ctx context.Context) error {
	site := s.settings.Site
	timing := s.settings.Timing

	s.logger.Info().Str("url", site.LoginURL).Msg("opening login page")
	if err := s.page.Navigate(ctx, site.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	if err := s.page.Fill(ctx, site.LoginIDField, s.credential.Identifier, timing.ElementTimeout); err != nil {
		return fmt.Errorf("fill login id: %w", err)
	}
	if s.credential.ServerID != "" {
		if err := s.page.Fill(ctx, site.ServerIDField, s.credential.ServerID, timing.ElementTimeout); err != nil {
			return fmt.Errorf("fill server id: %w", err)
		}
	}
	if err := s.page.Fill(ctx, site.PasswordField, s.credential.Secret, timing.ElementTimeout); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := s.page.Click(ctx, site.SubmitButton, timing.ElementTimeout); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}

	leftLogin := func(url string) bool {
		return !strings.Contains(url, site.LoginURLMarker)
	}
	if err := s.page.WaitURL(ctx, leftLogin, timing.NavigationTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if marker := s.authErrorMarker(ctx, true); marker != "" {
			return fmt.Errorf("%w: %s", domain.ErrAuthentication, marker)
		}

		return fmt.Errorf("%w: %w", domain.ErrAuthenticationTimeout, err)
	}

	if err := s.page.WaitStable(ctx, timing.StepSettle); err != nil {
		return fmt.Errorf("wait for post-login page: %w", err)
	}

	// Error-styled alerts are routine on panel pages; only marker text counts here.
	if marker := s.authErrorMarker(ctx, false); marker != "" {
		return fmt.Errorf("%w: %s", domain.ErrAuthentication, marker)
	}

	url, err := s.page.URL(ctx)
	if err != nil {
		return fmt.Errorf("read url after login: %w", err)
	}
	if strings.Contains(url, site.LoginURLMarker) {
		return fmt.Errorf("%w: still on login page", domain.ErrAuthentication)
	}

	for _, locator := range site.ManageLocators {
		exists, err := s.page.Exists(ctx, locator)
		if err != nil || !exists {
			continue
		}
		if err := s.page.ForceClick(ctx, locator, timing.ElementTimeout); err != nil {
			return fmt.Errorf("open service management: %w", err)
		}
		if err := s.page.WaitStable(ctx, timing.StepSettle); err != nil {
			return fmt.Errorf("wait for service management: %w", err)
		}

		s.logger.Info().Str("locator", locator.String()).Msg("authenticated, opened service management")
		return nil
	}

	if site.ServiceIndexMarker != "" && strings.Contains(url, site.ServiceIndexMarker) {
		s.logger.Info().Str("url", url).Msg("authenticated, already on service index")
		return nil
	}

	s.logger.Warn().Str("url", url).Msg("authenticated but service management link not found")
	return nil
}

// authErrorMarker reports the rejection text shown by the panel. The error
// locator is consulted only while the login form is still displayed.
func (s *Session) authErrorMarker(ctx context.Context, onLoginForm bool) string {
	content, err := s.page.Content(ctx)
	if err == nil {
		for _, marker := range s.settings.Site.AuthErrorMarkers {
			if marker != "" && strings.Contains(content, marker) {
				return marker
			}
		}
	}

	locator := s.settings.Site.AuthErrorLocator
	if !onLoginForm || locator.Value == "" {
		return ""
	}
	if exists, err := s.page.Exists(ctx, locator); err != nil || !exists {
		return ""
	}
	text, err := s.page.Text(ctx, locator, readTimeout)
	if err != nil {
		return ""
	}

	return truncateRunes(text, s.settings.Workflow.ErrorTextLimit)
}

func (s *Session) Renew(ctx context.Context) WorkflowResult {
	return NewWorkflow(s.page, s.settings, s.clock, s.logger).Run(ctx)
}

// Run authenticates and renews, then closes the page on every path.
func (s *Session) Run(ctx context.Context) (success bool, message string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error().Interface("panic", recovered).Msg("renewal session panicked")
			s.captureFailure(ctx, "panic")
			success, message = false, fmt.Sprintf("unexpected error: %v", recovered)
		}
		if err := s.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close browser session")
		}
	}()

	if err := s.Authenticate(ctx); err != nil {
		s.logger.Error().Err(err).Msg("login failed")
		s.captureFailure(ctx, "login")
		return false, "login failed: " + err.Error()
	}

	result := s.Renew(ctx)
	if !result.Success {
		s.logger.Error().Str("state", string(result.State)).Int("clicks", result.Clicks).Msg(result.Message)
		s.captureFailure(ctx, "renew")
		return false, result.Message
	}

	s.logger.Info().Int("clicks", result.Clicks).Str("url", result.URL).Msg(result.Message)
	return true, result.Message
}

func (s *Session) captureFailure(ctx context.Context, stage string) {
	if s.settings.ArtifactDir == "" {
		return
	}

	shot, err := s.page.Screenshot(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("capture failure screenshot")
		return
	}

	name := fmt.Sprintf("xsr-%s-%s-%s.png",
		strings.ReplaceAll(domain.MaskIdentifier(s.credential.Identifier), "*", "x"),
		stage,
		s.clock.Now().Format("20060102-150405"),
	)
	path := filepath.Join(s.settings.ArtifactDir, name)
	if err := os.MkdirAll(s.settings.ArtifactDir, 0o755); err != nil {
		s.logger.Warn().Err(err).Msg("create artifact directory")
		return
	}
	if err := os.WriteFile(path, shot, 0o644); err != nil {
		s.logger.Warn().Err(err).Msg("write failure screenshot")
		return
	}

	s.logger.Info().Str("path", path).Msg("failure screenshot saved")
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.page != nil {
			s.closeErr = s.page.Close()
		}
	})

	return s.closeErr
}

// SessionFactory builds sessions bound to one run's settings.
type SessionFactory struct {
	settings Settings
	launcher ports.BrowserLauncher
	clock    ports.Clock
	logger   zerolog.Logger
}

func NewSessionFactory(settings Settings, launcher ports.BrowserLauncher, clock ports.Clock, logger zerolog.Logger) *SessionFactory {
	return &SessionFactory{
		settings: settings,
		launcher: launcher,
		clock:    clock,
		logger:   logger,
	}
}

func (f *SessionFactory) NewSession(ctx context.Context, credential domain.Credential) (ports.RenewalSession, error) {
	logger := f.logger
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil && ctxLogger.GetLevel() != zerolog.Disabled {
		logger = *ctxLogger
	}

	session, err := NewSession(ctx, credential, f.settings, f.launcher, f.clock, logger)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			return nil, fmt.Errorf("validate credential: %w", err)
		}

		return nil, err
	}

	return session, nil
}
