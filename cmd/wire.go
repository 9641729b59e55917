package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/xserver-renew/internal/adapters/browser"
	"github.com/bnema/xserver-renew/internal/adapters/config"
	"github.com/bnema/xserver-renew/internal/adapters/notify"
	"github.com/bnema/xserver-renew/internal/adapters/notify/telegram"
	reportadapter "github.com/bnema/xserver-renew/internal/adapters/render/report"
	chainstore "github.com/bnema/xserver-renew/internal/adapters/secrets/chain"
	"github.com/bnema/xserver-renew/internal/application"
	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const telegramSkipReason = "telegram not configured, skipping notification"

// deps are the outer adapters; tests swap them for fakes.
type deps struct {
	newLauncher    func(zerolog.Logger) ports.BrowserLauncher
	newSecretStore func() (ports.SecretStore, error)
	httpClient     *http.Client
	clock          ports.Clock
	reportRenderer func(domain.Report, reportadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func defaultDeps() deps {
	return deps{
		newLauncher: func(logger zerolog.Logger) ports.BrowserLauncher {
			return browser.NewLauncher(logger)
		},
		newSecretStore: func() (ports.SecretStore, error) {
			dir, err := config.DefaultSecretsDir()
			if err != nil {
				return nil, err
			}
			return chainstore.NewPassFirstWithFileFallback(dir)
		},
		clock:          ports.SystemClock{},
		reportRenderer: reportadapter.Render,
		now:            time.Now,
	}
}

type app struct {
	deps       deps
	configPath string
	logLevel   string
	logFormat  string
	logger     zerolog.Logger

	cfg         *config.Config
	secretStore ports.SecretStore
}

func (a *app) setupLogger(stderr io.Writer) error {
	level, err := zerolog.ParseLevel(strings.ToLower(a.logLevel))
	if err != nil || level == zerolog.NoLevel {
		return fmt.Errorf("%w: invalid --log-level %q", domain.ErrConfiguration, a.logLevel)
	}

	var out io.Writer
	switch a.logFormat {
	case "json":
		out = stderr
	case "console", "":
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.DateTime, NoColor: true}
	default:
		return fmt.Errorf("%w: invalid --log-format %q", domain.ErrConfiguration, a.logFormat)
	}

	a.logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg, err := config.Load(viper.New(), a.configPath)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg

	if path := cfg.Path(); path != "" {
		a.logger.Debug().Str("path", path).Msg("loaded config file")
	}

	return cfg, nil
}

func (a *app) secrets() (ports.SecretStore, error) {
	if a.secretStore != nil {
		return a.secretStore, nil
	}

	store, err := a.deps.newSecretStore()
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}
	a.secretStore = store

	return store, nil
}

func (a *app) credentialSource(logger zerolog.Logger) (*config.CredentialSource, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	store, err := a.secrets()
	if err != nil {
		return nil, err
	}

	return cfg.CredentialSource(store, logger), nil
}

func (a *app) notifier(ctx context.Context, logger zerolog.Logger) (ports.Notifier, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	settings := cfg.Notify()
	if !settings.Configured() {
		return notify.Noop{Logger: logger, Reason: telegramSkipReason}, nil
	}

	store, err := a.secrets()
	if err != nil {
		return nil, err
	}
	token, err := config.ResolveSecret(ctx, store, settings.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot token: %w", err)
	}

	opts := []telegram.Option{telegram.WithClock(a.deps.now)}
	if settings.APIBase != "" {
		opts = append(opts, telegram.WithAPIBase(settings.APIBase))
	}
	if a.deps.httpClient != nil {
		opts = append(opts, telegram.WithHTTPClient(a.deps.httpClient))
	}

	return notify.NewMulti(telegram.NewNotifier(token, settings.ChatID, opts...)), nil
}

// batch wires one renewal run. Settings are read once per call.
func (a *app) batch(ctx context.Context, logger zerolog.Logger, opts ...application.BatchOption) (*application.BatchService, *config.CredentialSource, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	source, err := a.credentialSource(logger)
	if err != nil {
		return nil, nil, err
	}
	notifier, err := a.notifier(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	settings := cfg.Settings()
	factory := application.NewSessionFactory(settings, a.deps.newLauncher(logger), a.deps.clock, logger)
	service := application.NewBatchService(factory, notifier, a.deps.clock, logger, settings.Timing.AccountDelay, opts...)

	return service, source, nil
}
