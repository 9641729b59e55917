package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bnema/xserver-renew/internal/application"
	"github.com/bnema/xserver-renew/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "xsr"
	configType = "toml"
	appDirName = "xsr"
)

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"accounts.list":      "XSERVER_ACCOUNTS",
	"accounts.username":  "XSERVER_USERNAME",
	"accounts.password":  "XSERVER_PASSWORD",
	"accounts.server_id": "XSERVER_SERVER_ID",
	"telegram.bot_token": "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":   "TELEGRAM_CHAT_ID",
	"telegram.api_base":  "TELEGRAM_API_BASE",
	"browser.headless":   "XSERVER_HEADLESS",
	"browser.exec_path":  "XSR_CHROME_PATH",
	"artifacts.dir":      "XSR_ARTIFACT_DIR",
	"schedule.cron":      "XSR_CRON",
}

type NotifySettings struct {
	BotToken string
	ChatID   string
	APIBase  string
}

func (n NotifySettings) Configured() bool {
	return n.BotToken != "" && n.ChatID != ""
}

// Config is the effective configuration: defaults, then the TOML file, then
// the environment.
type Config struct {
	schema   fileSchema
	settings application.Settings
	path     string
}

// Load reads configuration through cfg. An explicit path must exist; without
// one the default location is optional.
func Load(cfg *viper.Viper, explicitPath string) (*Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	cfg.SetConfigType(configType)

	defaults, err := toml.Marshal(defaultSchema())
	if err != nil {
		return nil, fmt.Errorf("encode default config: %w", err)
	}
	if err := cfg.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}

	path, err := mergeFile(cfg, explicitPath)
	if err != nil {
		return nil, err
	}

	for key, env := range envBindings {
		if err := cfg.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var schema fileSchema
	if err := cfg.Unmarshal(&schema); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", domain.ErrConfiguration, err)
	}
	schema.applyDefaults()
	if err := schema.validateVersion(); err != nil {
		return nil, err
	}

	settings, err := toSettings(schema)
	if err != nil {
		return nil, err
	}

	return &Config{schema: schema, settings: settings, path: path}, nil
}

func mergeFile(cfg *viper.Viper, explicitPath string) (string, error) {
	if explicitPath != "" {
		cfg.SetConfigFile(explicitPath)
		if err := cfg.MergeInConfig(); err != nil {
			return "", fmt.Errorf("%w: read config file %s: %v", domain.ErrConfiguration, explicitPath, err)
		}
		return explicitPath, nil
	}

	dir, err := DefaultDir()
	if err != nil {
		return "", nil
	}
	cfg.SetConfigName(configName)
	cfg.AddConfigPath(dir)

	if err := cfg.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: read config file: %v", domain.ErrConfiguration, err)
	}

	return cfg.ConfigFileUsed(), nil
}

// DefaultDir is $XDG_CONFIG_HOME/xsr, falling back to ~/.config/xsr.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}

	return filepath.Join(base, appDirName), nil
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, configName+"."+configType), nil
}

// DefaultSecretsDir holds file-backed secrets when pass is unavailable.
func DefaultSecretsDir() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "secrets"), nil
}

func (c *Config) Settings() application.Settings {
	return c.settings
}

func (c *Config) Notify() NotifySettings {
	return NotifySettings{
		BotToken: c.schema.Telegram.BotToken,
		ChatID:   c.schema.Telegram.ChatID,
		APIBase:  c.schema.Telegram.APIBase,
	}
}

func (c *Config) Cron() string {
	return c.schema.Schedule.Cron
}

// Path is the config file that was read, or "" when none was found.
func (c *Config) Path() string {
	return c.path
}
