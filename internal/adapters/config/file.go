package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/xserver-renew/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	configFileMode  = 0o600
	configDirMode   = 0o700
	tempFilePattern = ".xsr-*.toml.tmp"
	maskedValue     = "********"
)

var ErrConfigExists = errors.New("config file already exists")

// MarshalEffective renders the effective configuration as TOML. Inline
// secrets are masked; secret:// references are shown as-is.
func (c *Config) MarshalEffective() ([]byte, error) {
	view := c.schema
	view.Accounts.Password = maskSecret(view.Accounts.Password)
	view.Telegram.BotToken = maskSecret(view.Telegram.BotToken)

	if view.Accounts.List != "" {
		masked := ""
		for i, credential := range domain.ParseAccountList(view.Accounts.List) {
			if i > 0 {
				masked += ","
			}
			masked += credential.Identifier + ":" + maskSecret(credential.Secret)
			if credential.ServerID != "" {
				masked += ":" + credential.ServerID
			}
		}
		view.Accounts.List = masked
	}

	entries := make([]accountSchema, len(view.Accounts.Entries))
	for i, entry := range view.Accounts.Entries {
		entry.Secret = maskSecret(entry.Secret)
		entries[i] = entry
	}
	view.Accounts.Entries = entries

	data, err := toml.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	return data, nil
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if _, ok := domain.SecretRefKey(value); ok {
		return value
	}

	return maskedValue
}

// WriteDefault writes the default configuration to path atomically.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	data, err := toml.Marshal(defaultSchema())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}

	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	cleanup = false

	return nil
}
