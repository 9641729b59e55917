package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
	"github.com/rs/zerolog"
)

// CredentialSource turns the accounts section into credentials, resolving
// secret:// references through the secret store.
type CredentialSource struct {
	accounts accountsSchema
	store    ports.SecretStore
	logger   zerolog.Logger
}

var _ ports.CredentialSource = (*CredentialSource)(nil)

func (c *Config) CredentialSource(store ports.SecretStore, logger zerolog.Logger) *CredentialSource {
	return &CredentialSource{accounts: c.schema.Accounts, store: store, logger: logger}
}

// Declared returns the configured credentials with secrets left unresolved.
// The list form and structured entries win over the single account pair.
func (s *CredentialSource) Declared() ([]domain.Credential, error) {
	accounts := s.accounts

	credentials := domain.ParseAccountList(accounts.List)
	if strings.TrimSpace(accounts.List) != "" && len(credentials) == 0 {
		s.logger.Warn().Msg("XSERVER_ACCOUNTS is set but contains no valid id:secret records")
	}
	for i, entry := range accounts.Entries {
		credential := domain.Credential{
			Identifier: strings.TrimSpace(entry.ID),
			Secret:     strings.TrimSpace(entry.Secret),
			ServerID:   strings.TrimSpace(entry.ServerID),
		}
		if credential.Identifier == "" || credential.Secret == "" {
			s.logger.Warn().Int("entry", i+1).Msg("skipping account entry without id or secret")
			continue
		}
		credentials = append(credentials, credential)
	}

	if len(credentials) == 0 {
		username := strings.TrimSpace(accounts.Username)
		password := strings.TrimSpace(accounts.Password)
		if username == "" || password == "" {
			return nil, fmt.Errorf("%w: no accounts configured, set XSERVER_ACCOUNTS or XSERVER_USERNAME and XSERVER_PASSWORD", domain.ErrConfiguration)
		}
		credentials = append(credentials, domain.Credential{Identifier: username, Secret: password})
	}

	defaultServerID := strings.TrimSpace(accounts.ServerID)
	for i := range credentials {
		if credentials[i].ServerID == "" {
			credentials[i].ServerID = defaultServerID
		}
	}

	return credentials, nil
}

func (s *CredentialSource) Credentials(ctx context.Context) ([]domain.Credential, error) {
	credentials, err := s.Declared()
	if err != nil {
		return nil, err
	}

	for i := range credentials {
		secret, err := ResolveSecret(ctx, s.store, credentials[i].Secret)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", domain.MaskIdentifier(credentials[i].Identifier), err)
		}
		credentials[i].Secret = secret
	}

	return credentials, nil
}

// ResolveSecret returns value unchanged unless it is a secret:// reference.
func ResolveSecret(ctx context.Context, store ports.SecretStore, value string) (string, error) {
	key, ok := domain.SecretRefKey(value)
	if !ok {
		return value, nil
	}
	if store == nil {
		return "", fmt.Errorf("%w: secret %q referenced but no secret store available", domain.ErrConfiguration, key)
	}

	secret, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: resolve secret %q: %w", domain.ErrConfiguration, key, err)
	}
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("%w: secret %q is empty", domain.ErrConfiguration, key)
	}

	return secret, nil
}
