package domain

import (
	"fmt"
	"strings"
)

type Credential struct {
	Identifier string
	Secret     string
	// ServerID is the server/customer identifier some login forms require
	// next to the login id.
	ServerID string
}

func (c Credential) Validate(requireServerID bool) error {
	if strings.TrimSpace(c.Identifier) == "" {
		return fmt.Errorf("%w: identifier is required", ErrConfiguration)
	}
	if strings.TrimSpace(c.Secret) == "" {
		return fmt.Errorf("%w: secret is required for %s", ErrConfiguration, MaskIdentifier(c.Identifier))
	}
	if requireServerID && strings.TrimSpace(c.ServerID) == "" {
		return fmt.Errorf("%w: server id is required for %s", ErrConfiguration, MaskIdentifier(c.Identifier))
	}

	return nil
}

// SecretRefScheme prefixes secrets stored outside the configuration.
const SecretRefScheme = "secret://"

// SecretRefKey returns the store key of a "secret://<key>" value.
func SecretRefKey(value string) (string, bool) {
	key, found := strings.CutPrefix(strings.TrimSpace(value), SecretRefScheme)
	if !found || strings.TrimSpace(key) == "" {
		return "", false
	}

	return strings.TrimSpace(key), true
}

// ParseAccountList parses "id:secret[:server-id]" records separated by commas
// or newlines. Records missing an id or secret are dropped. With three or more
// segments the last one is the server id.
func ParseAccountList(raw string) []Credential {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	credentials := make([]Credential, 0, len(fields))
	for _, field := range fields {
		credential, ok := parseAccountRecord(field)
		if !ok {
			continue
		}
		credentials = append(credentials, credential)
	}

	return credentials
}

func parseAccountRecord(record string) (Credential, bool) {
	record = strings.TrimSpace(record)
	id, rest, found := strings.Cut(record, ":")
	if !found {
		return Credential{}, false
	}

	credential := Credential{Identifier: strings.TrimSpace(id), Secret: strings.TrimSpace(rest)}
	offset := 0
	if strings.HasPrefix(strings.TrimSpace(rest), SecretRefScheme) {
		offset = strings.Index(rest, SecretRefScheme) + len(SecretRefScheme)
	}
	if idx := strings.LastIndex(rest[offset:], ":"); idx >= 0 {
		idx += offset
		credential.Secret = strings.TrimSpace(rest[:idx])
		credential.ServerID = strings.TrimSpace(rest[idx+1:])
	}

	if credential.Identifier == "" || credential.Secret == "" {
		return Credential{}, false
	}

	return credential, true
}
