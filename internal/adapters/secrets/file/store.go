package file

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
)

const (
	dirMode    = 0o700
	secretMode = 0o600
)

// Store backs secret://<key> references with one file per key below root.
// A key such as "accounts/alice" maps to root/accounts/alice.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// entry is a validated key and the file that holds it.
type entry struct {
	ref  string
	path string
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	e, err := s.locate(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(e.path), dirMode); err != nil {
		return fmt.Errorf("store %s: create directory: %w", e.ref, err)
	}
	if err := writeSecret(e.path, value); err != nil {
		return fmt.Errorf("store %s: %w", e.ref, err)
	}

	return nil
}

// Get trims one trailing newline so hand-edited files work.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	e, err := s.locate(ctx, key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(e.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("%s: no file at %s: %w", e.ref, e.path, domain.ErrSecretNotFound)
	case err != nil:
		return "", fmt.Errorf("read %s: %w", e.ref, err)
	}

	value := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(value, "\r"), nil
}

// Delete is a no-op for keys that were never stored.
func (s *Store) Delete(ctx context.Context, key string) error {
	e, err := s.locate(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", e.ref, err)
	}

	return nil
}

// locate rejects keys that are empty or escape root.
func (s *Store) locate(ctx context.Context, key string) (entry, error) {
	if err := ctx.Err(); err != nil {
		return entry{}, err
	}

	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return entry{}, fmt.Errorf("%w: secret reference has an empty key", domain.ErrConfiguration)
	}

	ref := domain.SecretRefScheme + trimmed
	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return entry{}, fmt.Errorf("%w: %s: key must stay inside the secrets directory", domain.ErrConfiguration, ref)
	}

	return entry{ref: ref, path: filepath.Join(s.root, cleaned)}, nil
}

// writeSecret replaces path atomically so a reader never sees half a password.
func writeSecret(path, value string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".xsr-secret-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(secretMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("restrict permissions: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return os.Rename(tmpPath, path)
}
