package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	filestore "github.com/bnema/xserver-renew/internal/adapters/secrets/file"
	passstore "github.com/bnema/xserver-renew/internal/adapters/secrets/pass"
	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

type backend struct {
	name  string
	store ports.SecretStore
}

// Store resolves secret://<key> references against an ordered list of
// backends. Reads and writes stop at the first backend that succeeds.
type Store struct {
	backends []backend
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(primary ports.SecretStore, fallback ports.SecretStore) (*Store, error) {
	return newNamedStore(backend{name: "primary", store: primary}, backend{name: "fallback", store: fallback})
}

// NewPassFirstWithFileFallback uses pass(1) and falls back to files under fileRoot.
func NewPassFirstWithFileFallback(fileRoot string) (*Store, error) {
	return newNamedStore(
		backend{name: "pass", store: passstore.NewStore()},
		backend{name: "file", store: filestore.NewStore(fileRoot)},
	)
}

func newNamedStore(primary, fallback backend) (*Store, error) {
	if primary.store == nil {
		return nil, errNilPrimaryStore
	}
	if fallback.store == nil {
		return nil, errNilFallbackStore
	}

	return &Store{backends: []backend{primary, fallback}}, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var failures backendErrors
	for _, b := range s.backends {
		err := b.store.Put(ctx, key, value)
		if err == nil || isContextError(err) {
			return err
		}
		failures = append(failures, backendError{name: b.name, err: err})
	}

	return failures.wrap("store", key)
}

// Get reports ErrSecretNotFound only when no backend holds the key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var failures backendErrors
	for _, b := range s.backends {
		value, err := b.store.Get(ctx, key)
		if err == nil || isContextError(err) {
			return value, err
		}
		failures = append(failures, backendError{name: b.name, err: err})
	}

	if failures.allNotFound() {
		return "", fmt.Errorf("%s%s: %w", domain.SecretRefScheme, key, domain.ErrSecretNotFound)
	}

	return "", failures.wrap("resolve", key)
}

// Delete removes the key from every backend since Put may have used either.
func (s *Store) Delete(ctx context.Context, key string) error {
	var failures backendErrors
	for _, b := range s.backends {
		err := b.store.Delete(ctx, key)
		if isContextError(err) {
			return err
		}
		if err != nil {
			failures = append(failures, backendError{name: b.name, err: err})
		}
	}

	if len(failures) < len(s.backends) {
		return nil
	}

	return failures.wrap("remove", key)
}

type backendError struct {
	name string
	err  error
}

type backendErrors []backendError

func (f backendErrors) allNotFound() bool {
	for _, failure := range f {
		if !errors.Is(failure.err, domain.ErrSecretNotFound) {
			return false
		}
	}

	return len(f) > 0
}

// wrap keeps every backend error reachable through errors.Is.
func (f backendErrors) wrap(op, key string) error {
	parts := make([]string, 0, len(f))
	errs := make([]error, 0, len(f))
	for _, failure := range f {
		parts = append(parts, failure.name+": "+failure.err.Error())
		errs = append(errs, failure.err)
	}

	return &chainError{
		msg:  fmt.Sprintf("%s %s%s: %s", op, domain.SecretRefScheme, key, strings.Join(parts, "; ")),
		errs: errs,
	}
}

type chainError struct {
	msg  string
	errs []error
}

func (e *chainError) Error() string   { return e.msg }
func (e *chainError) Unwrap() []error { return e.errs }

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
