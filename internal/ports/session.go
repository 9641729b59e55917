package ports

import (
	"context"

	"github.com/bnema/xserver-renew/internal/domain"
)

type RenewalSession interface {
	Run(ctx context.Context) (success bool, message string)
	Close() error
}

type SessionFactory interface {
	NewSession(ctx context.Context, credential domain.Credential) (RenewalSession, error)
}

type CredentialSource interface {
	Credentials(ctx context.Context) ([]domain.Credential, error)
}

type Notifier interface {
	Notify(ctx context.Context, report domain.Report) error
}
