package notify

import (
	"context"
	"errors"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
	"github.com/rs/zerolog"
)

// Multi sends the report to every notifier, even when one fails.
type Multi struct {
	notifiers []ports.Notifier
}

func NewMulti(notifiers ...ports.Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, report domain.Report) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Noop stands in when no channel is configured.
type Noop struct {
	Logger zerolog.Logger
	Reason string
}

func (n Noop) Notify(context.Context, domain.Report) error {
	if n.Reason != "" {
		n.Logger.Info().Msg(n.Reason)
	}

	return nil
}
