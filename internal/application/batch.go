package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Progress is reported after each account finishes.
type Progress func(done, total int, outcome domain.Outcome)

type BatchService struct {
	factory      ports.SessionFactory
	notifier     ports.Notifier
	clock        ports.Clock
	logger       zerolog.Logger
	accountDelay time.Duration
	newRunID     func() string
	progress     Progress
}

type BatchOption func(*BatchService)

func WithProgress(progress Progress) BatchOption {
	return func(s *BatchService) {
		s.progress = progress
	}
}

func WithRunID(newRunID func() string) BatchOption {
	return func(s *BatchService) {
		s.newRunID = newRunID
	}
}

func NewBatchService(factory ports.SessionFactory, notifier ports.Notifier, clock ports.Clock, logger zerolog.Logger, accountDelay time.Duration, opts ...BatchOption) *BatchService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	s := &BatchService{
		factory:      factory,
		notifier:     notifier,
		clock:        clock,
		logger:       logger,
		accountDelay: accountDelay,
		newRunID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run renews every account in order and notifies once with the full report.
// Credential errors abort before any browser is started.
func (s *BatchService) Run(ctx context.Context, source ports.CredentialSource) (domain.Report, error) {
	credentials, err := source.Credentials(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			return domain.Report{}, fmt.Errorf("load credentials: %w", err)
		}

		return domain.Report{}, fmt.Errorf("%w: load credentials: %w", domain.ErrConfiguration, err)
	}
	if len(credentials) == 0 {
		return domain.Report{}, fmt.Errorf("%w: no accounts configured", domain.ErrConfiguration)
	}

	report := domain.Report{
		RunID:     s.newRunID(),
		StartedAt: s.clock.Now(),
		Outcomes:  make([]domain.Outcome, 0, len(credentials)),
	}
	logger := s.logger.With().Str("run_id", report.RunID).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Int("accounts", len(credentials)).Msg("starting renewal batch")

	for i, credential := range credentials {
		if i > 0 && s.accountDelay > 0 {
			logger.Debug().Dur("delay", s.accountDelay).Msg("waiting before next account")
			if err := s.clock.Sleep(ctx, s.accountDelay); err != nil {
				logger.Warn().Err(err).Msg("inter-account delay interrupted")
			}
		}

		logger.Info().
			Str("account", domain.MaskIdentifier(credential.Identifier)).
			Msgf("processing %d/%d", i+1, len(credentials))

		accountLogger := logger.With().Str("account", domain.MaskIdentifier(credential.Identifier)).Logger()
		outcome := s.runAccount(ctx, accountLogger, credential)
		report.Outcomes = append(report.Outcomes, outcome)

		if s.progress != nil {
			s.progress(i+1, len(credentials), outcome)
		}
	}

	report.FinishedAt = s.clock.Now()

	logger.Info().
		Int("succeeded", report.SuccessCount()).
		Int("total", len(report.Outcomes)).
		Msg("renewal batch finished")

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, report); err != nil {
			logger.Error().Err(err).Msg("send notification")
		}
	}

	return report, nil
}

func (s *BatchService) runAccount(ctx context.Context, logger zerolog.Logger, credential domain.Credential) (outcome domain.Outcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error().Interface("panic", recovered).Msg("account run panicked")
			outcome = domain.NewOutcome(credential.Identifier, false, fmt.Sprintf("unexpected error: %v", recovered))
		}
	}()

	if err := ctx.Err(); err != nil {
		return domain.NewOutcome(credential.Identifier, false, fmt.Sprintf("skipped: %v", err))
	}

	session, err := s.factory.NewSession(ctx, credential)
	if err != nil {
		return domain.NewOutcome(credential.Identifier, false, err.Error())
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("close session")
		}
	}()

	success, message := session.Run(ctx)
	return domain.NewOutcome(credential.Identifier, success, message)
}
