package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func newScheduleCmd(app *app) *cobra.Command {
	var expr string
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run renewals on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if expr == "" {
				cfg, err := app.config()
				if err != nil {
					return err
				}
				expr = cfg.Cron()
			}
			if expr == "" {
				return fmt.Errorf("%w: no schedule, pass --cron or set schedule.cron / XSR_CRON", domain.ErrConfiguration)
			}

			schedule, err := cronParser.Parse(expr)
			if err != nil {
				return fmt.Errorf("%w: invalid cron expression %q: %v", domain.ErrConfiguration, expr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSchedule(ctx, app, schedule, expr, runNow)
		},
	}

	cmd.Flags().StringVar(&expr, "cron", "", "5-field cron expression or descriptor such as @daily")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run once immediately before waiting for the schedule")

	return cmd
}

func runSchedule(ctx context.Context, app *app, schedule cron.Schedule, expr string, runNow bool) error {
	logger := app.logger.With().Str("cron", expr).Logger()
	cronLogger := zerologCronLogger{logger: logger}

	job := cron.NewChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	).Then(cron.FuncJob(func() {
		scheduledRun(ctx, app, logger)
	}))

	if runNow {
		job.Run()
	}

	scheduler := cron.New(cron.WithParser(cronParser), cron.WithLogger(cronLogger), cron.WithLocation(app.deps.now().Location()))
	scheduler.Schedule(schedule, job)
	scheduler.Start()

	logger.Info().Time("next", schedule.Next(app.deps.now())).Msg("scheduler started")
	<-ctx.Done()

	<-scheduler.Stop().Done()
	logger.Info().Msg("scheduler stopped")

	return nil
}

func scheduledRun(ctx context.Context, app *app, logger zerolog.Logger) {
	if ctx.Err() != nil {
		return
	}

	report, err := runRenewal(ctx, app, logger, nil)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled renewal aborted")
		return
	}

	event := logger.Info()
	if err := renewalResult(report); err != nil {
		event = logger.Warn().Err(err)
	}
	event.
		Str("run_id", report.RunID).
		Int("succeeded", report.SuccessCount()).
		Int("total", len(report.Outcomes)).
		Msg("scheduled renewal finished")
}

// zerologCronLogger satisfies cron.Logger.
type zerologCronLogger struct {
	logger zerolog.Logger
}

func (l zerologCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l zerologCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if errors.Is(err, context.Canceled) {
		return
	}
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
