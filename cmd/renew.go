package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	reportadapter "github.com/bnema/xserver-renew/internal/adapters/render/report"
	"github.com/bnema/xserver-renew/internal/application"
	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errRenewalFailed = errors.New("renewal failed")

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func newRenewCmd(app *app) *cobra.Command {
	var output string
	var interactive bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "renew",
		Short: "Renew the free plan of every configured account",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			switch output {
			case outputText, outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("%w: unsupported --output %q (text, json or yaml)", domain.ErrConfiguration, output)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := app.logger
			if interactive {
				logger = logger.Level(zerolog.ErrorLevel)
			}

			var report domain.Report
			var err error
			if interactive {
				report, err = runRenewSpinner(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, progress func(done, total int)) (domain.Report, error) {
					return runRenewal(ctx, app, logger, progress)
				})
			} else {
				report, err = runRenewal(cmd.Context(), app, logger, nil)
			}
			if err != nil {
				return err
			}

			if err := writeReport(cmd, app, report, output, verbose); err != nil {
				return err
			}

			return renewalResult(report)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Show a spinner while running and only log errors")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include run id and timing in text output")

	return cmd
}

func runRenewal(ctx context.Context, app *app, logger zerolog.Logger, progress func(done, total int)) (domain.Report, error) {
	var opts []application.BatchOption
	if progress != nil {
		opts = append(opts, application.WithProgress(func(done, total int, _ domain.Outcome) {
			progress(done, total)
		}))
	}

	service, source, err := app.batch(ctx, logger, opts...)
	if err != nil {
		return domain.Report{}, err
	}

	return service.Run(ctx, source)
}

func renewalResult(report domain.Report) error {
	if report.AllSucceeded() {
		return nil
	}

	return fmt.Errorf("%w: %d of %d accounts failed", errRenewalFailed, len(report.Outcomes)-report.SuccessCount(), len(report.Outcomes))
}

func writeReport(cmd *cobra.Command, app *app, report domain.Report, output string, verbose bool) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case outputYAML:
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	}

	rendered, err := app.deps.reportRenderer(report, reportadapter.RenderOptions{Verbose: verbose})
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
