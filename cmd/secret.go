package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/spf13/cobra"
)

func newSecretCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secrets referenced as secret://<key>",
	}

	cmd.AddCommand(
		newSecretSetCmd(app),
		newSecretRmCmd(app),
	)

	return cmd
}

func newSecretSetCmd(app *app) *cobra.Command {
	var key string
	var value string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key = normalizeSecretKey(key)
			if key == "" {
				return fmt.Errorf("%w: --key must not be empty", domain.ErrConfiguration)
			}
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("%w: --value must not be empty", domain.ErrConfiguration)
			}

			store, err := app.secrets()
			if err != nil {
				return err
			}
			if err := store.Put(cmd.Context(), key, value); err != nil {
				return fmt.Errorf("store secret: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %s%s\n", domain.SecretRefScheme, key)
			return err
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Secret key")
	cmd.Flags().StringVar(&value, "value", "", "Secret value")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newSecretRmCmd(app *app) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Remove a secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key = normalizeSecretKey(key)
			if key == "" {
				return fmt.Errorf("%w: --key must not be empty", domain.ErrConfiguration)
			}

			store, err := app.secrets()
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), key); err != nil {
				return fmt.Errorf("remove secret: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s%s\n", domain.SecretRefScheme, key)
			return err
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Secret key")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

// normalizeSecretKey accepts both "key" and "secret://key".
func normalizeSecretKey(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), domain.SecretRefScheme))
}
