package cmd

import (
	"fmt"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountsCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List configured accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := app.credentialSource(app.logger)
			if err != nil {
				return err
			}

			credentials, err := source.Declared()
			if err != nil {
				return err
			}

			for _, credential := range credentials {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n",
					domain.MaskIdentifier(credential.Identifier),
					serverLabel(credential.ServerID),
					secretLabel(credential.Secret),
				)
			}

			return nil
		},
	}
}

func serverLabel(serverID string) string {
	if serverID == "" {
		return "server:-"
	}

	return "server:" + serverID
}

func secretLabel(secret string) string {
	if key, ok := domain.SecretRefKey(secret); ok {
		return "secret:" + domain.SecretRefScheme + key
	}

	return "secret:inline"
}
