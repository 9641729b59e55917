package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(defaultDeps())
}

func newRootCmdWith(d deps) *cobra.Command {
	app := &app{deps: d}

	rootCmd := &cobra.Command{
		Use:           "xsr",
		Short:         "Xserver renewal (xsr): extend free plan servers from the terminal",
		Long:          "xsr signs in to the hosting panel with a headless browser, walks the free plan extension flow for every configured account, and reports the results to Telegram.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setupLogger(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/xsr/xsr.toml)")
	flags.StringVar(&app.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&app.logFormat, "log-format", "console", "Log format: console or json")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRenewCmd(app),
		newAccountsCmd(app),
		newConfigCmd(app),
		newSecretCmd(app),
		newScheduleCmd(app),
	)

	return rootCmd
}
