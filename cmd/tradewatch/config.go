// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tradewatch/tradewatch/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect tradewatch configuration",
		Long: `Inspect tradewatch configuration.

Configuration comes from an optional .env file (see --env-file) overlaid
by the process environment. EMAIL_USERNAME and EMAIL_PASSWORD are required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration with the password masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), app.loadOptions())
			if err != nil {
				return app.renderFailure(err, configIssue(err))
			}
			showConfig(app, cfg.Redacted())
			return nil
		},
	})

	return cfgCmd
}

func showConfig(app *App, cfg config.Config) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Env file"), app.envFile)
	fmt.Fprintln(w)

	rows := []struct {
		key, value string
	}{
		{config.EnvEmailServer, cfg.EmailServer},
		{config.EnvEmailUsername, cfg.EmailUsername},
		{config.EnvEmailPassword, cfg.EmailPassword},
		{config.EnvMailbox, cfg.Mailbox},
		{config.EnvSteamSender, cfg.SteamSender},
		{config.EnvCheckInterval, strconv.Itoa(cfg.CheckInterval)},
		{config.EnvReconnectDelay, cfg.ReconnectDelay.String()},
		{config.EnvAcceptMaxRetries, strconv.Itoa(cfg.AcceptMaxRetries)},
		{config.EnvLogLevel, cfg.LogLevel},
		{config.EnvMetricsAddr, cfg.MetricsAddr},
		{config.EnvInsecureSkipVerify, strconv.FormatBool(cfg.InsecureSkipVerify)},
		{config.EnvContainerTimezone, cfg.ContainerTimezone},
	}
	for _, r := range rows {
		value := valueStyle.Render(r.value)
		if r.value == "" {
			value = SubtitleStyle.Render("(not set)")
		}
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(r.key), value)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render(config.EnvAllowedTraders))
	for _, trader := range cfg.Traders() {
		fmt.Fprintf(w, "  - %s\n", valueStyle.Render(trader))
	}
}
