// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/tradewatch/tradewatch/internal/config"
	"github.com/tradewatch/tradewatch/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tradewatch",
		Short: "Accept Steam trade offers from trusted traders",
		Long: TitleStyle.Render("tradewatch") + SubtitleStyle.Render(" - Accept Steam trade offers from trusted traders") + `

tradewatch watches an IMAP inbox for Steam trade offer emails and confirms
offers from traders on the allow-list. It ships as a container image.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Put EMAIL_USERNAME and EMAIL_PASSWORD in a .env file
  2. List trusted traders in ALLOWED_TRADERS (e.g. /id/trader1,/id/trader2)
  3. Deploy with: tradewatch deploy

` + SubtitleStyle.Render("Examples:") + `
  tradewatch deploy          Build the image and (re)start the container
  tradewatch run             Run the poller in the foreground
  tradewatch run --once      Check the inbox once and exit
  tradewatch config show     Show the resolved configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&app.envFile, "env-file", config.DefaultEnvFile, "dotenv file read before the process environment")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newDeployCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// shutdownSignals cancel the command context. SIGTERM is what `docker stop`
// sends to the container entry point.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(shutdownSignals...),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// errorHandler skips errors the commands already rendered.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Rendered {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderFailure prints a styled error line and, when id is set, the
// matching issue help, then returns an ExitError with code 1.
func (a *App) renderFailure(err error, id issue.Id) error {
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.verbose))
	if id != 0 {
		if iss := issue.Get(id); iss != nil {
			if rendered, rerr := iss.Render("dark"); rerr == nil {
				fmt.Fprint(a.stderr, rendered)
			}
		}
	}
	return &ExitError{Code: 1, Err: err, Rendered: true}
}

// configIssue maps configuration errors to their issue entry.
func configIssue(err error) issue.Id {
	if errors.Is(err, config.ErrMissingCredentials) {
		return issue.CredentialsMissingId
	}
	return issue.ConfigLoadFailedId
}
