// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/tradewatch/tradewatch/internal/config"
	"github.com/tradewatch/tradewatch/internal/container"
	"github.com/tradewatch/tradewatch/internal/mailbox"
)

type (
	// EngineResolver returns the container engine for a --engine value.
	// An empty name or "auto" detects the engine.
	EngineResolver func(name string) (container.Engine, error)

	// DialerFactory builds the mailbox dialer used by the run command.
	DialerFactory func(cfg *config.Config, logger *log.Logger) mailbox.Dialer

	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference.
	App struct {
		Config    config.Provider
		Engines   EngineResolver
		NewDialer DialerFactory
		stdout    io.Writer
		stderr    io.Writer

		envFile string
		verbose bool
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config    config.Provider
		Engines   EngineResolver
		NewDialer DialerFactory
		Stdout    io.Writer
		Stderr    io.Writer
	}
)

// NewApp creates an App from deps, filling production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:    deps.Config,
		Engines:   deps.Engines,
		NewDialer: deps.NewDialer,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.Config == nil {
		app.Config = config.NewProvider(app.logger("config", log.WarnLevel))
	}
	if app.Engines == nil {
		app.Engines = resolveEngine
	}
	if app.NewDialer == nil {
		app.NewDialer = imapDialer
	}
	return app
}

// logger returns a component logger writing to stderr.
func (a *App) logger(prefix string, level log.Level) *log.Logger {
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportTimestamp: true,
	})
}

// levelFor resolves the effective log level: --verbose wins over LOG_LEVEL.
func (a *App) levelFor(cfg *config.Config) log.Level {
	if a.verbose {
		return log.DebugLevel
	}
	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{EnvFile: a.envFile}
}

func resolveEngine(name string) (container.Engine, error) {
	if name == "" || name == "auto" {
		return container.AutoDetectEngine()
	}
	engineType, err := container.ParseEngineType(name)
	if err != nil {
		return nil, err
	}
	return container.NewEngine(engineType)
}

func imapDialer(cfg *config.Config, logger *log.Logger) mailbox.Dialer {
	return mailbox.NewDialer(mailbox.Options{
		Server:             cfg.EmailServer,
		Username:           cfg.EmailUsername,
		Password:           cfg.EmailPassword,
		Mailbox:            cfg.Mailbox,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Logger:             logger,
	})
}
