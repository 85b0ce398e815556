// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/tradewatch/tradewatch/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v10"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

//go:embed config_schema.cue
var configSchema string

// load merges the dotenv file and the environment, decodes, and validates.
func load(ctx context.Context, opts LoadOptions, logger *log.Logger) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	values := make(map[string]string)

	if !opts.SkipEnvFile {
		path := opts.EnvFile
		if path == "" {
			path = DefaultEnvFile
		}
		fileValues, err := readEnvFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("No env file found, using environment variables and defaults", "file", path)
		case err != nil:
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that every line has the form KEY=VALUE").
				WithSuggestion("Lines starting with # are comments").
				Wrap(err).
				BuildError()
		default:
			logger.Debug("Loaded env file", "file", path, "keys", len(fileValues))
			for k, v := range fileValues {
				values[k] = v
			}
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		values[k] = v
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: values}); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse configuration").
			WithSuggestion("CHECK_INTERVAL and ACCEPT_MAX_RETRIES must be whole numbers").
			WithSuggestion("RECONNECT_DELAY takes a duration such as 60s or 2m").
			Wrap(err).
			BuildError()
	}

	if strings.TrimSpace(cfg.EmailUsername) == "" || strings.TrimSpace(cfg.EmailPassword) == "" {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithSuggestion("Export EMAIL_USERNAME and EMAIL_PASSWORD").
			WithSuggestion("Or add them to the .env file").
			Wrap(ErrMissingCredentials).
			BuildError()
	}

	if err := validate(&cfg); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("CHECK_INTERVAL must be at least 1 second").
			WithSuggestion("ALLOWED_TRADERS must list at least one trader, e.g. /id/trader1").
			WithSuggestion("ACCEPT_MAX_RETRIES must be between 1 and 10").
			Wrap(err).
			BuildError()
	}

	return &cfg, nil
}

// readEnvFile parses a dotenv file with Viper and returns upper-cased keys.
// A missing file is reported as fs.ErrNotExist.
func readEnvFile(path string) (map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	values := make(map[string]string, len(v.AllKeys()))
	for _, key := range v.AllKeys() {
		values[strings.ToUpper(key)] = v.GetString(key)
	}
	return values, nil
}

// validate unifies the decoded config with #Config from config_schema.cue.
func validate(cfg *Config) error {
	cctx := cuecontext.New()

	schemaValue := cctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))

	userValue := cctx.Encode(cfg.schemaValue())
	if userValue.Err() != nil {
		return fmt.Errorf("failed to encode config: %w", userValue.Err())
	}

	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
