// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"

	"github.com/charmbracelet/log"
)

// DefaultEnvFile is the dotenv file read when LoadOptions.EnvFile is empty.
const DefaultEnvFile = ".env"

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// EnvFile is the dotenv file to read. Empty means DefaultEnvFile.
	EnvFile string
	// SkipEnvFile disables reading any dotenv file.
	SkipEnvFile bool
	// Environ overrides the process environment ("KEY=VALUE" entries).
	// Nil means os.Environ().
	Environ []string
}

// Provider loads configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type envProvider struct {
	logger *log.Logger
}

// NewProvider creates a configuration provider. Warnings (such as a missing
// dotenv file) are written to logger; a nil logger uses the package default.
func NewProvider(logger *log.Logger) Provider {
	if logger == nil {
		logger = log.Default()
	}
	return &envProvider{logger: logger}
}

// Load reads configuration from the requested sources.
func (p *envProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return load(ctx, opts, p.logger)
}
