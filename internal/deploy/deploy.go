// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tradewatch/tradewatch/internal/config"
	"github.com/tradewatch/tradewatch/internal/container"
	"github.com/tradewatch/tradewatch/internal/issue"

	"github.com/charmbracelet/log"
)

const (
	// DefaultContainerName is the reserved name of the service container.
	DefaultContainerName = "steam-trade-accepter"
	// DefaultImageTag is the tag built and started by Deploy.
	DefaultImageTag = "steam-trade-accepter:latest"
	// DefaultDockerfile is resolved relative to the build context.
	DefaultDockerfile = "Dockerfile"
	// DefaultTimezone is the container TZ unless CONTAINER_TZ overrides it.
	DefaultTimezone = "Europe/Berlin"
)

var (
	// ErrBuildFailed is returned when the image build fails; no run is attempted.
	ErrBuildFailed = errors.New("image build failed")
	// ErrRunFailed is returned when the container fails to start.
	ErrRunFailed = errors.New("container run failed")
	// ErrCleanupFailed is returned when an existing container cannot be removed.
	ErrCleanupFailed = errors.New("existing container cleanup failed")
)

type (
	// Options controls a single deployment.
	Options struct {
		// ContextDir is the image build context. Empty means the working directory.
		ContextDir string
		// Dockerfile is relative to ContextDir. Empty means DefaultDockerfile.
		Dockerfile string
		// ContainerName overrides DefaultContainerName.
		ContainerName string
		// ImageTag overrides DefaultImageTag.
		ImageTag string
		// NoCache disables the build cache.
		NoCache bool
		// BuildOutput receives build progress; nil discards it.
		BuildOutput io.Writer
	}

	// Result describes a completed deployment.
	Result struct {
		Engine      string
		ContainerID string
		Name        string
		Image       string
		// Replaced is true when a container with the same name was removed first.
		Replaced bool
	}

	// Manager runs the deploy sequence against a container engine.
	Manager struct {
		engine container.Engine
		logger *log.Logger
	}
)

// NewManager creates a Manager. A nil logger uses the package default.
func NewManager(engine container.Engine, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{engine: engine, logger: logger}
}

func (o Options) withDefaults() Options {
	if o.ContextDir == "" {
		o.ContextDir = "."
	}
	if o.Dockerfile == "" {
		o.Dockerfile = DefaultDockerfile
	}
	if o.ContainerName == "" {
		o.ContainerName = DefaultContainerName
	}
	if o.ImageTag == "" {
		o.ImageTag = DefaultImageTag
	}
	if o.BuildOutput == nil {
		o.BuildOutput = io.Discard
	}
	return o
}

// Deploy stops and removes any container named opts.ContainerName, builds the
// image and starts a new detached container with restart policy
// unless-stopped and TZ pinned to DefaultTimezone (or cfg.ContainerTimezone).
func (m *Manager) Deploy(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	result := &Result{
		Engine: m.engine.Name(),
		Name:   opts.ContainerName,
		Image:  opts.ImageTag,
	}

	replaced, err := m.removeExisting(ctx, opts.ContainerName)
	if err != nil {
		return result, err
	}
	result.Replaced = replaced

	if err := m.build(ctx, opts); err != nil {
		return result, err
	}

	env := cfg.ContainerEnv()
	env[config.EnvTimezone] = containerTimezone(cfg)

	m.logger.Info("Starting container", "name", opts.ContainerName, "image", opts.ImageTag)
	run, err := m.engine.Run(ctx, container.RunOptions{
		Name:          opts.ContainerName,
		Image:         opts.ImageTag,
		Env:           env,
		Detach:        true,
		RestartPolicy: container.RestartUnlessStopped,
	})
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrRunFailed, err)
	}
	result.ContainerID = run.ContainerID

	m.logger.Info("Container started", "name", opts.ContainerName, "id", shortID(run.ContainerID))
	return result, nil
}

// removeExisting stops and removes a container with the reserved name.
// A container that disappears in between counts as removed.
func (m *Manager) removeExisting(ctx context.Context, name string) (bool, error) {
	exists, err := m.engine.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrCleanupFailed, err)
	}
	if !exists {
		m.logger.Debug("No existing container", "name", name)
		return false, nil
	}

	m.logger.Info("Stopping existing container", "name", name)
	stopErr := m.engine.Stop(ctx, name)
	if stopErr != nil && !errors.Is(stopErr, container.ErrContainerNotFound) {
		m.logger.Warn("Stop failed, forcing removal", "name", name, "err", stopErr)
	}

	force := stopErr != nil && !errors.Is(stopErr, container.ErrContainerNotFound)
	if err := m.engine.Remove(ctx, name, force); err != nil && !errors.Is(err, container.ErrContainerNotFound) {
		return false, fmt.Errorf("%w: %w", ErrCleanupFailed, err)
	}
	return true, nil
}

func (m *Manager) build(ctx context.Context, opts Options) error {
	dockerfile := opts.Dockerfile
	if !filepath.IsAbs(dockerfile) {
		dockerfile = filepath.Join(opts.ContextDir, dockerfile)
	}
	if _, err := os.Stat(dockerfile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = issue.NewErrorContext().
				WithOperation("build container image").
				WithResource(dockerfile).
				WithSuggestion("Run deploy from the repository root").
				WithSuggestion("Or pass --context / --file to point at the Dockerfile").
				Wrap(err).
				BuildError()
		}
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	m.logger.Info("Building image", "tag", opts.ImageTag, "context", opts.ContextDir)
	err := m.engine.Build(ctx, container.BuildOptions{
		ContextDir: opts.ContextDir,
		Dockerfile: opts.Dockerfile,
		Tag:        opts.ImageTag,
		NoCache:    opts.NoCache,
		Stdout:     opts.BuildOutput,
		Stderr:     opts.BuildOutput,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	ok, err := m.engine.ImageExists(ctx, opts.ImageTag)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: image %s not found after build", ErrBuildFailed, opts.ImageTag)
	}
	return nil
}

func containerTimezone(cfg *config.Config) string {
	if cfg.ContainerTimezone != "" {
		return cfg.ContainerTimezone
	}
	return DefaultTimezone
}

// FollowUpCommands returns the commands printed after a successful deploy.
func FollowUpCommands(engine, name string) []string {
	return []string{
		engine + " logs -f " + name,
		engine + " stop " + name,
		engine + " rm " + name,
		engine + " ps",
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
