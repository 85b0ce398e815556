// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DockerEngine implements the Engine interface using Docker CLI.
// It embeds BaseCLIEngine for common CLI operations.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine creates a new Docker engine.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	path, _ := exec.LookPath("docker")
	allOpts := append([]BaseCLIEngineOption{WithName(string(EngineTypeDocker))}, opts...)
	return &DockerEngine{
		BaseCLIEngine: NewBaseCLIEngine(path, allOpts...),
	}
}

// Name returns the engine name.
func (e *DockerEngine) Name() string {
	return string(EngineTypeDocker)
}

// Available checks if Docker is available and its daemon answers.
func (e *DockerEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	cmd := e.CreateCommand(context.Background(), "version", "--format", "{{.Server.Version}}")
	return cmd.Run() == nil
}

// Version returns the Docker server version.
func (e *DockerEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get docker version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Exists reports whether a container with the given name exists, running or stopped.
func (e *DockerEngine) Exists(ctx context.Context, name string) (bool, error) {
	_, stderr, err := e.runCapturingStderr(ctx, "container", "inspect", "--format", "{{.Id}}", name)
	if err == nil {
		return true, nil
	}
	if IsNotFoundOutput(stderr) {
		return false, nil
	}
	return false, fmt.Errorf("failed to inspect container %s: %w", name, err)
}

// ImageExists checks if an image exists. Only a "no such image" answer
// counts as missing; any other failure is returned.
func (e *DockerEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	_, stderr, err := e.runCapturingStderr(ctx, "image", "inspect", "--format", "{{.Id}}", image)
	if err == nil {
		return true, nil
	}
	if IsImageNotFoundOutput(stderr) {
		return false, nil
	}
	return false, classifyImageError(image, stderr, err)
}
