// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"

	// RestartUnlessStopped restarts the container unless it was explicitly stopped.
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

var (
	// ErrNoEngineAvailable is the sentinel wrapped by EngineNotAvailableError.
	ErrNoEngineAvailable = errors.New("no container engine available")

	// ErrContainerNotFound is returned by Stop and Remove when the engine
	// reports that no container with the given name exists.
	ErrContainerNotFound = errors.New("container not found")
)

type (
	// Engine defines the container operations used by the deploy workflow.
	Engine interface {
		// Name returns the engine name (docker or podman)
		Name() string
		// Available checks if the engine is available on the system
		Available() bool
		// Version returns the engine version
		Version(ctx context.Context) (string, error)

		// Build builds an image from a Dockerfile
		Build(ctx context.Context, opts BuildOptions) error
		// Run starts a container and returns its ID when detached
		Run(ctx context.Context, opts RunOptions) (*RunResult, error)
		// Exists reports whether a container with the name exists, running or stopped
		Exists(ctx context.Context, name string) (bool, error)
		// Stop stops a running container
		Stop(ctx context.Context, name string) error
		// Remove removes a container
		Remove(ctx context.Context, name string, force bool) error
		// ImageExists checks if an image exists
		ImageExists(ctx context.Context, image string) (bool, error)
	}

	// EngineType identifies the container engine type.
	EngineType string

	// RestartPolicy is the value passed to --restart.
	RestartPolicy string

	// BuildOptions contains options for building an image.
	BuildOptions struct {
		// ContextDir is the build context directory
		ContextDir string
		// Dockerfile is the path to the Dockerfile (relative to ContextDir)
		Dockerfile string
		// Tag is the image tag
		Tag string
		// BuildArgs are build-time variables
		BuildArgs map[string]string
		// NoCache disables the build cache
		NoCache bool
		// Stdout is where to write build output
		Stdout io.Writer
		// Stderr is where to write build errors
		Stderr io.Writer
	}

	// RunOptions contains options for starting a container.
	RunOptions struct {
		// Name is the container name
		Name string
		// Image is the image to run
		Image string
		// Env contains environment variables
		Env map[string]string
		// Detach runs the container in the background
		Detach bool
		// RestartPolicy is passed to --restart when set
		RestartPolicy RestartPolicy
		// Stderr is where to write standard error
		Stderr io.Writer
	}

	// RunResult contains the result of starting a container.
	RunResult struct {
		// ContainerID is the container ID printed by a detached run
		ContainerID string
		// ExitCode is the exit code of the engine CLI
		ExitCode int
	}

	// EngineNotAvailableError is returned when a container engine is not available.
	EngineNotAvailableError struct {
		Engine string
		Reason string
	}
)

func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrNoEngineAvailable so callers can use errors.Is.
func (e *EngineNotAvailableError) Unwrap() error { return ErrNoEngineAvailable }

// ParseEngineType maps a user-supplied name to an EngineType.
func ParseEngineType(name string) (EngineType, error) {
	switch EngineType(name) {
	case EngineTypeDocker, EngineTypePodman:
		return EngineType(name), nil
	default:
		return "", fmt.Errorf("unknown container engine type: %s", name)
	}
}

// NewEngine creates a new container engine based on preference.
func NewEngine(preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypePodman:
		engine := NewPodmanEngine()
		if engine.Available() {
			return engine, nil
		}
		// Fall back to Docker
		dockerEngine := NewDockerEngine()
		if dockerEngine.Available() {
			return dockerEngine, nil
		}
		return nil, &EngineNotAvailableError{
			Engine: "podman",
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	case EngineTypeDocker:
		engine := NewDockerEngine()
		if engine.Available() {
			return engine, nil
		}
		// Fall back to Podman
		podmanEngine := NewPodmanEngine()
		if podmanEngine.Available() {
			return podmanEngine, nil
		}
		return nil, &EngineNotAvailableError{
			Engine: "docker",
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine tries to find an available container engine.
// Docker is tried first since the service is normally deployed next to it.
func AutoDetectEngine() (Engine, error) {
	docker := NewDockerEngine()
	if docker.Available() {
		return docker, nil
	}

	podman := NewPodmanEngine()
	if podman.Available() {
		return podman, nil
	}

	return nil, &EngineNotAvailableError{
		Engine: "any",
		Reason: "no container engine (docker or podman) is available on this system",
	}
}
