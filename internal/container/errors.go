// SPDX-License-Identifier: MPL-2.0

package container

import (
	"fmt"
	"strings"
)

// notFoundMarkers are the stderr fragments Docker and Podman print when a
// container name does not resolve.
var notFoundMarkers = []string{
	"no such container",
	"no container with name or id",
	"no such object",
}

// IsNotFoundOutput reports whether engine stderr says the container is missing.
func IsNotFoundOutput(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range notFoundMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsImageNotFoundOutput reports whether engine stderr says the image is missing.
func IsImageNotFoundOutput(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "no such image")
}

func classifyImageError(image, stderr string, cause error) error {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("failed to inspect image %s: %w: %s", image, cause, msg)
	}
	return fmt.Errorf("failed to inspect image %s: %w", image, cause)
}

// classifyContainerError maps a failed stop/rm to ErrContainerNotFound when
// the engine output says so, keeping the original error otherwise.
func classifyContainerError(name, stderr string, cause error) error {
	if IsNotFoundOutput(stderr) {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%w: %s", cause, msg)
	}
	return cause
}
