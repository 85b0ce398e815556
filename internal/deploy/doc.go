// SPDX-License-Identifier: MPL-2.0

// Package deploy replaces the service container: it removes any container
// holding the reserved name, builds a fresh image and starts it detached with
// the resolved configuration injected as environment variables.
package deploy
