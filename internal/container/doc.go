// SPDX-License-Identifier: MPL-2.0

// Package container provides an abstraction layer for the container engines
// (Docker/Podman) used to ship the trade watcher as a long-running service.
//
// The Engine interface covers the lifecycle the deploy command needs: Build,
// Run (detached), Exists, Stop, Remove and ImageExists. DockerEngine and
// PodmanEngine both embed BaseCLIEngine for shared CLI argument construction
// and command execution.
//
// Engine selection uses NewEngine(EngineType) with automatic fallback if the
// preferred engine is unavailable, or AutoDetectEngine() which tries Docker
// first.
package container
