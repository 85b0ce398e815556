// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for tradewatch.
//
// The root command wires the polling service (run), the container
// deployment workflow (deploy) and configuration inspection (config show).
package cmd
