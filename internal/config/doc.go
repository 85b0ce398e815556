// SPDX-License-Identifier: MPL-2.0

// Package config resolves tradewatch settings from an optional dotenv file and
// the process environment.
//
// The dotenv file (".env" by default) is read with Viper; process environment
// variables override anything it sets. The merged variables are decoded into
// Config with caarlos0/env struct tags, which also supply the documented
// defaults, and the result is validated against an embedded CUE schema
// (config_schema.cue).
//
// Only the credential pair EMAIL_USERNAME / EMAIL_PASSWORD is mandatory. A
// missing dotenv file is reported as a warning; an unreadable one is an error.
package config
