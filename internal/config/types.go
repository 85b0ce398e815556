// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tradewatch/tradewatch/internal/tradeoffer"
)

const (
	// EnvEmailServer names the IMAP server variable.
	EnvEmailServer = "EMAIL_SERVER"
	// EnvEmailUsername names the mandatory mailbox user variable.
	EnvEmailUsername = "EMAIL_USERNAME"
	// EnvEmailPassword names the mandatory mailbox password variable.
	EnvEmailPassword = "EMAIL_PASSWORD"
	// EnvAllowedTraders names the comma-separated trader allow-list variable.
	EnvAllowedTraders = "ALLOWED_TRADERS"
	// EnvCheckInterval names the poll interval (seconds) variable.
	EnvCheckInterval = "CHECK_INTERVAL"

	// EnvMailbox names the IMAP folder to poll.
	EnvMailbox = "EMAIL_MAILBOX"
	// EnvSteamSender names the sender address searched for.
	EnvSteamSender = "STEAM_SENDER"
	// EnvAcceptMaxRetries names the confirmation attempt limit.
	EnvAcceptMaxRetries = "ACCEPT_MAX_RETRIES"
	// EnvReconnectDelay names the wait after a failed connection (Go duration).
	EnvReconnectDelay = "RECONNECT_DELAY"
	// EnvLogLevel names the log level (debug, info, warn, error).
	EnvLogLevel = "LOG_LEVEL"
	// EnvMetricsAddr names the listen address of the metrics endpoint; empty disables it.
	EnvMetricsAddr = "METRICS_ADDR"
	// EnvInsecureSkipVerify disables IMAP TLS certificate checks.
	EnvInsecureSkipVerify = "IMAP_INSECURE_SKIP_VERIFY"
	// EnvContainerTimezone names the override for the deployed container's
	// timezone. The host's own TZ is never read.
	EnvContainerTimezone = "CONTAINER_TZ"
	// EnvTimezone is the variable set inside the deployed container.
	EnvTimezone = "TZ"

	// DefaultEmailServer is used when EMAIL_SERVER is unset.
	DefaultEmailServer = "imap.gmail.com"
	// DefaultAllowedTraders is the placeholder allow-list used when ALLOWED_TRADERS is unset.
	DefaultAllowedTraders = "/id/trader1,/id/trader2"
	// DefaultCheckInterval is the poll interval in seconds used when CHECK_INTERVAL is unset.
	DefaultCheckInterval = 300

	redactedValue = "********"
)

// ErrMissingCredentials is returned when EMAIL_USERNAME or EMAIL_PASSWORD is
// absent (or blank) after the dotenv file and environment are merged.
var ErrMissingCredentials = errors.New("EMAIL_USERNAME and EMAIL_PASSWORD environment variables are required")

// Config holds the resolved settings shared by the poller and the deploy command.
type Config struct {
	EmailServer    string `env:"EMAIL_SERVER" envDefault:"imap.gmail.com"`
	EmailUsername  string `env:"EMAIL_USERNAME"`
	EmailPassword  string `env:"EMAIL_PASSWORD"`
	AllowedTraders string `env:"ALLOWED_TRADERS" envDefault:"/id/trader1,/id/trader2"`
	CheckInterval  int    `env:"CHECK_INTERVAL" envDefault:"300"`

	Mailbox            string        `env:"EMAIL_MAILBOX" envDefault:"INBOX"`
	SteamSender        string        `env:"STEAM_SENDER" envDefault:"noreply@steampowered.com"`
	AcceptMaxRetries   int           `env:"ACCEPT_MAX_RETRIES" envDefault:"3"`
	ReconnectDelay     time.Duration `env:"RECONNECT_DELAY" envDefault:"60s"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsAddr        string        `env:"METRICS_ADDR"`
	InsecureSkipVerify bool          `env:"IMAP_INSECURE_SKIP_VERIFY" envDefault:"false"`
	ContainerTimezone  string        `env:"CONTAINER_TZ" envDefault:"Europe/Berlin"`
}

// Traders returns the normalised AllowedTraders entries.
func (c *Config) Traders() []string {
	return tradeoffer.ParseAllowList(c.AllowedTraders).Entries()
}

// Interval returns CheckInterval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.CheckInterval) * time.Second
}

// ContainerEnv returns the variables injected into the service container.
// TZ is left to the deploy step, which pins it separately.
func (c *Config) ContainerEnv() map[string]string {
	env := map[string]string{
		EnvEmailServer:        c.EmailServer,
		EnvEmailUsername:      c.EmailUsername,
		EnvEmailPassword:      c.EmailPassword,
		EnvAllowedTraders:     c.AllowedTraders,
		EnvCheckInterval:      strconv.Itoa(c.CheckInterval),
		EnvMailbox:            c.Mailbox,
		EnvSteamSender:        c.SteamSender,
		EnvAcceptMaxRetries:   strconv.Itoa(c.AcceptMaxRetries),
		EnvReconnectDelay:     c.ReconnectDelay.String(),
		EnvLogLevel:           c.LogLevel,
		EnvInsecureSkipVerify: strconv.FormatBool(c.InsecureSkipVerify),
	}
	if c.MetricsAddr != "" {
		env[EnvMetricsAddr] = c.MetricsAddr
	}
	return env
}

// Redacted returns a copy safe for display, with the password masked.
func (c Config) Redacted() Config {
	if c.EmailPassword != "" {
		c.EmailPassword = redactedValue
	}
	return c
}

// schemaValue is the map checked against #Config in config_schema.cue.
func (c *Config) schemaValue() map[string]any {
	return map[string]any{
		"email_server":            c.EmailServer,
		"email_username":          c.EmailUsername,
		"email_password":          c.EmailPassword,
		"allowed_traders":         c.Traders(),
		"check_interval":          c.CheckInterval,
		"mailbox":                 c.Mailbox,
		"steam_sender":            c.SteamSender,
		"accept_max_retries":      c.AcceptMaxRetries,
		"reconnect_delay_seconds": c.ReconnectDelay.Seconds(),
		"log_level":               strings.ToLower(c.LogLevel),
		"metrics_addr":            c.MetricsAddr,
		"insecure_skip_verify":    c.InsecureSkipVerify,
		"container_timezone":      c.ContainerTimezone,
	}
}
