// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tradewatch/tradewatch/internal/issue"
	"github.com/tradewatch/tradewatch/internal/testutil"

	"github.com/charmbracelet/log"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	return testutil.MustWriteFile(t, t.TempDir(), ".env", content)
}

func quietProvider() Provider {
	return NewProvider(log.New(io.Discard))
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	p := NewProvider(log.New(&logs))

	_, err := p.Load(context.Background(), LoadOptions{
		EnvFile: filepath.Join(t.TempDir(), "absent.env"),
		Environ: []string{},
	})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Load() error = %v, want ErrMissingCredentials", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Errorf("expected actionable error with suggestions, got %T", err)
	}
	if !strings.Contains(logs.String(), "No env file found") {
		t.Errorf("expected missing env file warning, logs: %q", logs.String())
	}
}

func TestLoad_OnlyPasswordIsNotEnough(t *testing.T) {
	t.Parallel()

	_, err := quietProvider().Load(context.Background(), LoadOptions{
		SkipEnvFile: true,
		Environ:     []string{"EMAIL_PASSWORD=secret", "EMAIL_USERNAME=   "},
	})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Load() error = %v, want ErrMissingCredentials", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := quietProvider().Load(context.Background(), LoadOptions{
		SkipEnvFile: true,
		Environ:     []string{"EMAIL_USERNAME=me@example.com", "EMAIL_PASSWORD=secret"},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.EmailServer != DefaultEmailServer {
		t.Errorf("EmailServer = %q, want %q", cfg.EmailServer, DefaultEmailServer)
	}
	if cfg.AllowedTraders != DefaultAllowedTraders {
		t.Errorf("AllowedTraders = %q, want %q", cfg.AllowedTraders, DefaultAllowedTraders)
	}
	if cfg.CheckInterval != DefaultCheckInterval {
		t.Errorf("CheckInterval = %d, want %d", cfg.CheckInterval, DefaultCheckInterval)
	}
	if cfg.Mailbox != "INBOX" || cfg.SteamSender != "noreply@steampowered.com" {
		t.Errorf("unexpected mailbox defaults: %q %q", cfg.Mailbox, cfg.SteamSender)
	}
	if cfg.AcceptMaxRetries != 3 || cfg.ReconnectDelay != time.Minute {
		t.Errorf("unexpected retry defaults: %d %v", cfg.AcceptMaxRetries, cfg.ReconnectDelay)
	}
}

func TestLoad_HostTimezoneIgnored(t *testing.T) {
	t.Parallel()

	cfg, err := quietProvider().Load(context.Background(), LoadOptions{
		SkipEnvFile: true,
		Environ:     []string{"EMAIL_USERNAME=u", "EMAIL_PASSWORD=p", "TZ=America/New_York"},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ContainerTimezone != "Europe/Berlin" {
		t.Errorf("ContainerTimezone = %q, want Europe/Berlin", cfg.ContainerTimezone)
	}

	cfg, err = quietProvider().Load(context.Background(), LoadOptions{
		SkipEnvFile: true,
		Environ:     []string{"EMAIL_USERNAME=u", "EMAIL_PASSWORD=p", "TZ=UTC", "CONTAINER_TZ=Europe/Vienna"},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ContainerTimezone != "Europe/Vienna" {
		t.Errorf("ContainerTimezone = %q, want CONTAINER_TZ value", cfg.ContainerTimezone)
	}
}

func TestLoad_EnvFileSuppliesCredentials(t *testing.T) {
	t.Parallel()

	path := writeEnvFile(t, `# mailbox credentials
EMAIL_USERNAME=file-user@example.com
EMAIL_PASSWORD=file-secret

# traders
ALLOWED_TRADERS=/id/alice, /profiles/7656119
CHECK_INTERVAL=120
`)

	cfg, err := quietProvider().Load(context.Background(), LoadOptions{EnvFile: path, Environ: []string{}})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EmailUsername != "file-user@example.com" || cfg.EmailPassword != "file-secret" {
		t.Errorf("credentials not taken from file: %+v", cfg.Redacted())
	}
	if cfg.CheckInterval != 120 {
		t.Errorf("CheckInterval = %d, want 120", cfg.CheckInterval)
	}
	if got := cfg.Traders(); len(got) != 2 || got[0] != "/id/alice" || got[1] != "/profiles/7656119" {
		t.Errorf("Traders() = %v", got)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Parallel()

	path := writeEnvFile(t, "EMAIL_USERNAME=file-user\nEMAIL_PASSWORD=file-secret\nEMAIL_SERVER=imap.file.example\n")

	cfg, err := quietProvider().Load(context.Background(), LoadOptions{
		EnvFile: path,
		Environ: []string{"EMAIL_SERVER=imap.env.example", "UNRELATED"},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EmailServer != "imap.env.example" {
		t.Errorf("EmailServer = %q, want environment value", cfg.EmailServer)
	}
	if cfg.EmailUsername != "file-user" {
		t.Errorf("EmailUsername = %q, want file value", cfg.EmailUsername)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	base := []string{"EMAIL_USERNAME=u", "EMAIL_PASSWORD=p"}
	tests := []struct {
		name  string
		extra string
	}{
		{"non-numeric interval", "CHECK_INTERVAL=often"},
		{"zero interval", "CHECK_INTERVAL=0"},
		{"blank allow-list", "ALLOWED_TRADERS= , ,"},
		{"too many retries", "ACCEPT_MAX_RETRIES=50"},
		{"bad log level", "LOG_LEVEL=chatty"},
		{"bad sender", "STEAM_SENDER=steam"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := quietProvider().Load(context.Background(), LoadOptions{
				SkipEnvFile: true,
				Environ:     append(append([]string{}, base...), tt.extra),
			})
			if err == nil {
				t.Fatalf("Load() with %s succeeded, want error", tt.extra)
			}
			if errors.Is(err, ErrMissingCredentials) {
				t.Errorf("Load() error = %v, should not be a credentials error", err)
			}
		})
	}
}

func TestLoad_EnvFileIsDirectory(t *testing.T) {
	t.Parallel()

	_, err := quietProvider().Load(context.Background(), LoadOptions{
		EnvFile: t.TempDir(),
		Environ: []string{"EMAIL_USERNAME=u", "EMAIL_PASSWORD=p"},
	})
	if err == nil {
		t.Fatal("Load() with a directory as env file succeeded, want error")
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := quietProvider().Load(ctx, LoadOptions{SkipEnvFile: true}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}
