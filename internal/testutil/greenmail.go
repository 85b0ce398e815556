// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"net"
	"net/smtp"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	greenMailImage = "greenmail/standalone:2.1.2"
	greenMailSMTP  = "3025/tcp"
	greenMailIMAPS = "3993/tcp"

	// GreenMailUser and GreenMailPassword log in to the GreenMail IMAP server.
	GreenMailUser     = "watcher"
	GreenMailPassword = "secret"
	// GreenMailAddress receives mail for GreenMailUser.
	GreenMailAddress = "watcher@example.com"
)

// GreenMail is a running GreenMail container with SMTP and IMAPS exposed.
type GreenMail struct {
	// IMAPSAddr is the host:port of the implicit-TLS IMAP endpoint. The
	// certificate is self-signed.
	IMAPSAddr string
	// SMTPAddr is the host:port of the plain SMTP endpoint.
	SMTPAddr string
}

// ContainersAvailable safely checks if testcontainers can be used.
// Provider detection panics on some hosts without a container runtime.
func ContainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// StartGreenMail starts a GreenMail container for the lifetime of t.
// The test is skipped in short mode or when no container provider exists.
func StartGreenMail(t *testing.T) *GreenMail {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !ContainersAvailable() {
		t.Skip("skipping integration test: testcontainers provider not available")
	}

	sem := ContainerSemaphore()
	sem <- struct{}{}
	t.Cleanup(func() { <-sem })

	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        greenMailImage,
			ExposedPorts: []string{greenMailSMTP, greenMailIMAPS},
			Env: map[string]string{
				"GREENMAIL_OPTS": "-Dgreenmail.setup.test.all -Dgreenmail.hostname=0.0.0.0 " +
					"-Dgreenmail.users=" + GreenMailUser + ":" + GreenMailPassword + "@example.com",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(greenMailSMTP),
				wait.ForListeningPort(greenMailIMAPS),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("failed to start GreenMail: %v", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get GreenMail host: %v", err)
	}
	smtpPort, err := ctr.MappedPort(ctx, greenMailSMTP)
	if err != nil {
		t.Fatalf("failed to get GreenMail SMTP port: %v", err)
	}
	imapsPort, err := ctr.MappedPort(ctx, greenMailIMAPS)
	if err != nil {
		t.Fatalf("failed to get GreenMail IMAPS port: %v", err)
	}

	return &GreenMail{
		IMAPSAddr: net.JoinHostPort(host, imapsPort.Port()),
		SMTPAddr:  net.JoinHostPort(host, smtpPort.Port()),
	}
}

// Deliver sends a raw RFC 5322 message to GreenMailAddress.
func (g *GreenMail) Deliver(t testing.TB, from, raw string) {
	t.Helper()
	if err := smtp.SendMail(g.SMTPAddr, nil, from, []string{GreenMailAddress}, []byte(raw)); err != nil {
		t.Fatalf("failed to deliver mail via %s: %v", g.SMTPAddr, err)
	}
}
