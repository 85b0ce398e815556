// SPDX-License-Identifier: MPL-2.0

package mailbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tradewatch/tradewatch/internal/issue"
	"github.com/tradewatch/tradewatch/internal/testutil"
)

const steamSender = "noreply@steampowered.com"

func rawMail(from, subject, html string) string {
	return "From: " + from + "\r\n" +
		"To: " + testutil.GreenMailAddress + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		html + "\r\n"
}

// TestIMAPDialer_Integration exercises the IMAP session against GreenMail.
func TestIMAPDialer_Integration(t *testing.T) {
	gm := testutil.StartGreenMail(t)

	gm.Deliver(t, steamSender, rawMail(steamSender, "Your trade offer confirmation", "<p>offer one</p>"))
	gm.Deliver(t, steamSender, rawMail(steamSender, "Steam Guard code", "<p>guard</p>"))
	gm.Deliver(t, "friend@example.com", rawMail("friend@example.com", "Lunch?", "<p>hi</p>"))

	newDialer := func(password string) *IMAPDialer {
		return NewDialer(Options{
			Server:             gm.IMAPSAddr,
			Username:           testutil.GreenMailUser,
			Password:           password,
			InsecureSkipVerify: true,
			Timeout:            10 * time.Second,
		})
	}

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := newDialer("wrong").Dial(context.Background())
		if !errors.Is(err, ErrLoginFailed) {
			t.Fatalf("Dial() error = %v, want ErrLoginFailed", err)
		}
		var ae *issue.ActionableError
		if !errors.As(err, &ae) || !ae.HasSuggestions() {
			t.Errorf("Dial() error = %#v, want ActionableError with suggestions", err)
		}
	})

	t.Run("FetchAndMarkSeen", func(t *testing.T) {
		ctx := context.Background()
		d := newDialer(testutil.GreenMailPassword)

		msgs := waitForMail(t, d, 2)
		subjects := make([]string, 0, len(msgs))
		for _, m := range msgs {
			subjects = append(subjects, m.Subject)
			if m.From != steamSender {
				t.Errorf("From = %q, want only %s", m.From, steamSender)
			}
		}
		joined := strings.Join(subjects, "|")
		if !strings.Contains(joined, "Your trade offer confirmation") || !strings.Contains(joined, "Steam Guard code") {
			t.Fatalf("subjects = %v", subjects)
		}

		sess, err := d.Dial(ctx)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		for _, m := range msgs {
			if err := sess.MarkSeen(ctx, m.UID); err != nil {
				t.Fatalf("MarkSeen(%d) error = %v", m.UID, err)
			}
		}
		testutil.MustClose(t, sess)

		sess, err = d.Dial(ctx)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		defer testutil.DeferClose(t, sess)()

		left, err := sess.FetchUnseen(ctx, steamSender)
		if err != nil {
			t.Fatalf("FetchUnseen() error = %v", err)
		}
		if len(left) != 0 {
			t.Errorf("FetchUnseen() after MarkSeen returned %d messages, want 0", len(left))
		}
	})
}

// waitForMail polls until want messages from the Steam sender are visible.
// Fetching must not set \Seen, so repeated polls see the same mail.
func waitForMail(t *testing.T, d *IMAPDialer, want int) []Message {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(30 * time.Second)

	for {
		sess, err := d.Dial(ctx)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		msgs, err := sess.FetchUnseen(ctx, steamSender)
		testutil.MustClose(t, sess)
		if err != nil {
			t.Fatalf("FetchUnseen() error = %v", err)
		}
		if len(msgs) >= want {
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("FetchUnseen() returned %d messages, want %d", len(msgs), want)
		}
		time.Sleep(500 * time.Millisecond)
	}
}
