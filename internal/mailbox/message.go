// SPDX-License-Identifier: MPL-2.0

package mailbox

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const maxPartBytes = 4 << 20

// Message is a fetched email reduced to what the trade parser needs.
type Message struct {
	UID     uint32
	Subject string
	From    string
	Date    time.Time
	// Body is the HTML part when present, the plain text part otherwise.
	Body string
}

// ParseMessage decodes a raw RFC 5322 message. The subject is decoded from
// RFC 2047 and part bodies are converted to UTF-8 from their declared charset.
func ParseMessage(uid uint32, r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to read message %d: %w", uid, err)
	}
	defer mr.Close()

	msg := &Message{UID: uid}
	if msg.Subject, err = mr.Header.Subject(); err != nil {
		msg.Subject = mr.Header.Get("Subject")
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}

	var html, plain string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read part of message %d: %w", uid, err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, err := h.ContentType()
		if err != nil {
			ct, _, _ = mime.ParseMediaType(h.Get("Content-Type"))
		}

		switch strings.ToLower(ct) {
		case "text/html":
			if html == "" {
				b, err := io.ReadAll(io.LimitReader(part.Body, maxPartBytes))
				if err != nil {
					return nil, fmt.Errorf("failed to read html part of message %d: %w", uid, err)
				}
				html = string(b)
			}
		case "text/plain", "":
			if plain == "" {
				b, err := io.ReadAll(io.LimitReader(part.Body, maxPartBytes))
				if err != nil {
					return nil, fmt.Errorf("failed to read text part of message %d: %w", uid, err)
				}
				plain = string(b)
			}
		}
	}

	msg.Body = html
	if msg.Body == "" {
		msg.Body = plain
	}
	return msg, nil
}
