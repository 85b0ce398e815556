// SPDX-License-Identifier: MPL-2.0

package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/tradewatch/tradewatch/internal/issue"
)

const (
	// DefaultPort is the implicit-TLS IMAP port used when the server has none.
	DefaultPort = "993"
	// DefaultMailbox is selected when Options.Mailbox is empty.
	DefaultMailbox = "INBOX"
	// DefaultTimeout bounds dialing and each IMAP command.
	DefaultTimeout = 30 * time.Second

	fetchBuffer = 10
)

var (
	// ErrLoginFailed is returned when the server rejects the credentials.
	ErrLoginFailed = errors.New("mailbox login failed")
	// ErrConnectFailed is returned when no IMAP session could be established.
	ErrConnectFailed = errors.New("mailbox connection failed")
)

type (
	// Session is an open, authenticated connection with a selected mailbox.
	Session interface {
		// FetchUnseen returns every unseen message from sender without
		// marking it seen.
		FetchUnseen(ctx context.Context, sender string) ([]Message, error)
		// MarkSeen adds the \Seen flag to the message with the given UID.
		MarkSeen(ctx context.Context, uid uint32) error
		// Close logs out and releases the connection.
		Close() error
	}

	// Dialer opens sessions.
	Dialer interface {
		Dial(ctx context.Context) (Session, error)
	}

	// Options configures the IMAP dialer.
	Options struct {
		// Server is "host" or "host:port".
		Server   string
		Username string
		Password string
		Mailbox  string
		// InsecureSkipVerify disables certificate verification. Tests only.
		InsecureSkipVerify bool
		Timeout            time.Duration
		Logger             *log.Logger
	}

	// IMAPDialer dials an IMAP server over implicit TLS.
	IMAPDialer struct {
		opts Options
		addr string
	}

	imapSession struct {
		c      *client.Client
		logger *log.Logger
		addr   string
	}
)

// NewDialer returns an IMAPDialer with defaults applied.
func NewDialer(opts Options) *IMAPDialer {
	if opts.Mailbox == "" {
		opts.Mailbox = DefaultMailbox
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("mailbox")
	}
	return &IMAPDialer{opts: opts, addr: ServerAddr(opts.Server)}
}

// ServerAddr appends the default IMAPS port when server has no port.
func ServerAddr(server string) string {
	server = strings.TrimSpace(server)
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), DefaultPort)
}

// Addr returns the dialed host:port.
func (d *IMAPDialer) Addr() string {
	return d.addr
}

// Dial connects, logs in and selects the configured mailbox.
func (d *IMAPDialer) Dial(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(d.addr)
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: d.opts.Timeout},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: d.opts.InsecureSkipVerify, //nolint:gosec // opt-in for test servers
			MinVersion:         tls.VersionTLS12,
		},
	}

	d.opts.Logger.Debug("Connecting", "server", d.addr)
	conn, err := dialer.DialContext(ctx, "tcp", d.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectFailed, d.addr, err)
	}

	c, err := client.New(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: greeting from %s: %w", ErrConnectFailed, d.addr, err)
	}
	c.Timeout = d.opts.Timeout
	s := &imapSession{c: c, logger: d.opts.Logger, addr: d.addr}

	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	if err := c.Login(d.opts.Username, d.opts.Password); err != nil {
		_ = c.Terminate()
		return nil, issue.NewErrorContext().
			WithOperation("log in to mailbox").
			WithResource(d.opts.Username+"@"+d.addr).
			WithSuggestion("Verify EMAIL_USERNAME and EMAIL_PASSWORD").
			WithSuggestion("Use an app password if the account has two-factor authentication").
			Wrap(fmt.Errorf("%w: %w", ErrLoginFailed, err)).
			BuildError()
	}

	if _, err := c.Select(d.opts.Mailbox, false); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("%w: select %q: %w", ErrConnectFailed, d.opts.Mailbox, err)
	}

	d.opts.Logger.Debug("Mailbox selected", "server", d.addr, "mailbox", d.opts.Mailbox)
	return s, nil
}

func (s *imapSession) FetchUnseen(ctx context.Context, sender string) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = s.c.Terminate() })
	defer stop()

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if sender != "" {
		criteria.Header.Add("FROM", sender)
	}

	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		return nil, ctxErr(ctx, fmt.Errorf("search unseen mail: %w", err))
	}
	if len(uids) == 0 {
		return nil, nil
	}
	s.logger.Debug("Unseen mail found", "count", len(uids), "sender", sender)

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, fetchBuffer)
	done := make(chan error, 1)
	go func() {
		done <- s.c.UidFetch(seqset, items, ch)
	}()

	messages := make([]Message, 0, len(uids))
	for m := range ch {
		messages = append(messages, s.decode(m, section))
	}
	if err := <-done; err != nil {
		return nil, ctxErr(ctx, fmt.Errorf("fetch unseen mail: %w", err))
	}
	return messages, nil
}

// decode parses a fetched message. Messages without a usable body come back
// with only the UID set so the caller still marks them seen.
func (s *imapSession) decode(m *imap.Message, section *imap.BodySectionName) Message {
	body := m.GetBody(section)
	if body == nil {
		s.logger.Warn("Server returned no body", "uid", m.Uid)
		return Message{UID: m.Uid}
	}
	parsed, err := ParseMessage(m.Uid, body)
	if err != nil {
		s.logger.Warn("Unparseable message", "uid", m.Uid, "err", err)
		return Message{UID: m.Uid}
	}
	return *parsed
}

func (s *imapSession) MarkSeen(ctx context.Context, uid uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = s.c.Terminate() })
	defer stop()

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	op := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.UidStore(seqset, op, []any{imap.SeenFlag}, nil); err != nil {
		return ctxErr(ctx, fmt.Errorf("mark message %d seen: %w", uid, err))
	}
	return nil
}

func (s *imapSession) Close() error {
	if err := s.c.Logout(); err != nil && !errors.Is(err, client.ErrAlreadyLoggedOut) {
		_ = s.c.Terminate()
		return fmt.Errorf("logout from %s: %w", s.addr, err)
	}
	return nil
}

// ctxErr prefers the context error once the connection was torn down by it.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}
