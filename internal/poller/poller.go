// SPDX-License-Identifier: MPL-2.0

package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/tradewatch/tradewatch/internal/accept"
	"github.com/tradewatch/tradewatch/internal/clock"
	"github.com/tradewatch/tradewatch/internal/mailbox"
	"github.com/tradewatch/tradewatch/internal/metrics"
	"github.com/tradewatch/tradewatch/internal/tradeoffer"
)

const (
	// DefaultInterval is the pause between successful cycles.
	DefaultInterval = 300 * time.Second
	// DefaultReconnectDelay is the pause after a failed cycle.
	DefaultReconnectDelay = 60 * time.Second
)

// ErrConnect marks a cycle that could not open a mailbox session.
var ErrConnect = errors.New("failed to connect to email server")

type (
	// Accepter confirms a trade by visiting its confirmation URL.
	Accepter interface {
		Accept(ctx context.Context, confirmURL string, lang tradeoffer.Language) (*accept.Result, error)
	}

	// Options configures a Poller. Dialer, Parser and Accepter are required.
	Options struct {
		Dialer   mailbox.Dialer
		Parser   *tradeoffer.Parser
		Accepter Accepter
		// Sender restricts fetched mail to this From address.
		Sender         string
		Interval       time.Duration
		ReconnectDelay time.Duration
		Clock          clock.Clock
		Metrics        metrics.Recorder
		Logger         *log.Logger
		// NewCycleID generates the correlation ID logged with each cycle.
		NewCycleID func() string
	}

	// Stats summarises one cycle.
	Stats struct {
		Fetched   int
		Processed int
		Accepted  int
		Untrusted int
		Failed    int
		Skipped   int
	}

	// Poller checks the mailbox on a fixed interval until its context ends.
	Poller struct {
		opts Options
	}
)

// New creates a Poller, filling unset options with defaults.
func New(opts Options) (*Poller, error) {
	switch {
	case opts.Dialer == nil:
		return nil, errors.New("poller: dialer is required")
	case opts.Parser == nil:
		return nil, errors.New("poller: parser is required")
	case opts.Accepter == nil:
		return nil, errors.New("poller: accepter is required")
	}

	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("poller")
	}
	if opts.NewCycleID == nil {
		opts.NewCycleID = uuid.NewString
	}
	return &Poller{opts: opts}, nil
}

// Run polls until ctx is canceled. Cancellation is a clean shutdown and
// returns nil.
func (p *Poller) Run(ctx context.Context) error {
	p.opts.Logger.Info("Starting trade offer monitor",
		"interval", p.opts.Interval, "sender", p.opts.Sender)

	for {
		if ctx.Err() != nil {
			p.opts.Logger.Info("Stopping trade offer monitor")
			return nil
		}

		wait := p.opts.Interval
		if _, err := p.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				p.opts.Logger.Info("Stopping trade offer monitor")
				return nil
			}
			p.opts.Metrics.IncCycle(metrics.CycleError)
			wait = p.opts.ReconnectDelay
			p.opts.Logger.Error("Poll cycle failed", "err", err, "retry_in", wait)
		} else {
			p.opts.Metrics.IncCycle(metrics.CycleOK)
		}

		if err := clock.Sleep(ctx, p.opts.Clock, wait); err != nil {
			p.opts.Logger.Info("Stopping trade offer monitor")
			return nil
		}
	}
}

// Cycle performs a single connect, fetch, process and close round.
func (p *Poller) Cycle(ctx context.Context) (Stats, error) {
	logger := p.opts.Logger.With("cycle", p.opts.NewCycleID())
	var stats Stats

	sess, err := p.opts.Dialer.Dial(ctx)
	if err != nil {
		p.opts.Metrics.IncConnectFailure()
		return stats, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("Failed to close mailbox session", "err", err)
		}
	}()

	msgs, err := sess.FetchUnseen(ctx, p.opts.Sender)
	if err != nil {
		return stats, fmt.Errorf("fetch unseen mail: %w", err)
	}
	stats.Fetched = len(msgs)
	p.opts.Metrics.AddEmailsFetched(len(msgs))
	if len(msgs) > 0 {
		logger.Info("Found unread Steam emails", "count", len(msgs))
	} else {
		logger.Debug("No unread Steam emails")
	}

	for i := range msgs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		p.handle(ctx, logger, sess, &msgs[i], &stats)
	}

	logger.Info("Cycle complete",
		"processed", stats.Processed,
		"accepted", stats.Accepted,
		"untrusted", stats.Untrusted,
		"failed", stats.Failed)
	return stats, nil
}

func (p *Poller) handle(ctx context.Context, logger *log.Logger, sess mailbox.Session, msg *mailbox.Message, stats *Stats) {
	logger = logger.With("uid", msg.UID)

	if !tradeoffer.IsTradeSubject(msg.Subject) {
		logger.Debug("Skipping non-trade email", "subject", msg.Subject)
		stats.Skipped++
		p.markSeen(ctx, logger, sess, msg.UID)
		return
	}

	stats.Processed++
	lang := tradeoffer.DetectLanguage(msg.Subject, msg.Body)
	logger.Info("Processing trade email", "subject", msg.Subject, "language", lang)

	offer, err := p.opts.Parser.Parse(msg.Body, lang)
	if err != nil {
		logger.Error("Failed to parse trade email", "err", err)
		stats.Failed++
		p.opts.Metrics.IncOffer(metrics.ResultFailed)
		p.markSeen(ctx, logger, sess, msg.UID)
		return
	}

	logger = logger.With("trade", offer.TradeRef(), "trader", offer.TraderName)
	logger.Info("Trade offer details",
		"profile", offer.ProfileURL,
		"level", offer.Level,
		"friendship", offer.FriendshipStatus,
		"friends_since", offer.FriendshipDate,
		"giving", len(offer.ItemsGiven),
		"receiving", len(offer.ItemsReceived),
		"donation", offer.Donation)

	switch {
	case !offer.Trusted:
		logger.Warn("SECURITY: rejecting trade offer from trader not on the allow-list", "profile", offer.ProfileURL)
		stats.Untrusted++
		p.opts.Metrics.IncOffer(metrics.ResultUntrusted)

	case !offer.Confirmable():
		logger.Error("Trusted trade offer has no confirmation link")
		stats.Failed++
		p.opts.Metrics.IncOffer(metrics.ResultUnconfirmable)

	default:
		start := p.opts.Clock.Now()
		res, err := p.opts.Accepter.Accept(ctx, offer.ConfirmURL, lang)
		p.opts.Metrics.ObserveAcceptDuration(p.opts.Clock.Since(start))
		if err != nil {
			logger.Error("Failed to accept trade offer", "err", err)
			stats.Failed++
			p.opts.Metrics.IncOffer(metrics.ResultFailed)
		} else {
			logger.Info("Accepted trade offer", "outcome", res.Outcome, "attempts", res.Attempts)
			stats.Accepted++
			p.opts.Metrics.IncOffer(metrics.ResultAccepted)
		}
	}

	p.markSeen(ctx, logger, sess, msg.UID)
}

func (p *Poller) markSeen(ctx context.Context, logger *log.Logger, sess mailbox.Session, uid uint32) {
	if err := sess.MarkSeen(ctx, uid); err != nil {
		logger.Warn("Failed to mark email as seen", "err", err)
	}
}
