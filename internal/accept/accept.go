// SPDX-License-Identifier: MPL-2.0

package accept

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tradewatch/tradewatch/internal/tradeoffer"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

const (
	// DefaultMaxAttempts is the number of confirmation attempts per offer.
	DefaultMaxAttempts = 3
	// DefaultInitialInterval is the first pause between attempts.
	DefaultInitialInterval = 5 * time.Second
	// DefaultMaxInterval caps the pause between attempts.
	DefaultMaxInterval = 30 * time.Second

	maxBodyBytes = 2 << 20
)

const (
	// OutcomeConfirmed means the page carried a success indicator.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeVisited means the page loaded without any indicator.
	OutcomeVisited Outcome = "visited"
	// OutcomeRejected means the page carried an error indicator.
	OutcomeRejected Outcome = "rejected"
	// OutcomeHTTPError means the server answered with a non-200 status.
	OutcomeHTTPError Outcome = "http_error"
	// OutcomeTransport means the request did not complete.
	OutcomeTransport Outcome = "transport_error"
)

// ErrAcceptFailed is returned when every attempt failed.
var ErrAcceptFailed = errors.New("trade confirmation failed")

type (
	// Outcome classifies a single confirmation attempt.
	Outcome string

	// Result describes the final attempt.
	Result struct {
		Outcome    Outcome
		StatusCode int
		Attempts   int
	}

	// Options configures an Accepter. Zero values take the defaults.
	Options struct {
		MaxAttempts     int
		InitialInterval time.Duration
		MaxInterval     time.Duration
		Client          *http.Client
		Logger          *log.Logger
	}

	// Accepter visits confirmation links with retries.
	Accepter struct {
		client          *http.Client
		maxAttempts     int
		initialInterval time.Duration
		maxInterval     time.Duration
		logger          *log.Logger
	}

	// attemptError carries the outcome of a failed attempt through backoff.
	attemptError struct {
		outcome Outcome
		status  int
		err     error
	}
)

func (e *attemptError) Error() string {
	if e.status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %v", e.outcome, e.status, e.err)
	}
	return fmt.Sprintf("%s: %v", e.outcome, e.err)
}

func (e *attemptError) Unwrap() error { return e.err }

// Accepted reports whether the trade counts as accepted.
func (r *Result) Accepted() bool {
	return r.Outcome == OutcomeConfirmed || r.Outcome == OutcomeVisited
}

// New creates an Accepter.
func New(opts Options) *Accepter {
	a := &Accepter{
		client:          opts.Client,
		maxAttempts:     opts.MaxAttempts,
		initialInterval: opts.InitialInterval,
		maxInterval:     opts.MaxInterval,
		logger:          opts.Logger,
	}
	if a.client == nil {
		a.client = NewHTTPClient()
	}
	if a.maxAttempts < 1 {
		a.maxAttempts = DefaultMaxAttempts
	}
	if a.initialInterval <= 0 {
		a.initialInterval = DefaultInitialInterval
	}
	if a.maxInterval <= 0 {
		a.maxInterval = DefaultMaxInterval
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	return a
}

func (a *Accepter) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.initialInterval
	b.MaxInterval = a.maxInterval
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(a.maxAttempts-1)), ctx)
}

// Accept visits confirmURL until the page confirms the trade or the attempts
// run out. A page without success or error indicators counts as accepted.
// Error indicators, non-200 responses and transport errors are retried.
func (a *Accepter) Accept(ctx context.Context, confirmURL string, lang tradeoffer.Language) (*Result, error) {
	result := &Result{}

	op := func() error {
		result.Attempts++
		a.logger.Info("Attempting to accept trade", "attempt", result.Attempts, "max", a.maxAttempts)

		outcome, status, err := a.attempt(ctx, confirmURL, lang)
		result.Outcome, result.StatusCode = outcome, status
		if err != nil {
			if errors.Is(err, errInvalidRequest) {
				return backoff.Permanent(&attemptError{outcome: outcome, status: status, err: err})
			}
			return &attemptError{outcome: outcome, status: status, err: err}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		a.logger.Warn("Trade confirmation attempt failed, retrying", "err", err, "wait", wait.Round(time.Millisecond))
	}

	if err := backoff.RetryNotify(op, a.backOff(ctx), notify); err != nil {
		a.logger.Error("Failed to accept trade", "attempts", result.Attempts, "err", err)
		return result, fmt.Errorf("%w after %d attempt(s): %w", ErrAcceptFailed, result.Attempts, err)
	}

	if result.Outcome == OutcomeVisited {
		a.logger.Info("Trade confirmation URL visited", "attempts", result.Attempts)
	} else {
		a.logger.Info("Trade accepted", "attempts", result.Attempts)
	}
	return result, nil
}

var errInvalidRequest = errors.New("invalid confirmation request")

func (a *Accepter) attempt(ctx context.Context, confirmURL string, lang tradeoffer.Language) (Outcome, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, confirmURL, nil)
	if err != nil {
		return OutcomeTransport, 0, fmt.Errorf("%w: %w", errInvalidRequest, err)
	}
	setBrowserHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return OutcomeTransport, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return OutcomeHTTPError, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return OutcomeTransport, resp.StatusCode, fmt.Errorf("failed to read confirmation page: %w", err)
	}

	return classify(strings.ToLower(string(body)), lang, resp.StatusCode)
}

// classify checks success indicators before error indicators.
func classify(page string, lang tradeoffer.Language, status int) (Outcome, int, error) {
	for _, s := range lang.SuccessIndicators() {
		if strings.Contains(page, s) {
			return OutcomeConfirmed, status, nil
		}
	}
	for _, e := range lang.ErrorIndicators() {
		if strings.Contains(page, e) {
			return OutcomeRejected, status, fmt.Errorf("confirmation page reports %q", e)
		}
	}
	return OutcomeVisited, status, nil
}
