// SPDX-License-Identifier: MPL-2.0

// Package metrics provides lightweight hooks for instrumenting the poller.
package metrics

import "time"

// Offer results recorded by IncOffer.
const (
	ResultAccepted      = "accepted"
	ResultFailed        = "failed"
	ResultUntrusted     = "untrusted"
	ResultUnconfirmable = "unconfirmable"
)

// Cycle statuses recorded by IncCycle.
const (
	CycleOK    = "ok"
	CycleError = "error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Poll cycle metrics
	IncCycle(status string)
	IncConnectFailure()
	AddEmailsFetched(n int)

	// Trade offer metrics
	IncOffer(result string)
	ObserveAcceptDuration(duration time.Duration)
}
