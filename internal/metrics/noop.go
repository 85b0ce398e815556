// SPDX-License-Identifier: MPL-2.0

package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncCycle is a no-op.
func (n *NoopRecorder) IncCycle(string) {}

// IncConnectFailure is a no-op.
func (n *NoopRecorder) IncConnectFailure() {}

// AddEmailsFetched is a no-op.
func (n *NoopRecorder) AddEmailsFetched(int) {}

// IncOffer is a no-op.
func (n *NoopRecorder) IncOffer(string) {}

// ObserveAcceptDuration is a no-op.
func (n *NoopRecorder) ObserveAcceptDuration(time.Duration) {}
