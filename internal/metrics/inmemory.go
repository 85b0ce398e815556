// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	CyclesOK              uint64
	CyclesError           uint64
	ConnectFailures       uint64
	EmailsFetched         uint64
	OffersAccepted        uint64
	OffersFailed          uint64
	OffersUntrusted       uint64
	OffersUnconfirmable   uint64
	AcceptDurationCount   uint64
	AcceptDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	cyclesOK              uint64
	cyclesError           uint64
	connectFailures       uint64
	emailsFetched         uint64
	offersAccepted        uint64
	offersFailed          uint64
	offersUntrusted       uint64
	offersUnconfirmable   uint64
	acceptDurationCount   uint64
	acceptDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		CyclesOK:              atomic.LoadUint64(&m.cyclesOK),
		CyclesError:           atomic.LoadUint64(&m.cyclesError),
		ConnectFailures:       atomic.LoadUint64(&m.connectFailures),
		EmailsFetched:         atomic.LoadUint64(&m.emailsFetched),
		OffersAccepted:        atomic.LoadUint64(&m.offersAccepted),
		OffersFailed:          atomic.LoadUint64(&m.offersFailed),
		OffersUntrusted:       atomic.LoadUint64(&m.offersUntrusted),
		OffersUnconfirmable:   atomic.LoadUint64(&m.offersUnconfirmable),
		AcceptDurationCount:   atomic.LoadUint64(&m.acceptDurationCount),
		AcceptDurationTotalNs: atomic.LoadInt64(&m.acceptDurationTotalNs),
	}
}

// IncCycle increments the cycle counter for status.
func (m *InMemoryRecorder) IncCycle(status string) {
	if status == CycleOK {
		atomic.AddUint64(&m.cyclesOK, 1)
		return
	}
	atomic.AddUint64(&m.cyclesError, 1)
}

// IncConnectFailure increments the connect failure counter.
func (m *InMemoryRecorder) IncConnectFailure() {
	atomic.AddUint64(&m.connectFailures, 1)
}

// AddEmailsFetched adds n fetched emails.
func (m *InMemoryRecorder) AddEmailsFetched(n int) {
	if n > 0 {
		atomic.AddUint64(&m.emailsFetched, uint64(n))
	}
}

// IncOffer increments the counter for an offer result.
func (m *InMemoryRecorder) IncOffer(result string) {
	switch result {
	case ResultAccepted:
		atomic.AddUint64(&m.offersAccepted, 1)
	case ResultFailed:
		atomic.AddUint64(&m.offersFailed, 1)
	case ResultUntrusted:
		atomic.AddUint64(&m.offersUntrusted, 1)
	case ResultUnconfirmable:
		atomic.AddUint64(&m.offersUnconfirmable, 1)
	}
}

// ObserveAcceptDuration records how long an accept took.
func (m *InMemoryRecorder) ObserveAcceptDuration(duration time.Duration) {
	atomic.AddUint64(&m.acceptDurationCount, 1)
	atomic.AddInt64(&m.acceptDurationTotalNs, duration.Nanoseconds())
}
