// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradewatch"

// PrometheusRecorder exports Recorder events as Prometheus metrics.
type PrometheusRecorder struct {
	cycles          *prometheus.CounterVec
	connectFailures prometheus.Counter
	emailsFetched   prometheus.Counter
	offers          *prometheus.CounterVec
	acceptDuration  prometheus.Histogram
}

// NewPrometheus creates a recorder and registers its collectors with reg.
func NewPrometheus(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	p := &PrometheusRecorder{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Completed mailbox poll cycles by status.",
		}, []string{"status"}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imap_connect_failures_total",
			Help:      "Failed IMAP connection or login attempts.",
		}),
		emailsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_fetched_total",
			Help:      "Unseen Steam emails fetched.",
		}),
		offers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_total",
			Help:      "Trade offers handled by result.",
		}, []string{"result"}),
		acceptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "accept_duration_seconds",
			Help:      "Time spent confirming a trade, retries included.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	for _, c := range []prometheus.Collector{p.cycles, p.connectFailures, p.emailsFetched, p.offers, p.acceptDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return p, nil
}

// IncCycle increments the cycle counter for status.
func (p *PrometheusRecorder) IncCycle(status string) {
	p.cycles.WithLabelValues(status).Inc()
}

// IncConnectFailure increments the connect failure counter.
func (p *PrometheusRecorder) IncConnectFailure() {
	p.connectFailures.Inc()
}

// AddEmailsFetched adds n fetched emails.
func (p *PrometheusRecorder) AddEmailsFetched(n int) {
	if n > 0 {
		p.emailsFetched.Add(float64(n))
	}
}

// IncOffer increments the counter for an offer result.
func (p *PrometheusRecorder) IncOffer(result string) {
	p.offers.WithLabelValues(result).Inc()
}

// ObserveAcceptDuration records how long an accept took.
func (p *PrometheusRecorder) ObserveAcceptDuration(duration time.Duration) {
	p.acceptDuration.Observe(duration.Seconds())
}

// Handler serves the metrics gathered by g, instrumented on reg.
func Handler(reg prometheus.Registerer, g prometheus.Gatherer) http.Handler {
	return promhttp.InstrumentMetricHandler(reg, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// Serve exposes handler on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics", "addr", addr, "path", "/metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	}
}
