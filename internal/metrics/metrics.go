// Package metrics exposes Prometheus counters for the fetch and dispatch paths.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch results.
const (
	ResultLive        = "live"
	ResultEmpty       = "empty"
	ResultUnreachable = "unreachable"
)

// Recorder holds the process metrics.
type Recorder struct {
	fetches       *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	dispatches    *prometheus.CounterVec
	sessions      prometheus.Gauge
	throttled     prometheus.Counter
	historyPoints *prometheus.GaugeVec
}

// New creates a recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zonedash_fetch_total",
			Help: "Snapshot fetches by node and result (live, empty, unreachable).",
		}, []string{"node", "result"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zonedash_fetch_duration_seconds",
			Help:    "Time spent fetching a snapshot from the store.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"node"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zonedash_dispatch_total",
			Help: "Commands dispatched by node, command and outcome.",
		}, []string{"node", "cmd", "success"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zonedash_active_sessions",
			Help: "Viewing sessions currently open.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zonedash_commands_throttled_total",
			Help: "Commands rejected by the server rate limiter.",
		}),
		historyPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zonedash_history_points",
			Help: "Points held in the most recently refreshed series of a node.",
		}, []string{"node"}),
	}

	reg.MustRegister(r.fetches, r.fetchLatency, r.dispatches, r.sessions, r.throttled, r.historyPoints)
	return r
}

// ObserveFetch records one fetch cycle. A negative points count is a fetch
// outside any session and leaves the history gauge alone.
func (r *Recorder) ObserveFetch(node, result string, elapsed time.Duration, points int) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(node, result).Inc()
	r.fetchLatency.WithLabelValues(node).Observe(elapsed.Seconds())
	if points >= 0 {
		r.historyPoints.WithLabelValues(node).Set(float64(points))
	}
}

// ObserveDispatch records one command outcome.
func (r *Recorder) ObserveDispatch(node, cmd string, success bool) {
	if r == nil {
		return
	}
	s := "false"
	if success {
		s = "true"
	}
	r.dispatches.WithLabelValues(node, cmd, s).Inc()
}

// SessionOpened increments the active session gauge.
func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.sessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.sessions.Dec()
}

// Throttled records a rate-limited command.
func (r *Recorder) Throttled() {
	if r == nil {
		return
	}
	r.throttled.Inc()
}
