package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds every corral metric. It is separate from the default
	// registry so textfile exports contain only deployment metrics.
	Registry = prometheus.NewRegistry()

	// Remote API metrics
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_remote_requests_total",
			Help: "Total number of Rancher API requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corral_remote_request_duration_seconds",
			Help:    "Rancher API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Workflow metrics
	DeploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_deployments_total",
			Help: "Total number of workflow runs by workflow, path and result",
		},
		[]string{"workflow", "path", "result"},
	)

	StatePolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_state_polls_total",
			Help: "Total number of service state fetches while waiting, by target state",
		},
		[]string{"target"},
	)

	StateWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corral_state_wait_duration_seconds",
			Help:    "Time spent waiting for a service to reach a state",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"target", "result"},
	)
)

func init() {
	Registry.MustRegister(RemoteRequestsTotal)
	Registry.MustRegister(RemoteRequestDuration)
	Registry.MustRegister(DeploymentsTotal)
	Registry.MustRegister(StatePolls)
	Registry.MustRegister(StateWaitDuration)
}

// WriteTextfile writes the current metrics in Prometheus text format to
// path, for pickup by node_exporter's textfile collector
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time on a histogram
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time on a histogram vec
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
