package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ShiftsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftr_shifts_started_total",
			Help: "Total number of shifts opened",
		},
	)

	ShiftsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftr_shifts_ended_total",
			Help: "Total number of shifts closed, by how they were closed",
		},
		[]string{"via"},
	)

	TransitionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftr_transitions_rejected_total",
			Help: "Total number of rejected start/end transitions by reason",
		},
		[]string{"reason"},
	)

	ShiftDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shiftr_shift_duration_seconds",
			Help:    "Length of closed shifts in seconds",
			Buckets: []float64{900, 1800, 3600, 7200, 14400, 28800, 43200, 86400},
		},
	)

	CASConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shiftr_store_cas_conflicts_total",
			Help: "Total number of compare-and-swap conflicts on worker records",
		},
	)

	RosterRenders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftr_roster_renders_total",
			Help: "Total number of roster renders by result",
		},
		[]string{"result"},
	)

	RosterRenderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shiftr_roster_render_duration_seconds",
			Help:    "Time taken to compute and publish a roster",
			Buckets: prometheus.DefBuckets,
		},
	)

	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftr_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(ShiftsStarted)
	prometheus.MustRegister(ShiftsEnded)
	prometheus.MustRegister(TransitionsRejected)
	prometheus.MustRegister(ShiftDuration)
	prometheus.MustRegister(CASConflicts)
	prometheus.MustRegister(RosterRenders)
	prometheus.MustRegister(RosterRenderDuration)
	prometheus.MustRegister(APIRequests)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of one operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in h.
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}
