package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "carbonmarket",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbonmarket",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carbonmarket",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbonmarket",
			Subsystem: "marketplace",
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		},
		[]string{"outcome"},
	)

	listingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "carbonmarket",
			Subsystem: "marketplace",
			Name:      "listings_created_total",
			Help:      "Credit listings created.",
		},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbonmarket",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Sign-up and sign-in attempts by outcome.",
		},
		[]string{"mode", "outcome"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "carbonmarket",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Coordinators currently held in memory.",
		},
	)
)

// Purchase outcomes.
const (
	OutcomeCompleted    = "completed"
	OutcomeIgnored      = "ignored"
	OutcomeFailed       = "failed"
	OutcomeRolledBack   = "rolled_back"
	OutcomeInconsistent = "inconsistent"
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		purchases,
		listingsCreated,
		authAttempts,
		activeSessions,
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func RequestStarted()  { httpInFlight.Inc() }
func RequestFinished() { httpInFlight.Dec() }

func Purchase(outcome string) {
	purchases.WithLabelValues(outcome).Inc()
}

func ListingCreated() {
	listingsCreated.Inc()
}

func AuthAttempt(mode string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "succeeded"
	}
	authAttempts.WithLabelValues(mode, outcome).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
