package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rsvp_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	RegistryCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rsvp_registry_calls_total",
			Help: "Remote registry calls by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	RegistryCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rsvp_registry_call_seconds",
			Help:    "Duration of remote registry calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	PendingRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rsvp_pending_rejections_total",
			Help: "Actions refused because another action of the session was in flight",
		},
		[]string{"action"},
	)

	AuditFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rsvp_audit_failures_total",
			Help: "Outcomes that could not be recorded",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rsvp_outbox_lag_seconds",
			Help: "Age of the oldest outbox record relayed in the last poll",
		},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rsvp_outbox_published_total",
			Help: "Outbox records relayed to the broker",
		},
		[]string{"event_type"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rsvp_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
