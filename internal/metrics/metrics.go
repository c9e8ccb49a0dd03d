// Package metrics holds the Prometheus collectors for email event ingestion.
// They register on the default registry and are served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "email_events"

var (
	WebhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_outcomes_total",
			Help:      "Total number of webhook requests by terminal outcome.",
		},
		[]string{"outcome"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Duration of webhook handling.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	Correlations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlations_total",
			Help:      "Correlation attempts by winning strategy (none when unresolved).",
		},
		[]string{"strategy"},
	)

	Backfills = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_message_id_backfills_total",
			Help:      "Provider message ids learned from events and written onto outbound messages.",
		},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Applied outbound message status transitions.",
		},
		[]string{"from", "to"},
	)

	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Status change notifications dropped because the worker queue was full.",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Status change notifications delivered per sink and result.",
		},
		[]string{"sink", "result"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_rate_limited_total",
			Help:      "Webhook requests rejected by the per-client rate limiter.",
		},
	)
)
