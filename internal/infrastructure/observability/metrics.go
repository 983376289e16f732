package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Счётчик вызовов методов репозитория
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	PaymentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_transitions_total",
			Help: "Payment status transitions applied, by source and edge",
		},
		[]string{"source", "from", "to"},
	)

	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Provider webhook events received, by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	MarketingTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketing_tasks_total",
			Help: "Marketing automation tasks, by kind and outcome",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(RepositoryCalls, RepositoryDuration, PaymentTransitions, WebhookEvents, MarketingTasks)
}
