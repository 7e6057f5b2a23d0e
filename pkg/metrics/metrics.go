package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SchedulerTicks counts reminder scheduler ticks by result (success|failure).
	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolbag_scheduler_ticks_total",
			Help: "Total number of reminder scheduler ticks",
		},
		[]string{"result"},
	)

	// NotificationsCreated counts persisted notifications by type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolbag_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	// DuplicatesAbsorbed counts notification inserts discarded by the dedup key.
	DuplicatesAbsorbed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schoolbag_notifications_duplicates_absorbed_total",
			Help: "Number of notification creations silently absorbed by deduplication",
		},
	)

	// LocalSchedules counts device-local notification schedule operations by outcome
	// (scheduled|skipped|cancelled).
	LocalSchedules = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolbag_local_notification_ops_total",
			Help: "Local notification scheduling operations",
		},
		[]string{"outcome"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schoolbag_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
