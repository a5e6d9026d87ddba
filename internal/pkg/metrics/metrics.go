// Package metrics defines and registers all custom Prometheus metrics for the
// dispatch API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry when the
// package is loaded.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dispatch"

// ── Order metrics ─────────────────────────────────────────────────────────────

// OrdersSubmittedTotal counts order submissions.
// Label:
//   - result: "created", "notification_failed" or "error"
var OrdersSubmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_submitted_total",
		Help:      "Total number of order submissions, by result.",
	},
	[]string{"result"},
)

// AssignmentsTotal counts assignment attempts.
// Label:
//   - result: "won", "already_assigned" or "error"
var AssignmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignments_total",
		Help:      "Total number of order assignment attempts, by result.",
	},
	[]string{"result"},
)

// StatusUpdatesTotal counts status updates.
// Labels:
//   - status: the requested target status
//   - result: "ok" or the rejection reason (e.g. "invalid_transition", "not_owner")
var StatusUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_updates_total",
		Help:      "Total number of order status updates, by target status and result.",
	},
	[]string{"status", "result"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts notification deliveries.
// Label:
//   - result: "sent", "failed" (retries exhausted) or "rejected" (queue full or stopped)
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of order notifications, by delivery result.",
	},
	[]string{"result"},
)

// NotificationQueueDepth tracks the number of notifications waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// NotificationDuration measures how long a notification takes, retries included.
// Label:
//   - result: "sent" or "failed"
var NotificationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "notification_duration_seconds",
		Help:      "Duration of notification delivery from dequeue to final attempt.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
