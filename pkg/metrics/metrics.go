package metrics

import (
	"strings"

	apperrors "planner/pkg/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SlotsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_slots_created_total",
			Help: "Slots created, standalone or as part of a panel",
		},
		[]string{"source"},
	)

	PanelsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_panels_created_total",
			Help: "Panels created",
		},
	)

	SlotsTaken = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_slot_takes_total",
			Help: "Take and assign attempts by occupant type and outcome",
		},
		[]string{"occupant", "outcome"},
	)

	SlotsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_slot_releases_total",
			Help: "Occupants released from slots",
		},
		[]string{"occupant"},
	)

	ConcurrencyConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_concurrency_conflicts_total",
			Help: "Optimistic write conflicts by operation",
		},
		[]string{"operation"},
	)

	SlotsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_slots_published_total",
			Help: "Slots moved to published",
		},
	)

	PanelsPromoted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_panels_promoted_total",
			Help: "Panels promoted to published once all their slots were published",
		},
	)

	Reschedules = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_reschedules_total",
			Help: "Reschedule operations by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_notifications_total",
			Help: "Notification events by type and status",
		},
		[]string{"type", "status"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "planner_notification_queue_depth",
			Help: "Notification events waiting to be published",
		},
	)

	KafkaMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_kafka_messages_total",
			Help: "Kafka messages by direction, topic and status",
		},
		[]string{"direction", "topic", "status"},
	)

	KafkaDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_kafka_duration_seconds",
			Help:    "Kafka publish and consume latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction", "topic"},
	)
)

const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeConflict = "conflict"
	OutcomeDropped  = "dropped"
)

// Outcome labels err: success, conflict, or the lowercased application error code.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code == apperrors.CodeConcurrencyConflict {
		return OutcomeConflict
	}
	if appErr.Code == apperrors.CodeInternal {
		return OutcomeFailure
	}
	return strings.ToLower(appErr.Code)
}
