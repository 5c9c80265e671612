package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JoinRequestTransitions counts team-formation operations by action (request|approve|deny|remove)
	// and result (success|rejected|error).
	JoinRequestTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_join_request_transitions_total",
			Help: "Total number of join request operations",
		},
		[]string{"action", "result"},
	)

	// ProjectUpdateConflicts counts optimistic-concurrency conflicts while saving a project.
	ProjectUpdateConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_project_update_conflicts_total",
			Help: "Number of project saves retried because of a concurrent update",
		},
	)

	// TeamsFormed counts approvals that filled a team to capacity.
	TeamsFormed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_teams_formed_total",
			Help: "Number of project teams that reached capacity",
		},
	)

	// NotificationDeliveries counts notification sink deliveries by channel and result.
	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_notification_deliveries_total",
			Help: "Notification deliveries by channel",
		},
		[]string{"channel", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campus_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RealtimeConnections tracks open websocket subscribers.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campus_realtime_connections",
			Help: "Open realtime websocket connections",
		},
	)

	// MaintenanceRecordsPurged counts rows removed by retention jobs.
	MaintenanceRecordsPurged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_maintenance_records_purged_total",
			Help: "Rows removed by maintenance jobs",
		},
		[]string{"job"},
	)
)
