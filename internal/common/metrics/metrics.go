// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatches_completed_total",
			Help: "Total number of notification dispatches completed",
		},
		[]string{"channel", "scope"},
	)

	DispatchesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatches_failed_total",
			Help: "Total number of notification dispatches failed",
		},
		[]string{"channel", "scope", "error_code"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notification_dispatch_duration_seconds",
			Help: "Duration of notification dispatch in seconds",
		},
		[]string{"channel"},
	)

	BatchesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_batches_sent_total",
			Help: "Total number of recipient batches handed to a channel adapter",
		},
		[]string{"channel"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_provider_calls_total",
			Help: "Total number of outbound provider API calls",
		},
		[]string{"provider", "status"},
	)
)
