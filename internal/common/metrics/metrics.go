// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total number of inventory webhook events by terminal outcome",
		},
		[]string{"outcome"},
	)

	WebhookSignatureRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_rejections_total",
			Help: "Total number of webhook events rejected on signature mismatch",
		},
	)

	NotificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of subscriber notifications sent successfully",
		},
	)

	NotificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of subscriber notification sends that failed",
		},
	)

	FallbackAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_alerts_total",
			Help: "Total number of operator fallback alerts by reason",
		},
		[]string{"reason"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "webhook_pipeline_duration_seconds",
			Help: "Duration of webhook pipeline processing in seconds",
		},
	)

	FanoutBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fanout_batch_size",
			Help:    "Number of matched subscriptions per dispatched event",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)
