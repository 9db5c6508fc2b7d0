package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Alert metrics
var (
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_total",
			Help: "Total number of emergency alert requests",
		},
		[]string{"result"}, // dispatched, no_contacts, lookup_failed, cooldown
	)

	AlertContacts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alert_contacts",
			Help:    "Number of contacts notified per alert",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		},
	)

	AlertDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alert_dispatch_duration_seconds",
			Help:    "Duration of a full alert dispatch including batching delays",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	AlertBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alert_batches_total",
			Help: "Total number of dispatch batches sent",
		},
	)

	AlertRecipientsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_recipients_total",
			Help: "Total number of alert recipients by final outcome",
		},
		[]string{"result"}, // sent, failed
	)
)

// Delivery metrics
var (
	DeliveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_attempts_total",
			Help: "Total number of provider send attempts",
		},
		[]string{"provider", "outcome"}, // sent, retryable, terminal, unauthorized, unavailable
	)

	DeliverySendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_send_duration_seconds",
			Help:    "Duration of single provider send attempts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	RemindersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medication_reminders_total",
			Help: "Total number of medication reminder emails",
		},
		[]string{"result"}, // sent, failed
	)
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIAuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_auth_failures_total",
			Help: "Total number of API authentication failures",
		},
	)
)

// Database metrics
var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"query"},
	)
)

// Provider health metrics
var (
	ProviderHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_healthy",
			Help: "Whether the email provider passed its last health check (1) or not (0)",
		},
		[]string{"provider"},
	)
)
