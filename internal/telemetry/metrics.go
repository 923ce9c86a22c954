package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InitiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momo_initiations_total",
		Help: "Request-to-pay initiations by outcome.",
	}, []string{"outcome"})

	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momo_callbacks_total",
		Help: "Provider callbacks by outcome.",
	}, []string{"outcome"})

	FanoutFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momo_fanout_step_failures_total",
		Help: "Failed fan-out steps after a successful payment.",
	}, []string{"step"})

	StatusPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momo_status_polls_total",
		Help: "Payment status queries by answer source.",
	}, []string{"source"})

	EmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momo_emails_total",
		Help: "Order emails by outcome.",
	}, []string{"outcome"})

	EventPublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "momo_event_publish_failures_total",
		Help: "State-change events that could not be published.",
	}, []string{"sink"})

	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "momo_provider_request_duration_seconds",
		Help:    "Latency of MoMo API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})
)
