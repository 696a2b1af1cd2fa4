package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingIntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_booking_intents_total",
		Help: "Booking payment intents by outcome (created, existing)",
	}, []string{"outcome"})

	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_settlements_total",
		Help: "Settled booking payments by token mint",
	}, []string{"mint"})

	SettledVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_settled_volume_total",
		Help: "Total settled base units by token mint and leg (fee, destination)",
	}, []string{"mint", "leg"})

	Rejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_rejects_total",
		Help: "Rejected operations by operation and error code",
	}, []string{"operation", "code"})

	ConfigUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygate_config_updates_total",
		Help: "Applied config field changes",
	}, []string{"field"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paygate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
