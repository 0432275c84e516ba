package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlegate_settlements_total",
		Help: "The total number of settlement attempts",
	}, []string{"status", "protocol"})

	ValidationRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlegate_validation_rejects_total",
		Help: "Total validation pipeline rejections",
	}, []string{"reason"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlegate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	FeeCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlegate_fee_collected_total",
		Help: "Fee amounts retained for relayers, in base units",
	}, []string{"token"})

	AdminMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlegate_admin_mutations_total",
		Help: "Administrative state mutations",
	}, []string{"action"})
)
