package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PermitsSigned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permitgate_permits_signed_total",
		Help: "The total number of permits signed",
	}, []string{"action", "key_type"})

	PermitsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permitgate_permits_built_total",
		Help: "The total number of envelopes built from exchange requests",
	}, []string{"action"})

	AdapterRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permitgate_adapter_rejects_total",
		Help: "Exchange requests rejected at input validation",
	}, []string{"reason"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "permitgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
