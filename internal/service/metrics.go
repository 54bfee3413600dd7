package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_operations_total",
		Help: "Registry operations by outcome (ok, rejected kind, or error)",
	}, []string{"operation", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registry_operation_duration_seconds",
		Help:    "Duration of registry mutations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	eventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_event_publish_failures_total",
		Help: "Review events that could not be published",
	}, []string{"event_type"})
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)
