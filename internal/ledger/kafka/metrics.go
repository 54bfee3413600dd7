package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	debitsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_fee_debits_enqueued_total",
		Help: "Fee debit instructions accepted into the publish queue",
	})

	debitsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_fee_debits_dropped_total",
		Help: "Fee debit instructions that were never published",
	}, []string{"reason"})

	debitsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_fee_debits_published_total",
		Help: "Fee debit instructions published to Kafka",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "registry_fee_debit_queue_depth",
		Help: "Fee debit instructions waiting to be published",
	})
)

const (
	dropQueueFull     = "queue_full"
	dropStopped       = "stopped"
	dropPublishFailed = "publish_failed"
	dropEncodeFailed  = "encode_failed"
)
