package kafka

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Registered(t *testing.T) {
	ConsumerMessagesReceived.WithLabelValues("t", "g")
	ConsumerMessagesProcessed.WithLabelValues("t", "g")
	ConsumerMessagesFailed.WithLabelValues("t", "g")
	ConsumerProcessingDuration.WithLabelValues("t", "g")
	ConsumerMessagesDuplicate.WithLabelValues("x")
	ConsumerDLQPublished.WithLabelValues("t", "g")
	ProducerMessagesPublished.WithLabelValues("t")
	ProducerPublishErrors.WithLabelValues("t")
	ProducerPublishDuration.WithLabelValues("t")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"kafka_consumer_messages_received_total",
		"kafka_consumer_messages_processed_total",
		"kafka_consumer_messages_failed_total",
		"kafka_consumer_processing_duration_seconds",
		"kafka_consumer_messages_duplicate_total",
		"kafka_consumer_dlq_published_total",
		"kafka_producer_messages_published_total",
		"kafka_producer_publish_errors_total",
		"kafka_producer_publish_duration_seconds",
	} {
		assert.True(t, names[want], want)
	}
}

func TestProducerErrorCounter_Increments(t *testing.T) {
	before := testutil.ToFloat64(ProducerPublishErrors.WithLabelValues("metrics-test-topic"))
	ProducerPublishErrors.WithLabelValues("metrics-test-topic").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ProducerPublishErrors.WithLabelValues("metrics-test-topic")))
}
