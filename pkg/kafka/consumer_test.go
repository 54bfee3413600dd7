package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDLQ struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	causes []error
}

func (d *recordingDLQ) Publish(_ context.Context, original kafka.Message, lastErr error, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, original)
	d.causes = append(d.causes, lastErr)
	return nil
}

func (d *recordingDLQ) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.msgs)
}

func eventMessage(t *testing.T, topic string, offset int64) kafka.Message {
	t.Helper()
	event, err := NewEvent("purchase.token_issued", "5", "purchase_token", "purchase-service", map[string]any{"token_id": 5})
	require.NoError(t, err)
	raw, err := event.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Offset: offset, Value: raw}
}

// runConsumer starts c and returns a stop function that cancels and waits.
func runConsumer(t *testing.T, c *Consumer) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("consumer did not stop")
			return nil
		}
	}
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	reader := newFakeReader("ecommerce.purchase.token_issued", "review-registry",
		eventMessage(t, "ecommerce.purchase.token_issued", 0),
		eventMessage(t, "ecommerce.purchase.token_issued", 1),
	)

	var handled atomic.Int32
	c := NewConsumerWithReader(reader, func(_ context.Context, e *Event) error {
		assert.Equal(t, "purchase.token_issued", e.EventType)
		handled.Add(1)
		return nil
	}, testLogger())

	stop := runConsumer(t, c)
	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	assert.Equal(t, int32(2), handled.Load())
	assert.Equal(t, 1, reader.closed)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	reader := newFakeReader("t", "g", eventMessage(t, "t", 0))

	var calls atomic.Int32
	dlq := &recordingDLQ{}
	c := NewConsumerWithReader(reader, func(context.Context, *Event) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, testLogger(), WithRetry(3, time.Millisecond), WithDLQ(dlq))

	stop := runConsumer(t, c)
	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, dlq.count())
}

func TestConsumer_ExhaustedRetriesGoToDLQ(t *testing.T) {
	reader := newFakeReader("t", "g", eventMessage(t, "t", 9))

	var calls atomic.Int32
	dlq := &recordingDLQ{}
	handlerErr := errors.New("token store down")
	c := NewConsumerWithReader(reader, func(context.Context, *Event) error {
		calls.Add(1)
		return handlerErr
	}, testLogger(), WithRetry(2, time.Millisecond), WithDLQ(dlq))

	stop := runConsumer(t, c)
	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	assert.Equal(t, int32(2), calls.Load())
	require.Equal(t, 1, dlq.count())
	assert.Equal(t, int64(9), dlq.msgs[0].Offset)
	assert.ErrorIs(t, dlq.causes[0], handlerErr)
}

func TestConsumer_UndecodableMessage(t *testing.T) {
	reader := newFakeReader("t", "g", kafka.Message{Topic: "t", Value: []byte("not json")})

	dlq := &recordingDLQ{}
	c := NewConsumerWithReader(reader, func(context.Context, *Event) error {
		t.Error("handler must not run for undecodable messages")
		return nil
	}, testLogger(), WithDLQ(dlq))

	stop := runConsumer(t, c)
	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, stop())
	assert.Equal(t, 1, dlq.count())
}

func TestConsumer_CloseIdempotent(t *testing.T) {
	reader := newFakeReader("t", "g")
	c := NewConsumerWithReader(reader, nil, testLogger())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, reader.closed)
}
