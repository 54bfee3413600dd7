package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 100 * time.Millisecond
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *Event) error

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// DeadLetterPublisher receives messages the consumer gave up on.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, original kafka.Message, lastErr error, consumerGroup string) error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// ConsumerOption customises a Consumer.
type ConsumerOption func(*Consumer)

// WithDLQ forwards undecodable or repeatedly failing messages to dlq
// before they are committed.
func WithDLQ(dlq DeadLetterPublisher) ConsumerOption {
	return func(c *Consumer) { c.dlq = dlq }
}

// WithRetry overrides the attempt count and the linear backoff step.
func WithRetry(maxAttempts int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		c.backoff = backoff
	}
}

// Consumer reads events from a single topic and dispatches them to a Handler.
// A message is committed once it is handled, dead-lettered or found to be
// undecodable; it is left uncommitted only when the context ends mid-retry.
type Consumer struct {
	reader      MessageReader
	handler     Handler
	logger      *slog.Logger
	dlq         DeadLetterPublisher
	maxAttempts int
	backoff     time.Duration
	closeOnce   sync.Once
}

// NewConsumer creates a consumer for cfg.Topic in cfg.GroupID.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, handler, logger, opts...)
}

// NewConsumerWithReader creates a consumer around an existing reader.
func NewConsumerWithReader(r MessageReader, handler Handler, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:      r,
		handler:     handler,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	cfg := c.reader.Config()
	c.logger.Info("consumer started",
		slog.String("topic", cfg.Topic),
		slog.String("group", cfg.GroupID),
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("topic", cfg.Topic))
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			if !c.sleep(ctx, c.backoff) {
				return c.Close()
			}
			continue
		}

		c.process(ctx, msg, cfg.GroupID)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message, group string) {
	ConsumerMessagesReceived.WithLabelValues(msg.Topic, group).Inc()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		ConsumerMessagesFailed.WithLabelValues(msg.Topic, group).Inc()
		c.deadLetter(ctx, msg, err, group)
		c.commit(ctx, msg)
		return
	}

	hctx := ExtractTraceContext(ctx, msg.Headers)
	start := time.Now()
	lastErr := c.handleWithRetry(hctx, msg, event)
	ConsumerProcessingDuration.WithLabelValues(msg.Topic, group).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Error("handler failed after all retries",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", lastErr.Error()),
		)
		ConsumerMessagesFailed.WithLabelValues(msg.Topic, group).Inc()
		c.deadLetter(ctx, msg, lastErr, group)
	} else {
		ConsumerMessagesProcessed.WithLabelValues(msg.Topic, group).Inc()
	}

	c.commit(ctx, msg)
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message, event *Event) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			return nil
		}

		c.logger.Warn("handler failed, will retry",
			slog.String("event_type", event.EventType),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)

		if attempt < c.maxAttempts && !c.sleep(ctx, time.Duration(attempt)*c.backoff) {
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error, group string) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, group); err != nil {
		c.logger.Error("failed to dead-letter message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return
	}
	ConsumerDLQPublished.WithLabelValues(msg.Topic, group).Inc()
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// sleep waits for d and reports false if ctx ended first.
func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Close closes the reader. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
