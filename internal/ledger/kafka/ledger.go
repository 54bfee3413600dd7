// Package kafka publishes fee debit instructions to Kafka from a bounded
// in-process queue so the registry never waits on the broker.
package kafka

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/reviewregistry/internal/domain"
	pkgkafka "github.com/utafrali/reviewregistry/pkg/kafka"
	"github.com/utafrali/reviewregistry/pkg/logger"
)

// FeeDebitEventType is the event type of a published debit instruction.
const FeeDebitEventType = "registry.fee_debit"

// Topic receives fee debit instructions.
var Topic = pkgkafka.Topic("registry", "fee_debit")

const source = "review-registry"

// Publisher sends an event to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Config tunes the publish queue.
type Config struct {
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	// DrainTimeout bounds how long Start keeps publishing queued debits
	// after its context ends.
	DrainTimeout time.Duration
}

// DefaultConfig returns queue defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:    1024,
		MaxAttempts:  3,
		RetryBackoff: 200 * time.Millisecond,
		DrainTimeout: 5 * time.Second,
	}
}

type queuedDebit struct {
	debit         domain.FeeDebit
	span          trace.SpanContext
	correlationID string
}

// Ledger implements registry.FeeLedger. Debit only enqueues; Start runs the
// worker that publishes.
type Ledger struct {
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
	queue     chan queuedDebit
	// mu orders enqueues against the switch to stopped, so nothing lands
	// in the queue after the final drain.
	mu        sync.RWMutex
	stopped   bool
	done      chan struct{}
	doneOnce  sync.Once
}

// NewLedger creates a ledger publishing through p.
func NewLedger(p Publisher, cfg Config, logger *slog.Logger) *Ledger {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Ledger{
		publisher: p,
		cfg:       cfg,
		logger:    logger,
		queue:     make(chan queuedDebit, cfg.QueueSize),
		done:      make(chan struct{}),
	}
}

// Debit enqueues the instruction without blocking. When the queue is full
// or the worker has stopped, the instruction is dropped and counted.
func (l *Ledger) Debit(ctx context.Context, debit domain.FeeDebit) {
	item := queuedDebit{
		debit:         debit,
		span:          trace.SpanContextFromContext(ctx),
		correlationID: logger.CorrelationIDFromContext(ctx),
	}

	l.mu.RLock()
	reason := ""
	if l.stopped {
		reason = dropStopped
	} else {
		select {
		case l.queue <- item:
		default:
			reason = dropQueueFull
		}
	}
	l.mu.RUnlock()

	if reason != "" {
		l.drop(ctx, debit, reason)
		return
	}
	debitsEnqueued.Inc()
	queueDepth.Set(float64(len(l.queue)))
}

func (l *Ledger) drop(ctx context.Context, debit domain.FeeDebit, reason string) {
	debitsDropped.WithLabelValues(reason).Inc()
	l.logger.ErrorContext(ctx, "fee debit dropped",
		slog.String("reason", reason),
		slog.Uint64("review_id", debit.ReviewID),
		slog.Uint64("amount", debit.Amount),
		slog.String("from", debit.From),
		slog.String("to", debit.To),
	)
}

// Start publishes queued debits until ctx ends, then drains what is left
// within DrainTimeout. It returns nil.
func (l *Ledger) Start(ctx context.Context) error {
	defer l.doneOnce.Do(func() { close(l.done) })
	l.logger.Info("fee ledger worker started", slog.String("topic", Topic))

	for {
		select {
		case item := <-l.queue:
			l.publish(ctx, item)
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.mu.Unlock()
			l.drain()
			return nil
		}
	}
}

func (l *Ledger) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.DrainTimeout)
	defer cancel()

	for {
		select {
		case item := <-l.queue:
			l.publish(ctx, item)
		default:
			l.logger.Info("fee ledger worker stopped")
			return
		}
	}
}

// Done is closed once Start has returned.
func (l *Ledger) Done() <-chan struct{} {
	return l.done
}

func (l *Ledger) publish(ctx context.Context, item queuedDebit) {
	queueDepth.Set(float64(len(l.queue)))
	if item.span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, item.span)
	}
	if item.correlationID != "" {
		ctx = logger.WithCorrelationID(ctx, item.correlationID)
	}

	d := item.debit
	event, err := pkgkafka.NewEvent(FeeDebitEventType, strconv.FormatUint(d.ReviewID, 10), "review", source, d)
	if err != nil {
		l.drop(ctx, d, dropEncodeFailed)
		return
	}
	event.WithCorrelationID(item.correlationID)

	for attempt := 1; ; attempt++ {
		err = l.publisher.Publish(ctx, Topic, event)
		if err == nil {
			debitsPublished.Inc()
			return
		}
		if attempt >= l.cfg.MaxAttempts || !l.wait(ctx, l.cfg.RetryBackoff*time.Duration(attempt)) {
			break
		}
		l.logger.WarnContext(ctx, "retrying fee debit publish",
			slog.Int("attempt", attempt),
			slog.Uint64("review_id", d.ReviewID),
			slog.String("error", err.Error()),
		)
	}
	l.drop(ctx, d, dropPublishFailed)
}

func (l *Ledger) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
