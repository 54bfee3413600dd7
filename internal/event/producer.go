package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/reviewregistry/internal/domain"
	pkgkafka "github.com/utafrali/reviewregistry/pkg/kafka"
	"github.com/utafrali/reviewregistry/pkg/logger"
)

// Kafka topics for review domain events.
const (
	TopicReviewSubmitted = "ecommerce.review.submitted"
	TopicReviewUpdated   = "ecommerce.review.updated"
)

// Aggregate type constant.
const AggregateTypeReview = "review"

// SourceReviewRegistry identifies events originating from this service.
const SourceReviewRegistry = "review-registry"

// Publisher sends an event to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ReviewID        uint64      `json:"review_id"`
	PurchaseTokenID uint64      `json:"purchase_token_id"`
	BusinessID      uint64      `json:"business_id"`
	Reviewer        string      `json:"reviewer"`
	Rating          int         `json:"rating"`
	Comment         string      `json:"comment"`
	Timestamp       uint64      `json:"timestamp"`
	Hash            domain.Hash `json:"hash"`
}

// ReviewUpdatedData is the payload for a review.updated event.
type ReviewUpdatedData struct {
	ReviewID   uint64 `json:"review_id"`
	BusinessID uint64 `json:"business_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	Timestamp  uint64 `json:"timestamp"`
	Updater    string `json:"updater"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a review event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review domain.Review) error {
	data := ReviewSubmittedData{
		ReviewID:        review.ID,
		PurchaseTokenID: review.PurchaseTokenID,
		BusinessID:      review.BusinessID,
		Reviewer:        review.Reviewer,
		Rating:          review.Rating,
		Comment:         review.Comment,
		Timestamp:       review.Timestamp,
		Hash:            review.Hash,
	}
	return p.publish(ctx, TopicReviewSubmitted, "review.submitted", review.ID, data)
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review domain.Review, update domain.ReviewUpdate) error {
	data := ReviewUpdatedData{
		ReviewID:   review.ID,
		BusinessID: review.BusinessID,
		Rating:     update.Rating,
		Comment:    update.Comment,
		Timestamp:  update.Timestamp,
		Updater:    update.Updater,
	}
	return p.publish(ctx, TopicReviewUpdated, "review.updated", review.ID, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType string, reviewID uint64, data any) error {
	event, err := pkgkafka.NewEvent(eventType, strconv.FormatUint(reviewID, 10), AggregateTypeReview, SourceReviewRegistry, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "review event published",
		slog.String("event_type", eventType),
		slog.Uint64("review_id", reviewID),
	)
	return nil
}
