// Package service exposes the review registry to transports, adding
// logging, metrics, tracing and domain-event publishing around it.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/reviewregistry/internal/domain"
	"github.com/utafrali/reviewregistry/internal/registry"
	"github.com/utafrali/reviewregistry/pkg/pagination"
)

const tracerName = "github.com/utafrali/reviewregistry/internal/service"

// EventPublisher publishes review domain events. *event.Producer satisfies it.
type EventPublisher interface {
	PublishReviewSubmitted(ctx context.Context, review domain.Review) error
	PublishReviewUpdated(ctx context.Context, review domain.Review, update domain.ReviewUpdate) error
}

// ReviewService wraps a Registry. Events are published after the registry
// has committed a mutation and a publish failure never undoes it.
type ReviewService struct {
	registry *registry.Registry
	events   EventPublisher
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewReviewService creates a review service. events may be nil.
func NewReviewService(reg *registry.Registry, events EventPublisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		registry: reg,
		events:   events,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// SetAuthority sets the authority principal once.
func (s *ReviewService) SetAuthority(ctx context.Context, caller domain.Caller, principal string) bool {
	ctx, span := s.start(ctx, "SetAuthority", caller)
	defer span.End()

	ok := s.registry.SetAuthority(caller, principal)
	s.recordSetting(ctx, span, "set_authority", ok, slog.String("authority", principal))
	return ok
}

// SetReviewFee changes the review fee.
func (s *ReviewService) SetReviewFee(ctx context.Context, caller domain.Caller, amount uint64) bool {
	ctx, span := s.start(ctx, "SetReviewFee", caller)
	defer span.End()

	ok := s.registry.SetReviewFee(caller, amount)
	s.recordSetting(ctx, span, "set_review_fee", ok, slog.Uint64("amount", amount))
	return ok
}

func (s *ReviewService) recordSetting(ctx context.Context, span trace.Span, op string, ok bool, attr slog.Attr) {
	span.SetAttributes(attribute.Bool("registry.updated", ok))
	if !ok {
		operationsTotal.WithLabelValues(op, "refused").Inc()
		s.logger.DebugContext(ctx, "registry setting refused", slog.String("operation", op), attr)
		return
	}
	operationsTotal.WithLabelValues(op, outcomeOK).Inc()
	s.logger.InfoContext(ctx, "registry setting changed", slog.String("operation", op), attr)
}

// SubmitReview records a new review and publishes review.submitted.
func (s *ReviewService) SubmitReview(ctx context.Context, caller domain.Caller, in registry.SubmitInput) (uint64, error) {
	ctx, span := s.start(ctx, "SubmitReview", caller,
		attribute.Int64("registry.business_id", int64(in.BusinessID)),
		attribute.Int64("registry.purchase_token_id", int64(in.PurchaseTokenID)),
	)
	defer span.End()

	start := time.Now()
	review, err := s.registry.Submit(ctx, caller, in)
	operationDuration.WithLabelValues("submit_review").Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(ctx, span, "submit_review", err,
			slog.Uint64("business_id", in.BusinessID),
			slog.Uint64("purchase_token_id", in.PurchaseTokenID),
		)
		return 0, err
	}

	id := review.ID
	operationsTotal.WithLabelValues("submit_review", outcomeOK).Inc()
	span.SetAttributes(attribute.Int64("registry.review_id", int64(id)))
	s.logger.InfoContext(ctx, "review submitted",
		slog.Uint64("review_id", id),
		slog.Uint64("business_id", in.BusinessID),
		slog.Int("rating", in.Rating),
	)

	if s.events != nil {
		if perr := s.events.PublishReviewSubmitted(ctx, review); perr != nil {
			s.publishFailed(ctx, "review.submitted", id, perr)
		}
	}
	return id, nil
}

// UpdateReview edits an existing review and publishes review.updated.
func (s *ReviewService) UpdateReview(ctx context.Context, caller domain.Caller, id uint64, rating int, comment string) error {
	ctx, span := s.start(ctx, "UpdateReview", caller, attribute.Int64("registry.review_id", int64(id)))
	defer span.End()

	start := time.Now()
	review, update, err := s.registry.Update(caller, id, rating, comment)
	operationDuration.WithLabelValues("update_review").Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(ctx, span, "update_review", err, slog.Uint64("review_id", id))
		return err
	}

	operationsTotal.WithLabelValues("update_review", outcomeOK).Inc()
	s.logger.InfoContext(ctx, "review updated",
		slog.Uint64("review_id", id),
		slog.Int("rating", rating),
	)

	if s.events != nil {
		if perr := s.events.PublishReviewUpdated(ctx, review, update); perr != nil {
			s.publishFailed(ctx, "review.updated", id, perr)
		}
	}
	return nil
}

// GetReview returns a review by id.
func (s *ReviewService) GetReview(_ context.Context, id uint64) (domain.Review, error) {
	return s.registry.GetReview(id)
}

// LatestUpdate returns the latest update of a review.
func (s *ReviewService) LatestUpdate(_ context.Context, id uint64) (domain.ReviewUpdate, error) {
	return s.registry.LatestUpdate(id)
}

// ReviewCount returns the number of reviews ever created.
func (s *ReviewService) ReviewCount(_ context.Context) uint64 {
	return s.registry.ReviewCount()
}

// ReviewExists reports whether a purchase token was redeemed.
func (s *ReviewService) ReviewExists(_ context.Context, purchaseTokenID uint64) bool {
	return s.registry.ReviewExists(purchaseTokenID)
}

// Aggregate returns the review summary of a business.
func (s *ReviewService) Aggregate(_ context.Context, businessID uint64) domain.BusinessAggregate {
	return s.registry.Aggregate(businessID)
}

// ListBusinessReviews returns one page of a business's reviews in
// submission order.
func (s *ReviewService) ListBusinessReviews(_ context.Context, businessID uint64, p pagination.Params) pagination.Result[domain.Review] {
	reviews, total := s.registry.BusinessReviews(businessID, p.Offset(), p.PerPage)
	return pagination.NewResult(reviews, total, p)
}

// Settings returns the registry configuration view.
func (s *ReviewService) Settings(_ context.Context) domain.Settings {
	return s.registry.Settings()
}

func (s *ReviewService) start(ctx context.Context, op string, caller domain.Caller, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("registry.caller", caller.Principal),
		attribute.Int64("registry.height", int64(caller.Height)),
	)
	return s.tracer.Start(ctx, "registry."+op, trace.WithAttributes(attrs...))
}

// fail records a failed mutation. Rejections are expected traffic and log
// at debug; anything else is an infrastructure failure.
func (s *ReviewService) fail(ctx context.Context, span trace.Span, op string, err error, attrs ...any) {
	if kind := domain.Kind(err); kind != "" {
		operationsTotal.WithLabelValues(op, strings.ToLower(kind)).Inc()
		span.SetAttributes(attribute.String("registry.rejection", kind))
		s.logger.DebugContext(ctx, "registry rejected operation",
			append(attrs, slog.String("operation", op), slog.String("kind", kind))...,
		)
		return
	}

	operationsTotal.WithLabelValues(op, outcomeError).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.ErrorContext(ctx, "registry operation failed",
		append(attrs, slog.String("operation", op), slog.String("error", err.Error()))...,
	)
}

func (s *ReviewService) publishFailed(ctx context.Context, eventType string, id uint64, err error) {
	eventPublishFailures.WithLabelValues(eventType).Inc()
	s.logger.ErrorContext(ctx, "failed to publish review event",
		slog.String("event_type", eventType),
		slog.Uint64("review_id", id),
		slog.String("error", err.Error()),
	)
}
