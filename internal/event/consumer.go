package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/reviewregistry/internal/domain"
	pkgkafka "github.com/utafrali/reviewregistry/pkg/kafka"
)

// Kafka topics consumed to maintain the purchase-token projection.
const (
	TopicTokenIssued      = "ecommerce.purchase.token_issued"
	TopicTokenInvalidated = "ecommerce.purchase.token_invalidated"
)

// TokenStore is the writable side of the token projection.
type TokenStore interface {
	Put(ctx context.Context, token domain.PurchaseToken) error
	Invalidate(ctx context.Context, tokenID uint64) error
}

// TokenIssuedData is the expected payload of a purchase.token_issued event.
type TokenIssuedData struct {
	TokenID uint64 `json:"token_id"`
	Owner   string `json:"owner"`
}

// TokenInvalidatedData is the expected payload of a
// purchase.token_invalidated event.
type TokenInvalidatedData struct {
	TokenID uint64 `json:"token_id"`
}

// Consumer projects purchase-token events into a TokenStore.
type Consumer struct {
	store  TokenStore
	logger *slog.Logger
}

// NewConsumer creates a token projection consumer.
func NewConsumer(store TokenStore, logger *slog.Logger) *Consumer {
	return &Consumer{store: store, logger: logger}
}

// Handlers maps each consumed topic to its handler.
func (c *Consumer) Handlers() map[string]pkgkafka.Handler {
	return map[string]pkgkafka.Handler{
		TopicTokenIssued:      c.HandleTokenIssued,
		TopicTokenInvalidated: c.HandleTokenInvalidated,
	}
}

// HandleTokenIssued stores a newly issued, valid token.
func (c *Consumer) HandleTokenIssued(ctx context.Context, event *pkgkafka.Event) error {
	var data TokenIssuedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal purchase.token_issued data: %w", err)
	}
	if data.Owner == "" {
		return fmt.Errorf("purchase.token_issued %d: missing owner", data.TokenID)
	}

	token := domain.PurchaseToken{ID: data.TokenID, Owner: data.Owner, Valid: true}
	if err := c.store.Put(ctx, token); err != nil {
		return fmt.Errorf("store purchase token %d: %w", data.TokenID, err)
	}

	c.logger.InfoContext(ctx, "purchase token projected",
		slog.Uint64("token_id", data.TokenID),
		slog.String("owner", data.Owner),
	)
	return nil
}

// HandleTokenInvalidated marks a token invalid.
func (c *Consumer) HandleTokenInvalidated(ctx context.Context, event *pkgkafka.Event) error {
	var data TokenInvalidatedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal purchase.token_invalidated data: %w", err)
	}

	if err := c.store.Invalidate(ctx, data.TokenID); err != nil {
		return fmt.Errorf("invalidate purchase token %d: %w", data.TokenID, err)
	}

	c.logger.InfoContext(ctx, "purchase token invalidated", slog.Uint64("token_id", data.TokenID))
	return nil
}
