// Package seed fills the business directory and the purchase-token
// projection with generated fixtures for local and staging environments.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/utafrali/reviewregistry/internal/domain"
	"github.com/utafrali/reviewregistry/internal/event"
	pkgkafka "github.com/utafrali/reviewregistry/pkg/kafka"
)

// BusinessRegistrar inserts businesses. *oraclepg.BusinessDirectory
// satisfies it.
type BusinessRegistrar interface {
	Register(ctx context.Context, businessID uint64, name string) error
}

// TokenSink receives minted purchase tokens.
type TokenSink interface {
	Put(ctx context.Context, token domain.PurchaseToken) error
}

// Plan describes what to generate. Ids are assigned sequentially from the
// first id of each range.
type Plan struct {
	FirstBusinessID uint64
	Businesses      int
	FirstTokenID    uint64
	Tokens          int
	Owners          []string
	Seed            uint64
}

// Report summarizes a seeding run.
type Report struct {
	Businesses int
	Tokens     int
}

var namePrefixes = []string{"Blue", "Corner", "Golden", "Harbor", "Maple", "North", "Old Town", "Sunny"}
var nameKinds = []string{"Bakery", "Bistro", "Books", "Cafe", "Garage", "Market", "Salon", "Tailor"}

// BusinessName builds a display name for a business id from rng.
func BusinessName(id uint64, rng *rand.Rand) string {
	return fmt.Sprintf("%s %s #%d",
		namePrefixes[rng.IntN(len(namePrefixes))],
		nameKinds[rng.IntN(len(nameKinds))],
		id)
}

// Run registers plan.Businesses businesses and mints plan.Tokens tokens,
// cycling through plan.Owners. Either target may be nil to skip it.
func Run(ctx context.Context, plan Plan, businesses BusinessRegistrar, tokens TokenSink, logger *slog.Logger) (Report, error) {
	var rep Report
	rng := rand.New(rand.NewPCG(plan.Seed, plan.Seed^0x9e3779b97f4a7c15))

	if businesses != nil {
		for i := 0; i < plan.Businesses; i++ {
			id := plan.FirstBusinessID + uint64(i)
			if err := businesses.Register(ctx, id, BusinessName(id, rng)); err != nil {
				return rep, fmt.Errorf("register business %d: %w", id, err)
			}
			rep.Businesses++
		}
		logger.Info("businesses seeded", slog.Int("count", rep.Businesses))
	}

	if tokens != nil {
		if plan.Tokens > 0 && len(plan.Owners) == 0 {
			return rep, fmt.Errorf("seeding %d tokens requires at least one owner", plan.Tokens)
		}
		for i := 0; i < plan.Tokens; i++ {
			tok := domain.PurchaseToken{
				ID:    plan.FirstTokenID + uint64(i),
				Owner: plan.Owners[i%len(plan.Owners)],
				Valid: true,
			}
			if err := tokens.Put(ctx, tok); err != nil {
				return rep, fmt.Errorf("mint token %d: %w", tok.ID, err)
			}
			rep.Tokens++
		}
		logger.Info("purchase tokens seeded", slog.Int("count", rep.Tokens))
	}

	return rep, nil
}

// EventTokenSink mints tokens by publishing purchase.token_issued events,
// so running registries pick them up through their projection consumer.
type EventTokenSink struct {
	publisher event.Publisher
	source    string
}

// NewEventTokenSink creates a sink publishing through p.
func NewEventTokenSink(p event.Publisher, source string) *EventTokenSink {
	return &EventTokenSink{publisher: p, source: source}
}

// Put publishes a purchase.token_issued event for token. Invalid tokens
// are rejected since the event stream has no way to issue them.
func (s *EventTokenSink) Put(ctx context.Context, token domain.PurchaseToken) error {
	if !token.Valid {
		return fmt.Errorf("token %d: cannot issue an invalid token", token.ID)
	}
	id := strconv.FormatUint(token.ID, 10)
	evt, err := pkgkafka.NewEvent("purchase.token_issued", id, "purchase_token", s.source,
		event.TokenIssuedData{TokenID: token.ID, Owner: token.Owner})
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, event.TopicTokenIssued, evt)
}
