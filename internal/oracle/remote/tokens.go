// Package remote verifies purchase tokens against the purchase service over
// HTTP, guarded by a circuit breaker.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/utafrali/reviewregistry/internal/domain"
	"github.com/utafrali/reviewregistry/pkg/httpclient"
)

const serviceName = "purchase-service"

// Doer sends a request. *httpclient.CircuitBreakerClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TokenVerifier implements registry.TokenVerifier by fetching
// GET {base}/api/v1/purchase-tokens/{id} and checking ownership locally.
type TokenVerifier struct {
	baseURL string
	client  Doer
	logger  *slog.Logger
}

// NewTokenVerifier creates a verifier for the purchase service at baseURL.
func NewTokenVerifier(baseURL string, client Doer, logger *slog.Logger) *TokenVerifier {
	return &TokenVerifier{baseURL: baseURL, client: client, logger: logger}
}

// NewDefaultTokenVerifier builds the retrying, circuit-broken client.
func NewDefaultTokenVerifier(baseURL string, cfg httpclient.Config, logger *slog.Logger) *TokenVerifier {
	cb := httpclient.NewCircuitBreakerClient(
		httpclient.New(cfg),
		httpclient.DefaultCircuitBreakerConfig(serviceName),
		logger,
	)
	return NewTokenVerifier(baseURL, cb, logger)
}

type tokenResponse struct {
	Data domain.PurchaseToken `json:"data"`
}

// Verify reports whether the token exists, is valid and is owned by
// principal. A 404 means the token is unknown and is not an error.
func (v *TokenVerifier) Verify(ctx context.Context, tokenID uint64, principal string) (bool, error) {
	endpoint, err := url.JoinPath(v.baseURL, "api", "v1", "purchase-tokens", strconv.FormatUint(tokenID, 10))
	if err != nil {
		return false, fmt.Errorf("build token url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(ctx, req)
	if err != nil {
		return false, fmt.Errorf("verify purchase token %d: %w", tokenID, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("verify purchase token %d: %w", tokenID, httpclient.ParseResponseError(resp, serviceName))
	}
	defer func() { _ = resp.Body.Close() }()

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode purchase token %d: %w", tokenID, err)
	}
	if body.Data.ID != tokenID {
		v.logger.WarnContext(ctx, "purchase service returned a different token",
			slog.Uint64("requested", tokenID),
			slog.Uint64("returned", body.Data.ID),
		)
		return false, nil
	}
	return body.Data.Owns(principal), nil
}
