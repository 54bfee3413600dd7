package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/reviewregistry/pkg/httputil"
)

type contextKeyType string

const principalKey contextKeyType = "principal"

// PrincipalHeader carries the caller identity when no JWT secret is configured.
const PrincipalHeader = "X-Principal"

// PrincipalClaims are the JWT claims the registry understands. The
// principal is taken from the "principal" claim, falling back to "sub".
type PrincipalClaims struct {
	Principal string `json:"principal,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the principal named by the claims.
func (c *PrincipalClaims) Identity() string {
	if c.Principal != "" {
		return c.Principal
	}
	return c.Subject
}

var errNoIdentity = errors.New("token carries no principal")

// Principal resolves the calling principal and stores it in the request
// context. With a non-empty secret, an HMAC-signed bearer token is
// required whenever an Authorization header is sent and its identity wins;
// without one, the X-Principal header is trusted as-is. Requests with no
// identity pass through anonymously; handlers decide whether that is allowed.
func Principal(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
	}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal string

			if secret == "" {
				principal = strings.TrimSpace(r.Header.Get(PrincipalHeader))
			} else if header := r.Header.Get("Authorization"); header != "" {
				scheme, token, ok := strings.Cut(header, " ")
				if !ok || !strings.EqualFold(scheme, "bearer") {
					writeUnauthorized(w, "invalid authorization header format")
					return
				}

				p, err := parsePrincipal(parser, key, strings.TrimSpace(token))
				if err != nil {
					logger.WarnContext(r.Context(), "rejected bearer token",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					writeUnauthorized(w, "invalid or expired token")
					return
				}
				principal = p
			}

			if principal != "" {
				r = r.WithContext(WithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parsePrincipal(parser *jwt.Parser, key []byte, token string) (string, error) {
	claims := &PrincipalClaims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		return "", err
	}
	if id := claims.Identity(); id != "" {
		return id, nil
	}
	return "", errNoIdentity
}

// WithPrincipal stores principal in ctx.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext returns the principal resolved by Principal, or "".
func PrincipalFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(principalKey).(string); ok {
		return p
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: message},
	})
}
