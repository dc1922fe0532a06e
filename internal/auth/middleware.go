// Package auth authenticates API requests carrying bearer tokens minted by the
// external identity provider.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/skillforge/user-service/internal/platform/httpx"
	"github.com/skillforge/user-service/internal/shared"
)

// Claims are the token claims the service reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier builds a Verifier. An empty issuer disables the issuer check.
func NewVerifier(secret, issuer string, leeway time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Verifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

// Verify parses raw and returns the principal it identifies.
func (v *Verifier) Verify(raw string) (shared.Principal, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return shared.Principal{}, shared.Errorf(shared.ErrUnauthorized, "invalid token: %v", err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return shared.Principal{}, shared.Errorf(shared.ErrUnauthorized, "token has no subject")
	}
	return shared.Principal{UserID: subject, Email: claims.Email}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context.
func Middleware(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.RespondError(w, shared.Errorf(shared.ErrUnauthorized, "missing bearer token"), nil)
				return
			}
			principal, err := v.Verify(raw)
			if err != nil {
				if logger != nil {
					logger.Debug("reject token", slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				httpx.RespondError(w, err, nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
