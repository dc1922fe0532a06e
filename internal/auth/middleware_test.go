package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/user-service/internal/shared"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "https://idp.example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newTestHandler(t *testing.T) (http.Handler, *shared.Principal) {
	t.Helper()
	v, err := NewVerifier(testSecret, "https://idp.example.com", time.Second)
	require.NoError(t, err)
	var seen shared.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := shared.PrincipalFromContext(r.Context())
		require.True(t, ok)
		seen = p
		w.WriteHeader(http.StatusOK)
	})
	return Middleware(v, nil)(next), &seen
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	h, seen := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, shared.Principal{UserID: "user-1", Email: "ada@example.com"}, *seen)
}

func TestMiddlewareRejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://evil.example.com"
	noSubject := validClaims()
	noSubject.Subject = ""
	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Token abc"},
		{name: "garbage", header: "Bearer not-a-token"},
		{name: "wrong secret", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims())},
		{name: "wrong algorithm", header: "Bearer " + sign(t, jwt.SigningMethodHS384, []byte(testSecret), validClaims())},
		{name: "expired", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{name: "wrong issuer", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)},
		{name: "no subject", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{name: "no expiry", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			var body shared.FailureResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, "Unauthorized", body.Error)
		})
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("", "", 0)
	assert.Error(t, err)
}
