package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agenda-backend/pkg/common"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject, issuer string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// echoUser responds with the user ID resolved into the context.
func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := common.GetUserID(r.Context())
		w.Write([]byte(userID))
	})
}

func TestIdentity_TrustsGatewayHeader(t *testing.T) {
	handler := Identity(IdentityConfig{}, zap.NewNop())(echoUser())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestIdentity_AcceptsBearerToken(t *testing.T) {
	cfg := IdentityConfig{JWTSecret: testSecret, JWTIssuer: "agenda-auth"}
	handler := Identity(cfg, zap.NewNop())(echoUser())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-2", "agenda-auth", time.Hour))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-2", rec.Body.String())
}

func TestIdentity_AcceptsQueryToken(t *testing.T) {
	cfg := IdentityConfig{JWTSecret: testSecret}
	handler := Identity(cfg, zap.NewNop())(echoUser())
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+signToken(t, testSecret, "user-3", "", time.Hour), nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-3", rec.Body.String())
}

func TestIdentity_RejectsBadTokens(t *testing.T) {
	cfg := IdentityConfig{JWTSecret: testSecret, JWTIssuer: "agenda-auth"}
	handler := Identity(cfg, zap.NewNop())(echoUser())

	tests := map[string]string{
		"no credentials": "",
		"wrong secret":   signToken(t, "other-secret", "user-4", "agenda-auth", time.Hour),
		"expired":        signToken(t, testSecret, "user-4", "agenda-auth", -time.Hour),
		"wrong issuer":   signToken(t, testSecret, "user-4", "someone-else", time.Hour),
		"no subject":     signToken(t, testSecret, "", "agenda-auth", time.Hour),
		"garbage":        "not.a.token",
	}

	for name, token := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED", name)
	}
}

func TestUserFromToken_RequiresConfiguredSecret(t *testing.T) {
	token := signToken(t, testSecret, "user-5", "", time.Hour)

	_, err := UserFromToken(token, IdentityConfig{})

	assert.Error(t, err)
}
