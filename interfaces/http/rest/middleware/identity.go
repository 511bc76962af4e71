package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"agenda-backend/pkg/common"
)

// gatewayUserHeader is injected by the reverse-proxy gateway after it has
// validated the caller's token. When present it is trusted as-is; this
// service is never exposed without the gateway in front.
const gatewayUserHeader = "X-User-Id"

// IdentityConfig configures the identity middleware.
type IdentityConfig struct {
	// JWTSecret enables the HS256 bearer-token fallback for callers that
	// bypass the gateway (local development, smoke tests).
	JWTSecret string
	// JWTIssuer, when set, is required to match the token's issuer.
	JWTIssuer string
}

// Identity resolves the caller's user identity into the request context.
// Requests with neither a gateway header nor a valid bearer token are
// rejected.
func Identity(cfg IdentityConfig, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := r.Header.Get(gatewayUserHeader); userID != "" {
				next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
				return
			}

			userID, err := userFromBearer(r, cfg)
			if err != nil {
				logger.Debug("identity rejected", zap.Error(err))
				respondUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
		})
	}
}

// userFromBearer validates an HS256 bearer token and returns its subject.
func userFromBearer(r *http.Request, cfg IdentityConfig) (string, error) {
	authHeader := r.Header.Get("Authorization")
	token := ""
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		token = parts[1]
	}
	if token == "" {
		// WebSocket clients cannot set headers; allow a query token.
		token = r.URL.Query().Get("token")
	}
	return UserFromToken(token, cfg)
}

// UserFromToken validates a raw HS256 JWT and returns the subject claim.
// Shared with the ws-connect lambda, which receives the token in the
// connection query string.
func UserFromToken(tokenString string, cfg IdentityConfig) (string, error) {
	if tokenString == "" {
		return "", jwt.ErrTokenMalformed
	}
	if cfg.JWTSecret == "" {
		return "", jwt.ErrTokenUnverifiable
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return claims.Subject, nil
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"authentication required"}}`))
}
