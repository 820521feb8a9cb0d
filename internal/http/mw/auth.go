// Package mw contains HTTP middleware for the webpilot service.
package mw

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// ClientClaimsKey is the context key for client claims.
	ClientClaimsKey ContextKey = "client_claims"
)

// ClientClaims identifies the authenticated API client.
type ClientClaims struct {
	ClientID string
	Scopes   []string
}

// HasScope checks if the client has a specific scope. Supports wildcard
// patterns with a trailing asterisk (e.g., "pools_*").
func (c *ClientClaims) HasScope(pattern string) bool {
	if c == nil || len(c.Scopes) == 0 {
		return false
	}

	if strings.HasSuffix(pattern, "_*") {
		prefix := strings.TrimSuffix(pattern, "*")
		for _, s := range c.Scopes {
			if strings.HasPrefix(s, prefix) {
				return true
			}
		}
		return false
	}

	for _, s := range c.Scopes {
		if s == pattern {
			return true
		}
	}
	return false
}

// GetClientClaims retrieves client claims from context.
func GetClientClaims(ctx context.Context) *ClientClaims {
	claims, ok := ctx.Value(ClientClaimsKey).(*ClientClaims)
	if !ok {
		return nil
	}
	return claims
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// Secret is the HMAC key bearer tokens are signed with.
	Secret string

	// AllowUnauthenticated lets requests through without a token. The
	// claims are still attached when a valid token is present.
	AllowUnauthenticated bool

	// Logger for auth events
	Logger *slog.Logger
}

// Auth returns middleware validating Bearer JWTs signed with the
// configured secret. Health checks bypass it at the router level, not
// here.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if cfg.AllowUnauthenticated {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := validateToken(token, cfg.Secret)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Debug("JWT validation failed", "error", err)
				}
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClientClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type tokenClaims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// validateToken parses and verifies a HS256 bearer token.
func validateToken(tokenString, secret string) (*ClientClaims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}

	return &ClientClaims{
		ClientID: claims.Subject,
		Scopes:   claims.Scopes,
	}, nil
}

// RequireScope returns middleware that requires a specific scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClientClaims(r.Context())
			if claims == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if !claims.HasScope(scope) {
				http.Error(w, `{"error":"insufficient scope"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
