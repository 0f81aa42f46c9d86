// Package middleware provides HTTP middleware for the gateway server.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/warden-db/warden/cmd/warden/config"
)

// AuthMiddleware provides caller authentication middleware.
type AuthMiddleware struct {
	config config.AuthConfig
	logger zerolog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(cfg config.AuthConfig, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		config: cfg,
		logger: logger,
	}
}

// Handler wraps the next handler with authentication.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health checks stay unauthenticated.
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		ctx, err := m.authenticate(r)
		if err != nil {
			m.logger.Warn().Err(err).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Authentication failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"authentication failed"}}`))
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate performs authentication based on configured type.
func (m *AuthMiddleware) authenticate(r *http.Request) (context.Context, error) {
	if !m.config.Enabled {
		return r.Context(), nil
	}

	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	switch m.config.Type {
	case "bearer":
		return m.authenticateBearer(r.Context(), token)
	case "jwt":
		return m.authenticateJWT(r.Context(), token)
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", m.config.Type)
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", fmt.Errorf("invalid authorization header")
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}

// authenticateBearer validates a static bearer token.
func (m *AuthMiddleware) authenticateBearer(ctx context.Context, token string) (context.Context, error) {
	user, ok := m.config.Bearer.Tokens[token]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return context.WithValue(ctx, contextKeyUser, user), nil
}

// authenticateJWT validates an HMAC-signed JWT.
func (m *AuthMiddleware) authenticateJWT(ctx context.Context, tokenString string) (context.Context, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}
	if m.config.JWT.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.JWT.Issuer))
	}
	if m.config.JWT.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.config.JWT.Audience))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.config.JWT.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		subject = "unknown"
	}
	return context.WithValue(ctx, contextKeyUser, subject), nil
}

// Context keys for authentication
type contextKey string

const contextKeyUser contextKey = "user"

// GetUser extracts the authenticated user from context.
func GetUser(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(contextKeyUser).(string)
	return user, ok
}
