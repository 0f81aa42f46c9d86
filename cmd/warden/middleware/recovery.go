package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// RecoveryMiddleware provides panic recovery middleware.
type RecoveryMiddleware struct {
	logger zerolog.Logger
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(logger zerolog.Logger) *RecoveryMiddleware {
	return &RecoveryMiddleware{
		logger: logger,
	}
}

// Handler wraps the next handler with panic recovery.
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
