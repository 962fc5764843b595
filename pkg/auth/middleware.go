package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taskward/taskward/pkg/api"
	"github.com/taskward/taskward/pkg/observability"
)

// RequireAuth is the authentication gate. It locates a bearer token on
// the request, resolves it to a Principal, and attaches the principal to
// the request context for downstream stages. Any failure stops the
// pipeline with a fixed 401 body; the cause is logged, never returned.
//
// The gate is route-selectable: only wrap the routes that need identity.
func RequireAuth(resolver *Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := Locate(r)
			if err != nil {
				logger.Debug("no token on request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				observability.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
				writeJSONError(w, api.NewUnauthorizedError())
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				logger.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				observability.AuthFailuresTotal.WithLabelValues(failureReason(err)).Inc()
				writeJSONError(w, api.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), principal)))
		})
	}
}

// failureReason maps a resolution error to a metrics label.
func failureReason(err error) string {
	switch err {
	case ErrInvalidToken:
		return "invalid_token"
	case ErrUserNotFound:
		return "user_not_found"
	default:
		return "internal"
	}
}

// writeJSONError writes a fixed-shape error body with its status code.
func writeJSONError(w http.ResponseWriter, resp api.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	json.NewEncoder(w).Encode(resp)
}
