package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/uxlens/pagescope/internal/config"
	"github.com/uxlens/pagescope/internal/types"
)

// APIKey returns middleware that validates API key authentication.
// If API key authentication is disabled in config, requests pass through
// unchanged. Health endpoints stay open for load balancer probes.
func APIKey(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.APIKeyEnabled {
				next.ServeHTTP(w, r)
				return
			}

			if r.URL.Path == "/api/health" || r.URL.Path == "/api/health/detailed" {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				apiKey = r.URL.Query().Get("api_key")
			}

			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(cfg.APIKey)) != 1 {
				writeError(w, http.StatusUnauthorized, types.CodeUnauthorized, "Invalid or missing API key.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
