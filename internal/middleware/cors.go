package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins is the exact-match origin allowlist. Empty means
	// all cross-origin requests are rejected.
	AllowedOrigins []string
}

// CORS returns middleware that adds CORS headers to responses. Only
// origins on the allowlist get the specific origin echoed back; there
// is no wildcard mode.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowedSet[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			var allowOrigin string
			if origin != "" {
				if _, ok := allowedSet[origin]; ok {
					allowOrigin = origin
				} else {
					log.Debug().Str("origin", origin).Msg("CORS request from non-allowed origin")
				}
			}

			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				// Vary prevents CDNs from caching one origin's response for another.
				w.Header().Set("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("X-Content-Type-Options", "nosniff")
				w.Header().Set("Cache-Control", "no-store, max-age=0")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders returns middleware that adds security-related HTTP headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("X-Frame-Options", "DENY")

		next.ServeHTTP(w, r)
	})
}
