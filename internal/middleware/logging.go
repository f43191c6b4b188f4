package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/uxlens/pagescope/internal/security"
)

// maskIP masks an IP address for privacy in logs.
// IPv4: returns x.x.x.0/24 (masks last octet)
// IPv6: returns x:x:x::/48 (masks last 80 bits)
func maskIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return "[redacted]"
	}

	if ip4 := ip.To4(); ip4 != nil {
		masked := ip4.Mask(net.CIDRMask(24, 32))
		return masked.String() + "/24"
	}

	masked := ip.Mask(net.CIDRMask(48, 128))
	return masked.String() + "/48"
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for streaming responses.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logging returns middleware that logs request details. Client IPs are
// masked and query strings redacted so target-page URLs with embedded
// secrets never land in the logs verbatim.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Info().
			Str("method", r.Method).
			Str("path", security.SanitizeURLForLogging(r.URL.String())).
			Str("remote_addr", maskIP(r.RemoteAddr)).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Msg("Request completed")
	})
}
