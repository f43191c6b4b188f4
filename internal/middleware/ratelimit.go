package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/uxlens/pagescope/internal/types"
)

// maxClients bounds the number of tracked clients so an address-rotating
// attacker cannot exhaust memory.
const maxClients = 10000

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-IP request rate using token buckets.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*client
	rpm        int
	burst      int
	cleanup    time.Duration
	trustProxy bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewRateLimiter creates a per-IP rate limiter.
// rpm: maximum sustained requests per minute per client.
// trustProxy: whether to trust X-Forwarded-For and X-Real-IP headers.
func NewRateLimiter(rpm int, trustProxy bool) *RateLimiter {
	burst := rpm / 4
	if burst < 1 {
		burst = 1
	}

	rl := &RateLimiter{
		clients:    make(map[string]*client),
		rpm:        rpm,
		burst:      burst,
		cleanup:    5 * time.Minute,
		trustProxy: trustProxy,
		stopCh:     make(chan struct{}),
	}

	rl.wg.Add(1)
	go func() {
		defer rl.wg.Done()
		rl.cleanupRoutine()
	}()

	return rl
}

// Allow reports whether a request from the given IP may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, exists := rl.clients[ip]
	if !exists {
		if len(rl.clients) >= maxClients {
			rl.evictOldest()
		}
		c = &client{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.rpm)/60.0), rl.burst),
		}
		rl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStale()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanupStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-2 * rl.cleanup)
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// evictOldest removes the least recently seen client to make room.
// Must be called while holding rl.mu.
func (rl *RateLimiter) evictOldest() {
	var oldestIP string
	var oldestTime time.Time
	first := true

	for ip, c := range rl.clients {
		if first || c.lastSeen.Before(oldestTime) {
			oldestIP = ip
			oldestTime = c.lastSeen
			first = false
		}
	}
	if oldestIP != "" {
		delete(rl.clients, oldestIP)
	}
}

// Close stops the cleanup routine. Safe to call multiple times.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.stopCh)
		rl.wg.Wait()
	})
}

// GetClientIP extracts the client IP from the request.
func (rl *RateLimiter) GetClientIP(r *http.Request) string {
	return getClientIP(r, rl.trustProxy)
}

// RateLimiterMiddleware wraps RateLimiter with cleanup support for
// graceful shutdown. Create it ONCE at server initialization and reuse
// the handler for all routes; separate instances mean separate counters.
type RateLimiterMiddleware struct {
	limiter *RateLimiter
	handler func(http.Handler) http.Handler
}

// NewRateLimitMiddleware creates a rate limiter middleware. Call Close()
// during shutdown to stop the cleanup goroutine.
func NewRateLimitMiddleware(requestsPerMinute int, trustProxy bool) *RateLimiterMiddleware {
	limiter := NewRateLimiter(requestsPerMinute, trustProxy)

	m := &RateLimiterMiddleware{limiter: limiter}
	m.handler = func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := limiter.GetClientIP(r)
			if !limiter.Allow(ip) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, types.CodeRateLimited, "Rate limit exceeded. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	return m
}

// Handler returns the middleware handler function.
func (m *RateLimiterMiddleware) Handler() func(http.Handler) http.Handler {
	return m.handler
}

// Close stops the rate limiter's cleanup routine.
func (m *RateLimiterMiddleware) Close() {
	if m.limiter != nil {
		m.limiter.Close()
	}
}

// normalizeIP validates and normalizes an IP address string so IPv6
// notation variants of the same address share one bucket.
func normalizeIP(ipStr string) string {
	ipStr = strings.TrimSpace(ipStr)
	if ipStr == "" {
		return ""
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ipStr
	}
	if ip4 := ip.To4(); ip4 != nil {
		return ip4.String()
	}
	return ip.String()
}

// getClientIP extracts the client IP from the request.
// When trustProxy is false, only RemoteAddr is used so forwarded headers
// cannot spoof a fresh bucket. When true, X-Forwarded-For and X-Real-IP
// are consulted first.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ipStr := xff
			if idx := strings.Index(xff, ","); idx > 0 {
				ipStr = xff[:idx]
			}
			if normalized := normalizeIP(ipStr); normalized != "" {
				return normalized
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if normalized := normalizeIP(xri); normalized != "" {
				return normalized
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return normalizeIP(ip)
}
