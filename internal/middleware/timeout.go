package middleware

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uxlens/pagescope/internal/types"
)

// timeoutWriter wraps http.ResponseWriter to prevent writes after the
// deadline. Once timedOut is set, writes are discarded so a late handler
// cannot race the timeout response.
type timeoutWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	timedOut    atomic.Bool
	wroteHeader bool
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	if tw.timedOut.Load() {
		return len(b), nil
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut.Load() {
		return len(b), nil
	}
	return tw.ResponseWriter.Write(b)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut.Load() || tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	tw.ResponseWriter.WriteHeader(code)
}

// Header returns empty headers after timeout; those writes are discarded
// anyway and handing out the live map would race the timeout response.
func (tw *timeoutWriter) Header() http.Header {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut.Load() {
		return make(http.Header)
	}
	return tw.ResponseWriter.Header()
}

func (tw *timeoutWriter) markTimedOut() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.timedOut.Store(true)
}

func (tw *timeoutWriter) Flush() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut.Load() {
		return
	}
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (tw *timeoutWriter) hasWrittenHeader() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.wroteHeader
}

// Timeout returns middleware that bounds request handling time. When the
// deadline passes before the handler writes anything, a 504 with the
// TIMEOUT taxonomy code is sent and further handler writes are dropped.
// The handler goroutine itself is not killed; it sees the deadline
// through its context and should stop cooperatively.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			done := make(chan struct{})

			go func() {
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
				if ctx.Err() == context.DeadlineExceeded && !tw.hasWrittenHeader() {
					writeError(tw, http.StatusGatewayTimeout, types.CodeTimeout, "The request timed out.")
					tw.markTimedOut()
				}
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded && !tw.hasWrittenHeader() {
					writeError(tw, http.StatusGatewayTimeout, types.CodeTimeout, "The request timed out.")
				}
				tw.markTimedOut()
			}
		})
	}
}
