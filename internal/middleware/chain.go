package middleware

import "net/http"

// Chain composes middleware outermost-first: Chain(Recovery, Logging)(h)
// runs Recovery around Logging around h, so the first argument sees
// every request and response.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}
