package handlers

import (
	"net/http"

	"github.com/uxlens/pagescope/internal/types"
)

// NewRouter builds the API route table. Method enforcement happens here
// so handlers only ever see the verbs they expect.
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/analyze", requireMethod(http.MethodPost, h.HandleAnalyze))
	mux.HandleFunc("/api/analyze/screenshot", requireMethod(http.MethodPost, h.HandleScreenshot))
	mux.HandleFunc("/api/health", requireMethod(http.MethodGet, h.HandleHealth))
	mux.HandleFunc("/api/health/detailed", requireMethod(http.MethodGet, h.HandleDetailedHealth))

	return mux
}

func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeMethodNotAllowed(w)
			return
		}
		next(w, r)
	}
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, _ = w.Write([]byte(`{"success":false,"error":{"code":"` + types.CodeBadRequest + `","message":"Method not allowed."}}`))
}
