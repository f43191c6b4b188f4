package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/uxlens/pagescope/internal/analyzer"
	"github.com/uxlens/pagescope/internal/browser"
	"github.com/uxlens/pagescope/internal/config"
	"github.com/uxlens/pagescope/internal/metrics"
	"github.com/uxlens/pagescope/internal/security"
	"github.com/uxlens/pagescope/internal/types"
	"github.com/uxlens/pagescope/pkg/version"
)

// maxBodySize bounds request bodies to prevent memory exhaustion.
const maxBodySize = 1 << 20 // 1MB

// Handler handles all PageScope API requests.
type Handler struct {
	analyzer *analyzer.Analyzer
	pool     *browser.Pool
	config   *config.Config
	started  time.Time
}

// New creates a new Handler.
func New(a *analyzer.Analyzer, pool *browser.Pool, cfg *config.Config) *Handler {
	return &Handler{
		analyzer: a,
		pool:     pool,
		config:   cfg,
		started:  time.Now(),
	}
}

// HandleAnalyze handles POST /api/analyze.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := h.decodeRequest(w, r, "analyze", start)
	if !ok {
		return
	}

	log.Info().
		Str("url", security.SanitizeURLForLogging(req.URL)).
		Msg("Analysis request received")

	result, err := h.analyzer.Analyze(r.Context(), req)
	if err != nil {
		h.writeAnalysisError(w, "analyze", analyzer.Translate(err), start)
		return
	}
	h.writeData(w, "analyze", http.StatusOK, result, start)
}

// HandleScreenshot handles POST /api/analyze/screenshot.
func (h *Handler) HandleScreenshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := h.decodeRequest(w, r, "screenshot", start)
	if !ok {
		return
	}

	log.Info().
		Str("url", security.SanitizeURLForLogging(req.URL)).
		Msg("Screenshot request received")

	data, err := h.analyzer.Screenshot(r.Context(), req)
	if err != nil {
		h.writeAnalysisError(w, "screenshot", analyzer.Translate(err), start)
		return
	}
	h.writeData(w, "screenshot", http.StatusOK, data, start)
}

// HandleHealth handles GET /api/health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.writeData(w, "health", http.StatusOK, types.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version.Full(),
	}, start)
}

// HandleDetailedHealth handles GET /api/health/detailed. The pool
// drives the verdict: healthy while a browser is free, degraded while
// all are busy, unhealthy when none are usable at all.
func (h *Handler) HandleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	poolStatus := h.pool.Status()

	status := "unhealthy"
	switch {
	case poolStatus.Available > 0:
		status = "healthy"
	case poolStatus.Busy > 0:
		status = "degraded"
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	usedMB := m.HeapAlloc / 1024 / 1024
	totalMB := m.HeapSys / 1024 / 1024
	percentage := 0
	if m.HeapSys > 0 {
		percentage = int(m.HeapAlloc * 100 / m.HeapSys)
	}

	h.writeData(w, "health_detailed", http.StatusOK, types.DetailedHealth{
		Status:      status,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		BrowserPool: poolStatus,
		Memory: types.MemoryStatus{
			UsedMB:     usedMB,
			TotalMB:    totalMB,
			Percentage: percentage,
		},
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}, start)
}

// decodeRequest reads and validates the JSON body shared by the analyze
// endpoints. On failure it writes the error response and returns ok=false.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, endpoint string, start time.Time) (*types.AnalyzeRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	buf := getBuffer()
	defer putBuffer(buf)

	if _, err := io.Copy(buf, r.Body); err != nil {
		log.Warn().Err(err).Msg("Failed to read request body")
		h.writeAnalysisError(w, endpoint, &types.AnalysisError{
			Code:    types.CodeBadRequest,
			Message: "Failed to read request body.",
			Err:     err,
		}, start)
		return nil, false
	}

	var req types.AnalyzeRequest
	if err := json.Unmarshal(buf.Bytes(), &req); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request")
		h.writeAnalysisError(w, endpoint, &types.AnalysisError{
			Code:    types.CodeBadRequest,
			Message: "Invalid JSON request.",
			Err:     err,
		}, start)
		return nil, false
	}

	if err := req.Validate(); err != nil {
		h.writeAnalysisError(w, endpoint, &types.AnalysisError{
			Code:    types.CodeBadRequest,
			Message: err.Error(),
			Err:     err,
		}, start)
		return nil, false
	}

	return &req, true
}

// statusForCode maps taxonomy codes onto HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case types.CodeURLRequired, types.CodeURLInvalid, types.CodeURLBlocked,
		types.CodeDomainNotAllowed, types.CodeNavigationFailed, types.CodeBadRequest:
		return http.StatusBadRequest
	case types.CodeTimeout:
		return http.StatusRequestTimeout
	case types.CodePoolExhausted:
		return http.StatusServiceUnavailable
	case types.CodeRateLimited:
		return http.StatusTooManyRequests
	case types.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeAnalysisError(w http.ResponseWriter, endpoint string, aerr *types.AnalysisError, start time.Time) {
	if aerr.Err != nil {
		log.Warn().
			Str("code", aerr.Code).
			Err(aerr.Err).
			Msg("Request failed")
	}

	status := statusForCode(aerr.Code)
	h.writeJSON(w, endpoint, status, types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: aerr.Code, Message: aerr.Message},
	}, start)
}

func (h *Handler) writeData(w http.ResponseWriter, endpoint string, status int, data any, start time.Time) {
	h.writeJSON(w, endpoint, status, types.APIResponse{Success: true, Data: data}, start)
}

// writeJSON encodes the envelope through a pooled buffer so large
// screenshot payloads are serialized once and written in one shot.
func (h *Handler) writeJSON(w http.ResponseWriter, endpoint string, status int, resp types.APIResponse, start time.Time) {
	buf := getResponseBuffer()
	defer putResponseBuffer(buf)

	if err := json.NewEncoder(buf).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred."}}`))
		metrics.RecordRequest(endpoint, "500", time.Since(start))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Debug().Err(err).Msg("Failed to write response, client likely disconnected")
	}
	metrics.RecordRequest(endpoint, strconv.Itoa(status), time.Since(start))
}
