package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/uxlens/pagescope/internal/types"
)

// writeError writes the standard error envelope. All middleware-level
// rejections use the same shape as handler errors so clients only ever
// see one format.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: code, Message: message},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Str("code", code).Msg("Failed to encode middleware error response")
	}
}
