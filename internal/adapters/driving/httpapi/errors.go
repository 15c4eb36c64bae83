package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrEmptyExtraction),
		errors.Is(err, domain.ErrNoDocuments):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrGenerationUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as JSON with the mapped status. Client errors keep
// their message; provider and server failures get a fixed message and the
// full chain goes to the log only.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	switch {
	case errors.Is(err, domain.ErrDimensionMismatch):
		logger.Error("Index configuration error: %v", err)
	case status >= http.StatusInternalServerError:
		logger.Warn("Request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: publicMessage(err, status)})
}

func publicMessage(err error, status int) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "too many requests; wait a moment and try again"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "the embedding service is unavailable; try again later"
	case errors.Is(err, domain.ErrGenerationUnavailable):
		return "the answer service is unavailable; try again later"
	case errors.Is(err, domain.ErrDimensionMismatch):
		return "the vector index does not match the embedding model; check embedding.dimensions and restart"
	case status >= http.StatusInternalServerError:
		return "internal error; see the server log for details"
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Write response: %v", err)
	}
}
