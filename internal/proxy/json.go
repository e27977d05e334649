package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/tokensource"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONOpenAIError writes an OpenAI-compatible error response with the appropriate HTTP status code.
// The status code is determined from the error type according to OpenAI API conventions.
func writeJSONOpenAIError(ctx context.Context, w http.ResponseWriter, errResp *openaiadapter.ErrorResponse) {
	var status int
	switch errResp.Err.Type {
	case openaiadapter.ErrorTypeInvalidRequest:
		status = http.StatusBadRequest
	case openaiadapter.ErrorTypeAuthentication:
		status = http.StatusUnauthorized
	case openaiadapter.ErrorTypePermissionDenied:
		status = http.StatusForbidden
	case openaiadapter.ErrorTypeRateLimit, openaiadapter.ErrorTypeInsufficientQuota:
		status = http.StatusTooManyRequests
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(ctx, w, errResp, status)
}

// writeError writes err as an OpenAI error. Errors that carry no OpenAI body
// become a generic api_error.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	writeJSONOpenAIError(ctx, w, toErrorResponse(err, http.StatusText(http.StatusInternalServerError)))
}

// toErrorResponse extracts the OpenAI error carried by err. Other errors
// are reported as api_error with fallback as message.
func toErrorResponse(err error, fallback string) *openaiadapter.ErrorResponse {
	var errResp *openaiadapter.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}

	if errors.Is(err, tokensource.ErrNoToken) {
		return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeAuthentication,
			"missing session token: set Authorization: Bearer <sessionid>[,<sessionid>...]", "", "")
	}

	return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeAPI, fallback, "", "")
}

// decodeJSON decodes the request body into v and writes an error response on failure.
func decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONOpenAIError(ctx, w, openaiadapter.InvalidRequest(http.StatusText(http.StatusRequestEntityTooLarge), ""))
			return false
		}
		slog.ErrorContext(ctx, "failed to decode request", "error", err)
		writeJSONOpenAIError(ctx, w, openaiadapter.InvalidRequest(http.StatusText(http.StatusBadRequest), ""))
		return false
	}
	return true
}
