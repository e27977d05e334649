package proxy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
)

// TransportResolver returns the authenticated upstream transport for a request.
type TransportResolver func(r *http.Request) (http.RoundTripper, error)

// CreateChatCompletionsHandler handles OpenAI-compatible chat completion requests.
type CreateChatCompletionsHandler struct {
	Adapter   openaiadapter.CreateChatCompletionAdapter
	Transport TransportResolver
}

// Compile-time check to ensure CreateChatCompletionsHandler implements http.Handler
var _ http.Handler = (*CreateChatCompletionsHandler)(nil)

// ServeHTTP implements http.Handler interface for streaming or non-streaming requests.
func (h *CreateChatCompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req openaiadapter.CreateChatCompletionRequest
	if !decodeJSON(ctx, w, r, &req) {
		return
	}

	transport, err := h.Transport(r)
	if err != nil {
		slog.WarnContext(ctx, "no usable credential", "error", err)
		writeError(ctx, w, err)
		return
	}

	if req.Stream != nil && *req.Stream {
		h.streamResponse(ctx, w, req, transport)
	} else {
		h.writeResponse(ctx, w, req, transport)
	}
}

// writeResponse handles non-streaming chat completion requests.
func (h *CreateChatCompletionsHandler) writeResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req openaiadapter.CreateChatCompletionRequest,
	transport http.RoundTripper,
) {
	if ctx.Err() != nil {
		return
	}
	response, err := h.Adapter.ProcessRequest(ctx, req, transport)
	if err != nil {
		slog.ErrorContext(ctx, "request failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, response, http.StatusOK)
}

// streamResponse streams chat completion chunks using SSE.
func (h *CreateChatCompletionsHandler) streamResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req openaiadapter.CreateChatCompletionRequest,
	transport http.RoundTripper,
) {
	if ctx.Err() != nil {
		return
	}
	stream, err := h.Adapter.ProcessStreamingRequest(ctx, req, transport)
	if err != nil {
		slog.ErrorContext(ctx, "streaming request failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeError(ctx, w, err)
		return
	}

	for chunk, err := range stream {
		// Check for client disconnect before processing chunk
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			return
		}

		if err != nil {
			slog.ErrorContext(ctx, "stream error", "error", err)

			errResp := toErrorResponse(err, err.Error())
			// OpenAI SDK recognizes {"error": {...}} format and stops reading immediately
			// https://github.com/openai/openai-go/blob/ae042a437e4ebef4dffe088bf01d087ac94feaf2/packages/ssestream/ssestream.go#L169-L173
			if writeErr := sse.WriteEvent("error"); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error event type", "error", writeErr)
				return
			}
			if writeErr := sse.WriteData(errResp); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error", "error", writeErr)
			}
			return
		}

		if err := sse.WriteData(chunk); err != nil {
			slog.ErrorContext(ctx, "failed to write chunk", "error", err)
			return
		}
	}

	// OpenAI streaming protocol requires [DONE] marker
	if err := sse.WriteRaw("[DONE]"); err != nil {
		slog.ErrorContext(ctx, "failed to write stream termination marker", "error", err)
	}
}
