package proxy

import (
	"log/slog"
	"net/http"

	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/types"
)

// CreateImagesHandler handles POST /v1/images/generations.
type CreateImagesHandler struct {
	Adapter   openaiadapter.MediaAdapter
	Transport TransportResolver
}

var _ http.Handler = (*CreateImagesHandler)(nil)

func (h *CreateImagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.CreateImageRequest
	if !decodeJSON(ctx, w, r, &req) {
		return
	}

	transport, err := h.Transport(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp, err := h.Adapter.GenerateImages(ctx, req, transport)
	if err != nil {
		slog.ErrorContext(ctx, "image generation failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, resp, http.StatusOK)
}

// CreateVideosHandler handles POST /v1/videos/generations.
type CreateVideosHandler struct {
	Adapter   openaiadapter.MediaAdapter
	Transport TransportResolver
}

var _ http.Handler = (*CreateVideosHandler)(nil)

func (h *CreateVideosHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.CreateVideoRequest
	if !decodeJSON(ctx, w, r, &req) {
		return
	}

	transport, err := h.Transport(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp, err := h.Adapter.GenerateVideos(ctx, req, transport)
	if err != nil {
		slog.ErrorContext(ctx, "video generation failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, resp, http.StatusOK)
}
