package bytedancejimeng

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/types"
)

// MediaAdapter serves the images and videos generation endpoints.
// Requests are generated once, without the completion retry loop.
type MediaAdapter struct {
	cfg config
}

// Compile-time check that the adapter satisfies the media contract.
var _ openaiadapter.MediaAdapter = (*MediaAdapter)(nil)

// NewMediaAdapter creates a media adapter.
func NewMediaAdapter(opts ...Option) *MediaAdapter {
	return &MediaAdapter{cfg: newConfig(opts)}
}

// GenerateImages generates images and returns them by URL or as base64.
func (a *MediaAdapter) GenerateImages(ctx context.Context, req types.CreateImageRequest, transport http.RoundTripper) (*types.ImagesResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}

	client, err := a.cfg.newClient(transport)
	if err != nil {
		return nil, err
	}

	genReq := jimeng.GenerationRequest{
		Kind:   jimeng.KindImage,
		Model:  req.Model,
		Prompt: req.Prompt,
		Width:  req.Width,
		Height: req.Height,
		Extra:  jimeng.Extra{NegativePrompt: req.NegativePrompt},
	}
	if req.SampleStrength != nil {
		genReq.Extra.SampleStrength = *req.SampleStrength
	}

	urls, err := client.GenerateImages(ctx, genReq)
	if err != nil {
		return nil, toAdapterError(err)
	}

	resp := &types.ImagesResponse{
		Created: a.cfg.clock.Now().Unix(),
		Data:    make([]types.Image, 0, len(urls)),
	}
	for _, url := range urls {
		if req.ResponseFormat != types.ResponseFormatB64JSON {
			resp.Data = append(resp.Data, types.Image{URL: url})
			continue
		}

		data, err := client.FetchImage(ctx, url)
		if err != nil {
			slog.ErrorContext(ctx, "failed to fetch generated image", "error", err)
			return nil, toAdapterError(fmt.Errorf("fetching generated image: %w", err))
		}
		resp.Data = append(resp.Data, types.Image{B64JSON: base64.StdEncoding.EncodeToString(data)})
	}
	return resp, nil
}

// GenerateVideos generates one video.
func (a *MediaAdapter) GenerateVideos(ctx context.Context, req types.CreateVideoRequest, transport http.RoundTripper) (*types.VideosResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, toValidationError(err)
	}

	client, err := a.cfg.newClient(transport)
	if err != nil {
		return nil, err
	}

	resolution := req.Resolution
	if resolution == "" {
		resolution = a.cfg.defaultResolution
	}

	videoURL, err := client.GenerateVideo(ctx, jimeng.GenerationRequest{
		Kind:   jimeng.KindVideo,
		Model:  req.Model,
		Prompt: req.Prompt,
		Width:  req.Width,
		Height: req.Height,
		Extra: jimeng.Extra{
			Resolution:      resolution,
			ReferenceImages: req.FilePaths,
		},
	})
	if err != nil {
		return nil, toAdapterError(err)
	}

	return &types.VideosResponse{
		Created: a.cfg.clock.Now().Unix(),
		Data:    []types.Video{{URL: videoURL}},
	}, nil
}
