package openaiadapter

import (
	"context"
	"iter"
	"net/http"

	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/types"
)

// Adapter serves one OpenAI operation from a generation backend.
//
// The transport carries the caller's upstream credential; implementations
// hold no per-request state and use it for every upstream call they make,
// retries included.
type Adapter[TRequest, TResponse, TChunk any] interface {
	// ProcessRequest runs the operation to completion and returns the final response.
	ProcessRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (*TResponse, error)

	// ProcessStreamingRequest returns without waiting for the backend. The
	// iterator yields chunks in order until the operation finishes or ctx ends;
	// failures after the first chunk are delivered in-band as chunks.
	ProcessStreamingRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (iter.Seq2[*TChunk, error], error)
}

// Chat completion wire types and the adapter serving them.
type (
	CreateChatCompletionRequest  = types.CreateChatCompletionRequest
	CreateChatCompletionResponse = types.CreateChatCompletionResponse
	CreateChatCompletionChunk    = types.CreateChatCompletionStreamResponse

	CreateChatCompletionAdapter = Adapter[
		CreateChatCompletionRequest,
		CreateChatCompletionResponse,
		CreateChatCompletionChunk,
	]
)

// MediaAdapter generates images and videos outside of a chat conversation.
type MediaAdapter interface {
	GenerateImages(ctx context.Context, req types.CreateImageRequest, transport http.RoundTripper) (*types.ImagesResponse, error)
	GenerateVideos(ctx context.Context, req types.CreateVideoRequest, transport http.RoundTripper) (*types.VideosResponse, error)
}

// OpenAI error bodies.
type (
	Error         = types.Error
	ErrorResponse = types.ErrorResponse
	ErrorEvent    = types.ErrorEvent
)
