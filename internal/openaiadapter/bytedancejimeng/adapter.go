package bytedancejimeng

import (
	"context"
	"iter"
	"log/slog"
	"net/http"

	"github.com/jimengproxy/jimeng-proxy/internal/clock"
	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/metrics"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/retry"
)

// DefaultResolution is the video resolution used when a request names none.
const DefaultResolution = "720p"

type config struct {
	retry             retry.Policy
	clientOptions     []jimeng.Option
	clock             clock.Clock
	newID             func() string
	defaultResolution string
}

// Option configures the adapters.
type Option func(*config)

// WithRetryPolicy overrides the retry policy. Retryable is always replaced by
// the adapter's own classification.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *config) { c.retry = p }
}

// WithClientOptions passes options to every engine client.
func WithClientOptions(opts ...jimeng.Option) Option {
	return func(c *config) { c.clientOptions = append(c.clientOptions, opts...) }
}

// WithClock sets the clock used for timestamps and retry delays.
func WithClock(clk clock.Clock) Option {
	return func(c *config) { c.clock = clk }
}

// WithResponseIDSource injects the generator for completion ids.
func WithResponseIDSource(newID func() string) Option {
	return func(c *config) { c.newID = newID }
}

// WithDefaultResolution sets the video resolution used when a request names none.
func WithDefaultResolution(resolution string) Option {
	return func(c *config) { c.defaultResolution = resolution }
}

func newConfig(opts []Option) config {
	cfg := config{
		retry:             retry.DefaultPolicy(),
		clock:             clock.Real{},
		newID:             newResponseID,
		defaultResolution: DefaultResolution,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.retry.Clock == nil {
		cfg.retry.Clock = cfg.clock
	}
	cfg.retry.Retryable = isRetryable
	return cfg
}

// retryPolicy returns the policy with retries counted for mode.
func (c config) retryPolicy(mode string) retry.Policy {
	p := c.retry
	next := p.OnRetry
	p.OnRetry = func(ctx context.Context, attempt int, err error) {
		metrics.CompletionRetriesTotal.WithLabelValues(mode).Inc()
		if next != nil {
			next(ctx, attempt, err)
		}
	}
	return p
}

// newClient creates an engine client bound to the request credential.
func (c config) newClient(transport http.RoundTripper) (*jimeng.Client, error) {
	opts := append([]jimeng.Option{jimeng.WithClock(c.clock)}, c.clientOptions...)
	return jimeng.NewClient(transport, opts...)
}

// CreateChatCompletionAdapter serves chat completions by generating media.
type CreateChatCompletionAdapter struct {
	cfg config
}

// Compile-time check that the adapter satisfies the chat completion contract.
var _ openaiadapter.CreateChatCompletionAdapter = (*CreateChatCompletionAdapter)(nil)

// NewCreateChatCompletionAdapter creates a chat completion adapter.
func NewCreateChatCompletionAdapter(opts ...Option) *CreateChatCompletionAdapter {
	return &CreateChatCompletionAdapter{cfg: newConfig(opts)}
}

// ProcessRequest generates media for the last message and returns it as one
// completion. The whole generation is retried per the retry policy with the
// same transport; the final error is returned with its cause intact.
func (a *CreateChatCompletionAdapter) ProcessRequest(
	ctx context.Context,
	clientReq openaiadapter.CreateChatCompletionRequest,
	transport http.RoundTripper,
) (*openaiadapter.CreateChatCompletionResponse, error) {
	if len(clientReq.Messages) == 0 {
		return nil, errEmptyMessages
	}

	client, err := a.cfg.newClient(transport)
	if err != nil {
		return nil, err
	}

	resp, err := retry.Do(ctx, a.cfg.retryPolicy("sync"), func(ctx context.Context, attempt int) (*openaiadapter.CreateChatCompletionResponse, error) {
		return a.complete(ctx, client, clientReq, attempt)
	})
	if err != nil {
		return nil, toAdapterError(err)
	}
	return resp, nil
}

func (a *CreateChatCompletionAdapter) complete(
	ctx context.Context,
	client *jimeng.Client,
	clientReq openaiadapter.CreateChatCompletionRequest,
	attempt int,
) (*openaiadapter.CreateChatCompletionResponse, error) {
	genReq, err := toGenerationRequest(clientReq, a.cfg.defaultResolution)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "generating completion",
		"model", clientReq.Model,
		"kind", genReq.Kind,
		"width", genReq.Width,
		"height", genReq.Height,
		"attempt", attempt,
	)

	var content string
	if genReq.Kind == jimeng.KindVideo {
		videoURL, err := client.GenerateVideo(ctx, genReq)
		if err != nil {
			return nil, err
		}
		content = videoMarkdown(videoURL)
	} else {
		urls, err := client.GenerateImages(ctx, genReq)
		if err != nil {
			return nil, err
		}
		content = imagesContent(urls)
	}

	return toCompletionResponse(a.cfg.newID(), clientReq.Model, a.cfg.clock.Now().Unix(), content), nil
}

// ProcessStreamingRequest returns immediately with an iterator over the
// stream chunks while the generation runs in the background.
//
// The stream opens with a progress chunk at index 0. Images follow at
// indexes 1..N, the last carrying finish_reason "stop", then a completion
// notice at index N+1. A video yields the media at index 1 and the notice at
// index 2. A failure after all retries yields one chunk at index 1 with the
// error message. An empty message list yields no chunks at all.
//
// The background task is bound to ctx: when the client goes away, polling stops.
func (a *CreateChatCompletionAdapter) ProcessStreamingRequest(
	ctx context.Context,
	clientReq openaiadapter.CreateChatCompletionRequest,
	transport http.RoundTripper,
) (iter.Seq2[*openaiadapter.CreateChatCompletionChunk, error], error) {
	if len(clientReq.Messages) == 0 {
		slog.WarnContext(ctx, "empty message list, returning empty stream")
		return func(yield func(*openaiadapter.CreateChatCompletionChunk, error) bool) {}, nil
	}

	genReq, err := toGenerationRequest(clientReq, a.cfg.defaultResolution)
	if err != nil {
		return nil, err
	}

	client, err := a.cfg.newClient(transport)
	if err != nil {
		return nil, err
	}

	builder := chunkBuilder{id: a.cfg.newID(), model: clientReq.Model, created: a.cfg.clock.Now().Unix()}
	queue := newChunkQueue()

	progress := imageProgressNotice
	if genReq.Kind == jimeng.KindVideo {
		progress = videoProgressNotice
	}
	queue.push(builder.chunk(0, progress, false))

	go a.generateStream(ctx, client, genReq, builder, queue)

	return func(yield func(*openaiadapter.CreateChatCompletionChunk, error) bool) {
		for {
			chunk, ok := queue.pop(ctx)
			if !ok {
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}, nil
}

// generateStream runs the generation under the retry policy and pushes the
// result chunks. It always closes the queue.
func (a *CreateChatCompletionAdapter) generateStream(
	ctx context.Context,
	client *jimeng.Client,
	genReq jimeng.GenerationRequest,
	builder chunkBuilder,
	queue *chunkQueue,
) {
	defer queue.close()

	if genReq.Kind == jimeng.KindVideo {
		videoURL, err := retry.Do(ctx, a.cfg.retryPolicy("stream"), func(ctx context.Context, attempt int) (string, error) {
			slog.InfoContext(ctx, "generating video stream", "model", genReq.Model, "attempt", attempt)
			return client.GenerateVideo(ctx, genReq)
		})
		if err != nil {
			slog.ErrorContext(ctx, "video stream failed", "error", err)
			queue.push(builder.chunk(1, videoFailedNotice+err.Error(), true))
			return
		}

		queue.push(builder.chunk(1, videoMarkdown(videoURL), false))
		queue.push(builder.chunk(2, videoDoneNotice, true))
		return
	}

	urls, err := retry.Do(ctx, a.cfg.retryPolicy("stream"), func(ctx context.Context, attempt int) ([]string, error) {
		slog.InfoContext(ctx, "generating image stream", "model", genReq.Model, "attempt", attempt)
		return client.GenerateImages(ctx, genReq)
	})
	if err != nil {
		slog.ErrorContext(ctx, "image stream failed", "error", err)
		queue.push(builder.chunk(1, imageFailedNotice+err.Error(), true))
		return
	}

	for i, url := range urls {
		queue.push(builder.chunk(i+1, imageMarkdown(i, url), i == len(urls)-1))
	}
	queue.push(builder.chunk(len(urls)+1, imageDoneNotice, true))
}
