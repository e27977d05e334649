package jimeng

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimengproxy/jimeng-proxy/internal/metrics"
)

// maxReferenceImages is the number of video keyframes: start and end.
const maxReferenceImages = 2

// GenerateImages runs a full image job and returns the result URLs in item
// order. Items without any URL are dropped.
func (c *Client) GenerateImages(ctx context.Context, req GenerationRequest) ([]string, error) {
	req.Kind = KindImage
	start := c.clock.Now()

	urls, err := c.generateImages(ctx, req)
	c.observe(KindImage, start, err)
	return urls, err
}

func (c *Client) generateImages(ctx context.Context, req GenerationRequest) ([]string, error) {
	if err := c.EnsureCredit(ctx); err != nil {
		return nil, err
	}

	historyID, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	job, err := c.poller(KindImage).Poll(ctx, historyID, c.fetcher(KindImage))
	if err != nil {
		return nil, err
	}

	// Empty items are dropped, so image_i labels built from urls count the
	// surviving images and may not match upstream item positions.
	urls := make([]string, 0, len(job.Items))
	for _, item := range job.Items {
		if item.Kind == ItemNone {
			continue
		}
		urls = append(urls, item.URL)
	}
	return urls, nil
}

// GenerateVideo runs a full video job and returns the video URL. Up to two
// reference images are uploaded first; upload failures are logged and the
// image is skipped.
func (c *Client) GenerateVideo(ctx context.Context, req GenerationRequest) (string, error) {
	req.Kind = KindVideo
	start := c.clock.Now()

	videoURL, err := c.generateVideo(ctx, req)
	c.observe(KindVideo, start, err)
	return videoURL, err
}

func (c *Client) generateVideo(ctx context.Context, req GenerationRequest) (string, error) {
	if err := c.EnsureCredit(ctx); err != nil {
		return "", err
	}

	req = req.normalized()
	frames := c.uploadFrames(ctx, req)

	historyID, err := c.Submit(ctx, req, frames...)
	if err != nil {
		return "", err
	}

	job, err := c.poller(KindVideo).Poll(ctx, historyID, c.fetcher(KindVideo))
	if err != nil {
		return "", err
	}

	if len(job.Items) == 0 || job.Items[0].Kind != ItemVideoURL {
		return "", fmt.Errorf("%w: history %s has no video url", ErrGenerationFailed, historyID)
	}
	return job.Items[0].URL, nil
}

func (c *Client) uploadFrames(ctx context.Context, req GenerationRequest) []FrameImage {
	var frames []FrameImage
	for _, source := range req.Extra.ReferenceImages {
		if len(frames) == maxReferenceImages {
			break
		}
		if source == "" {
			continue
		}

		uri, err := c.UploadImage(ctx, source)
		if err != nil {
			metrics.UploadFailuresTotal.Inc()
			slog.ErrorContext(ctx, "reference image upload failed", "error", err)
			continue
		}
		frames = append(frames, FrameImage{URI: uri, Width: req.Width, Height: req.Height})
	}
	return frames
}

func (c *Client) poller(kind MediaKind) *Poller {
	return &Poller{
		Clock:    c.clock,
		Interval: c.pollInterval,
		MaxWait:  c.maxPollDuration,
		OnPoll: func() {
			metrics.PollRequestsTotal.WithLabelValues(string(kind)).Inc()
		},
	}
}

func (c *Client) fetcher(kind MediaKind) FetchFunc {
	return func(ctx context.Context, historyID string) (*Job, error) {
		return c.History(ctx, historyID, kind)
	}
}

func (c *Client) observe(kind MediaKind, start time.Time, err error) {
	metrics.GenerationsTotal.WithLabelValues(string(kind), outcome(err)).Inc()
	if err == nil {
		metrics.GenerationDuration.WithLabelValues(string(kind)).Observe(c.clock.Now().Sub(start).Seconds())
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrContentFiltered):
		return metrics.OutcomeContentFiltered
	case errors.Is(err, ErrGenerationFailed):
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeError
	}
}
