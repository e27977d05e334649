package jimeng

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimengproxy/jimeng-proxy/internal/clock"
)

const historyPath = "/mweb/v1/get_history_by_ids"

// Upstream job status codes.
const (
	statusQueued = 20
	statusFailed = 30
)

// State is the lifecycle state of a job. A job starts Queued and moves once
// to Succeeded or Failed.
type State int

const (
	StateQueued State = iota
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// stateOf classifies an upstream status code. Every code other than queued
// and failed counts as success.
func stateOf(status int) State {
	switch status {
	case statusQueued:
		return StateQueued
	case statusFailed:
		return StateFailed
	default:
		return StateSucceeded
	}
}

// ItemKind tells which field of a history item produced a MediaItem URL.
type ItemKind int

const (
	ItemNone ItemKind = iota
	ItemImageURL
	ItemCoverURL
	ItemVideoURL
)

// MediaItem is one result of a job.
type MediaItem struct {
	Kind ItemKind
	URL  string
}

// Job is a snapshot of a generation job.
type Job struct {
	HistoryID  string
	State      State
	StatusCode int
	FailCode   string
	Items      []MediaItem
}

// FetchFunc queries the current job snapshot.
type FetchFunc func(ctx context.Context, historyID string) (*Job, error)

// Poller waits for a job to leave the queued state.
type Poller struct {
	Clock    clock.Clock
	Interval time.Duration
	// MaxWait bounds the total wait. Zero waits until the job finishes or ctx ends.
	MaxWait time.Duration
	// OnPoll is called before every status query.
	OnPoll func()
}

// Poll sleeps Interval, fetches the job and repeats while it is queued.
// It returns the terminal job on success. Failed jobs yield
// ErrContentFiltered or a *GenerationError; the job is returned alongside.
func (p *Poller) Poll(ctx context.Context, historyID string, fetch FetchFunc) (*Job, error) {
	clk := p.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	start := clk.Now()

	for polls := 1; ; polls++ {
		if err := clk.Sleep(ctx, p.Interval); err != nil {
			return nil, err
		}

		if p.OnPoll != nil {
			p.OnPoll()
		}
		job, err := fetch(ctx, historyID)
		if err != nil {
			return nil, err
		}

		switch job.State {
		case StateQueued:
			waited := clk.Now().Sub(start)
			if p.MaxWait > 0 && waited >= p.MaxWait {
				return job, fmt.Errorf("%w: history %s after %s", ErrPollTimeout, historyID, waited)
			}
			slog.DebugContext(ctx, "generation queued", "history_id", historyID, "polls", polls)

		case StateFailed:
			slog.WarnContext(ctx, "generation failed",
				"history_id", historyID,
				"fail_code", job.FailCode,
				"polls", polls,
			)
			if job.FailCode == contentFilteredFailCode {
				return job, fmt.Errorf("%w: history %s", ErrContentFiltered, historyID)
			}
			return job, &GenerationError{HistoryID: historyID, FailCode: job.FailCode}

		default:
			slog.InfoContext(ctx, "generation finished",
				"history_id", historyID,
				"status", job.StatusCode,
				"items", len(job.Items),
				"polls", polls,
			)
			return job, nil
		}
	}
}

type historyRecord struct {
	HistoryRecordID flexString    `json:"history_record_id"`
	Status          int           `json:"status"`
	FailCode        flexString    `json:"fail_code"`
	ItemList        []historyItem `json:"item_list"`
}

type historyItem struct {
	CommonAttr struct {
		CoverURL string `json:"cover_url"`
	} `json:"common_attr"`
	Image *struct {
		LargeImages []struct {
			ImageURL string `json:"image_url"`
		} `json:"large_images"`
	} `json:"image"`
	Video *struct {
		TranscodedVideo struct {
			Origin struct {
				VideoURL string `json:"video_url"`
			} `json:"origin"`
		} `json:"transcoded_video"`
	} `json:"video"`
}

// mediaItem extracts the result URL of an item for the given kind.
func (h historyItem) mediaItem(kind MediaKind) MediaItem {
	if kind == KindVideo {
		if h.Video != nil && h.Video.TranscodedVideo.Origin.VideoURL != "" {
			return MediaItem{Kind: ItemVideoURL, URL: h.Video.TranscodedVideo.Origin.VideoURL}
		}
		return MediaItem{Kind: ItemNone}
	}

	if h.Image != nil && len(h.Image.LargeImages) > 0 && h.Image.LargeImages[0].ImageURL != "" {
		return MediaItem{Kind: ItemImageURL, URL: h.Image.LargeImages[0].ImageURL}
	}
	if h.CommonAttr.CoverURL != "" {
		return MediaItem{Kind: ItemCoverURL, URL: h.CommonAttr.CoverURL}
	}
	return MediaItem{Kind: ItemNone}
}

type imageScene struct {
	Scene   string `json:"scene"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	UniqKey string `json:"uniq_key"`
	Format  string `json:"format"`
}

type imageInfo struct {
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Format         string       `json:"format"`
	ImageSceneList []imageScene `json:"image_scene_list"`
}

type historyRequest struct {
	HistoryIDs     []string        `json:"history_ids"`
	ImageInfo      *imageInfo      `json:"image_info,omitempty"`
	HTTPCommonInfo *httpCommonInfo `json:"http_common_info,omitempty"`
}

func smartCrop(w, h int) imageScene {
	return imageScene{Scene: "smart_crop", Width: w, Height: h, UniqKey: fmt.Sprintf("smart_crop-w:%d-h:%d", w, h), Format: "webp"}
}

func normalScene(size int) imageScene {
	return imageScene{Scene: "normal", Width: size, Height: size, UniqKey: fmt.Sprint(size), Format: "webp"}
}

// thumbnailInfo is the fixed rendition list requested with image polls.
var thumbnailInfo = imageInfo{
	Width:  2048,
	Height: 2048,
	Format: "webp",
	ImageSceneList: []imageScene{
		smartCrop(360, 360),
		smartCrop(480, 480),
		smartCrop(720, 720),
		smartCrop(720, 480),
		smartCrop(360, 240),
		smartCrop(240, 320),
		smartCrop(480, 640),
		normalScene(2400),
		normalScene(1080),
		normalScene(720),
		normalScene(480),
		normalScene(360),
	},
}

// History fetches the job snapshot for historyID. A response that carries
// no record for the id yields ErrRecordMissing.
func (c *Client) History(ctx context.Context, historyID string, kind MediaKind) (*Job, error) {
	body := historyRequest{HistoryIDs: []string{historyID}}
	if kind == KindImage {
		info := thumbnailInfo
		body.ImageInfo = &info
		body.HTTPCommonInfo = &httpCommonInfo{AID: c.assistantID}
	}

	var data map[string]json.RawMessage
	if err := c.call(ctx, historyPath, nil, body, &data); err != nil {
		return nil, err
	}

	record, err := findHistoryRecord(data, historyID)
	if err != nil {
		return nil, err
	}

	job := &Job{
		HistoryID:  historyID,
		State:      stateOf(record.Status),
		StatusCode: record.Status,
		FailCode:   record.FailCode.String(),
		Items:      make([]MediaItem, 0, len(record.ItemList)),
	}
	for _, item := range record.ItemList {
		job.Items = append(job.Items, item.mediaItem(kind))
	}
	return job, nil
}

// findHistoryRecord accepts both the id-keyed and the history_list shapes.
// List entries only count when their history_record_id is historyID.
func findHistoryRecord(data map[string]json.RawMessage, historyID string) (*historyRecord, error) {
	if raw, ok := data[historyID]; ok && string(raw) != "null" {
		var record historyRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decoding history record: %w", err)
		}
		return &record, nil
	}

	if raw, ok := data["history_list"]; ok {
		var list []historyRecord
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decoding history list: %w", err)
		}
		for i := range list {
			if list[i].HistoryRecordID.String() == historyID {
				return &list[i], nil
			}
		}
	}

	return nil, fmt.Errorf("%w: history %s", ErrRecordMissing, historyID)
}
