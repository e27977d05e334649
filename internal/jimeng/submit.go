package jimeng

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
)

const (
	submitPath = "/mweb/v1/aigc_draft/generate"

	defaultDimension      = 1024
	defaultSampleStrength = 0.5
	defaultResolution     = "720p"

	videoDurationMS = 5000
	videoFPS        = 24
	videoMode       = 2
)

// GenerationRequest describes one generation job. Model is the public model
// name; ResolveModel maps it to the upstream id at submission time.
type GenerationRequest struct {
	Kind   MediaKind
	Model  string
	Prompt string
	Width  int
	Height int
	Extra  Extra
}

// Extra holds optional generation parameters.
type Extra struct {
	NegativePrompt string
	// SampleStrength in [0, 1]; zero selects the default of 0.5.
	SampleStrength float64
	// Resolution of a video, e.g. "720p".
	Resolution string
	// ReferenceImages are URLs or data URIs (local paths with WithLocalFiles) used as video
	// first and end frames, in that order.
	ReferenceImages []string
}

// FrameImage is an uploaded image used as a video keyframe.
type FrameImage struct {
	URI    string
	Width  int
	Height int
}

// normalized returns a copy with dimensions rounded up to even values and
// defaults applied.
func (r GenerationRequest) normalized() GenerationRequest {
	r.Width = evenDimension(r.Width)
	r.Height = evenDimension(r.Height)
	if r.Extra.SampleStrength <= 0 {
		r.Extra.SampleStrength = defaultSampleStrength
	}
	if r.Extra.Resolution == "" {
		r.Extra.Resolution = defaultResolution
	}
	return r
}

// evenDimension rounds n up to the nearest even integer. Non-positive values
// fall back to the default dimension.
func evenDimension(n int) int {
	if n <= 0 {
		return defaultDimension
	}
	return n + n%2
}

// aspectRatio reduces width:height to lowest terms.
func aspectRatio(width, height int) string {
	a, b := width, height
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return "1:1"
	}
	return fmt.Sprintf("%d:%d", width/a, height/a)
}

// Submit creates a generation job and returns its history id. Frames are
// only used by video jobs: the first is the start frame and the second the
// end frame.
func (c *Client) Submit(ctx context.Context, req GenerationRequest, frames ...FrameImage) (string, error) {
	req = req.normalized()

	var (
		body  submitRequest
		query url.Values
		err   error
	)
	switch req.Kind {
	case KindVideo:
		body, query, err = c.videoSubmission(req, frames)
	default:
		body, query, err = c.imageSubmission(req)
	}
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "submitting generation",
		"kind", req.Kind,
		"model", req.Model,
		"upstream_model", body.Extend.RootModel,
		"width", req.Width,
		"height", req.Height,
	)

	var resp submitResponse
	if err := c.call(ctx, submitPath, query, body, &resp); err != nil {
		return "", err
	}

	historyID := resp.AIGCData.HistoryRecordID.String()
	if historyID == "" {
		return "", fmt.Errorf("%w: submit returned no history id", ErrRecordMissing)
	}

	slog.InfoContext(ctx, "generation submitted", "history_id", historyID)
	return historyID, nil
}

func (c *Client) newNode() node {
	return node{ID: c.newID()}
}

func (c *Client) imageSubmission(req GenerationRequest) (submitRequest, url.Values, error) {
	model := ResolveModel(KindImage, req.Model)
	componentID := c.newID()

	doc := draft[imageComponent]{
		node:            node{Type: "draft", ID: c.newID()},
		MinVersion:      imageDraftVersion,
		IsFromTSN:       true,
		Version:         imageDraftVersion,
		MainComponentID: componentID,
		ComponentList: []imageComponent{{
			node:         node{Type: "image_base_component", ID: componentID},
			MinVersion:   imageDraftVersion,
			GenerateType: "generate",
			AIGCMode:     "workbench",
			Abilities: imageAbilities{
				node: c.newNode(),
				Generate: imageGenerate{
					node: c.newNode(),
					CoreParam: imageCoreParam{
						node:           c.newNode(),
						Model:          model,
						Prompt:         req.Prompt,
						NegativePrompt: req.Extra.NegativePrompt,
						Seed:           c.seed(),
						SampleStrength: req.Extra.SampleStrength,
						ImageRatio:     1,
						LargeImageInfo: largeImageInfo{
							node:   c.newNode(),
							Height: req.Height,
							Width:  req.Width,
						},
					},
					HistoryOption: c.newNode(),
				},
			},
		}},
	}

	content, err := json.Marshal(doc)
	if err != nil {
		return submitRequest{}, nil, fmt.Errorf("marshaling image draft: %w", err)
	}

	metricsExtra, err := json.Marshal(map[string]any{
		"templateId":      "",
		"generateCount":   1,
		"promptSource":    "custom",
		"templateSource":  "",
		"lastRequestId":   "",
		"originRequestId": "",
	})
	if err != nil {
		return submitRequest{}, nil, fmt.Errorf("marshaling metrics extra: %w", err)
	}

	babi, err := json.Marshal(map[string]string{
		"scenario":                "image_video_generation",
		"feature_key":             "aigc_to_image",
		"feature_entrance":        "to_image",
		"feature_entrance_detail": "to_image-" + model,
	})
	if err != nil {
		return submitRequest{}, nil, fmt.Errorf("marshaling babi param: %w", err)
	}

	templateID := ""
	body := submitRequest{
		Extend:         submitExtend{RootModel: model, TemplateID: &templateID},
		SubmitID:       c.newID(),
		MetricsExtra:   string(metricsExtra),
		DraftContent:   string(content),
		HTTPCommonInfo: httpCommonInfo{AID: c.assistantID},
	}
	query := url.Values{"babi_param": {url.QueryEscape(string(babi))}}
	return body, query, nil
}

func (c *Client) videoSubmission(req GenerationRequest, frames []FrameImage) (submitRequest, url.Values, error) {
	model := ResolveModel(KindVideo, req.Model)
	componentID := c.newID()

	input := videoGenInput{
		DurationMS: videoDurationMS,
		FPS:        videoFPS,
		ID:         c.newID(),
		MinVersion: videoDraftMinVersion,
		Prompt:     req.Prompt,
		Resolution: req.Extra.Resolution,
		VideoMode:  videoMode,
	}
	rootModel := model
	if len(frames) > 0 {
		input.FirstFrameImage = c.frameDescriptor(frames[0])
	}
	if len(frames) > 1 {
		input.EndFrameImage = c.frameDescriptor(frames[1])
		rootModel = videoModels[DefaultVideoModel]
	}

	metricsExtra, err := json.Marshal(map[string]any{
		"enterFrom":      "click",
		"isDefaultSeed":  1,
		"promptSource":   "custom",
		"isRegenerate":   false,
		"originSubmitId": c.newID(),
	})
	if err != nil {
		return submitRequest{}, nil, fmt.Errorf("marshaling metrics extra: %w", err)
	}

	doc := draft[videoComponent]{
		node:            node{Type: "draft", ID: c.newID()},
		MinVersion:      videoDraftMinVersion,
		IsFromTSN:       true,
		Version:         videoDraftVersion,
		MainComponentID: componentID,
		ComponentList: []videoComponent{{
			node:       node{Type: "video_base_component", ID: componentID},
			MinVersion: videoComponentMinVer,
			Metadata: componentMetadata{
				node:            c.newNode(),
				CreatedPlatform: 3,
				CreatedTimeInMS: c.clock.Now().UnixMilli(),
			},
			GenerateType: "gen_video",
			AIGCMode:     "workbench",
			Abilities: videoAbilities{
				node: c.newNode(),
				GenVideo: genVideo{
					node: c.newNode(),
					TextToVideoParams: textToVideoParams{
						node:             c.newNode(),
						ModelReqKey:      model,
						Seed:             c.seed(),
						VideoAspectRatio: aspectRatio(req.Width, req.Height),
						VideoGenInputs:   []videoGenInput{input},
					},
					VideoTaskExtra: string(metricsExtra),
				},
			},
		}},
	}

	content, err := json.Marshal(doc)
	if err != nil {
		return submitRequest{}, nil, fmt.Errorf("marshaling video draft: %w", err)
	}

	body := submitRequest{
		Extend: submitExtend{
			RootModel:             rootModel,
			VideoCommerceInfo:     &videoCommerce,
			VideoCommerceInfoList: []commerceInfo{videoCommerce},
		},
		SubmitID:       c.newID(),
		MetricsExtra:   string(metricsExtra),
		DraftContent:   string(content),
		HTTPCommonInfo: httpCommonInfo{AID: c.assistantID},
	}
	query := url.Values{
		"aigc_features": {"app_lip_sync"},
		"web_version":   {defaultWebVersion},
		"da_version":    {videoDraftVersion},
	}
	return body, query, nil
}

func (c *Client) frameDescriptor(f FrameImage) *frameDescriptor {
	return &frameDescriptor{
		Height:       f.Height,
		ID:           c.newID(),
		ImageURI:     f.URI,
		PlatformType: 1,
		SourceFrom:   "upload",
		Type:         "image",
		URI:          f.URI,
		Width:        f.Width,
	}
}
