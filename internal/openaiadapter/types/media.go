package types

// Image response formats.
const (
	ResponseFormatURL     = "url"
	ResponseFormatB64JSON = "b64_json"
)

// CreateImageRequest is the body of POST /v1/images/generations.
type CreateImageRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt" validate:"required"`
	NegativePrompt string   `json:"negative_prompt,omitempty" validate:"max=2000"`
	Width          int      `json:"width,omitempty" validate:"gte=0,lte=4096"`
	Height         int      `json:"height,omitempty" validate:"gte=0,lte=4096"`
	SampleStrength *float64 `json:"sample_strength,omitempty" validate:"omitempty,gte=0,lte=1"`
	ResponseFormat string   `json:"response_format,omitempty" validate:"omitempty,oneof=url b64_json"`
}

// ImagesResponse lists generated images.
type ImagesResponse struct {
	Created int64   `json:"created"`
	Data    []Image `json:"data"`
}

// Image is one generated image, by URL or inline base64.
type Image struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
}

// CreateVideoRequest is the body of POST /v1/videos/generations.
type CreateVideoRequest struct {
	Model      string   `json:"model"`
	Prompt     string   `json:"prompt" validate:"required"`
	Width      int      `json:"width,omitempty" validate:"gte=0,lte=4096"`
	Height     int      `json:"height,omitempty" validate:"gte=0,lte=4096"`
	Resolution string   `json:"resolution,omitempty" validate:"omitempty,oneof=480p 720p 1080p"`
	FilePaths  []string `json:"file_paths,omitempty" validate:"max=2,dive,required"`
}

// VideosResponse lists generated videos.
type VideosResponse struct {
	Created int64   `json:"created"`
	Data    []Video `json:"data"`
}

// Video is one generated video.
type Video struct {
	URL string `json:"url"`
}

// Model describes a model served by the proxy.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ListModelsResponse is the body of GET /v1/models.
type ListModelsResponse struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
