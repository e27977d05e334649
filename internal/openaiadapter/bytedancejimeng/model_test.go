package bytedancejimeng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/types"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		model  string
		name   string
		width  int
		height int
	}{
		{"jimeng-3.0", "jimeng-3.0", 1024, 1024},
		{"jimeng-3.0:768x768", "jimeng-3.0", 768, 768},
		{"jimeng-3.0:767x1023", "jimeng-3.0", 768, 1024},
		{"jimeng-2.1:1280*720", "jimeng-2.1", 1280, 720},
		{"jimeng-3.0:big", "jimeng-3.0", 1024, 1024},
		{"jimeng-video-3.0:1280x720", "jimeng-video-3.0", 1280, 720},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			name, width, height := parseModel(tt.model)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.width, width)
			assert.Equal(t, tt.height, height)
		})
	}
}

func TestIsVideoModel(t *testing.T) {
	assert.True(t, isVideoModel("jimeng-video-3.0"))
	assert.True(t, isVideoModel("jimeng-video-3.0:1280x720"))
	assert.False(t, isVideoModel("jimeng-3.0"))
	assert.False(t, isVideoModel("video-jimeng"))
}

func TestToGenerationRequestMergesOptions(t *testing.T) {
	negative := "blurry"
	strength := 0.8
	resolution := "1080p"

	parts := []types.ChatCompletionRequestMessageContentPart{}
	var text, image types.ChatCompletionRequestMessageContentPart
	require.NoError(t, text.FromText(types.ChatCompletionRequestMessageContentPartText{Type: types.ContentPartTypeText, Text: "a wave"}))
	imagePart := types.ChatCompletionRequestMessageContentPartImage{Type: types.ContentPartTypeImageURL}
	imagePart.ImageURL.URL = "https://ref/b.png"
	require.NoError(t, image.FromImage(imagePart))
	parts = append(parts, text, image)

	var msgContent types.ChatCompletionRequestMessageContent
	require.NoError(t, msgContent.FromParts(parts))

	req := openaiadapter.CreateChatCompletionRequest{
		Model:    "jimeng-video-3.0:1280x720",
		Messages: []types.ChatCompletionRequestMessage{{Role: types.RoleUser, Content: &msgContent}},
		GenerationOptions: types.GenerationOptions{
			NegativePrompt: &negative,
			FilePaths:      []string{"https://ref/a.png"},
		},
		ExtraBody: &types.GenerationOptions{SampleStrength: &strength, Resolution: &resolution},
	}

	got, err := toGenerationRequest(req, DefaultResolution)
	require.NoError(t, err)

	assert.Equal(t, jimeng.KindVideo, got.Kind)
	assert.Equal(t, "jimeng-video-3.0", got.Model)
	assert.Equal(t, "a wave", got.Prompt)
	assert.Equal(t, 1280, got.Width)
	assert.Equal(t, 720, got.Height)
	assert.Equal(t, "blurry", got.Extra.NegativePrompt)
	assert.InDelta(t, 0.8, got.Extra.SampleStrength, 1e-9)
	assert.Equal(t, "1080p", got.Extra.Resolution)
	assert.Equal(t, []string{"https://ref/a.png", "https://ref/b.png"}, got.Extra.ReferenceImages)
}

func TestToGenerationRequestImageIgnoresReferences(t *testing.T) {
	req := chatRequest("jimeng-3.0", "cat")
	req.FilePaths = []string{"https://ref/a.png"}

	got, err := toGenerationRequest(req, DefaultResolution)
	require.NoError(t, err)
	assert.Equal(t, jimeng.KindImage, got.Kind)
	assert.Empty(t, got.Extra.ReferenceImages)
	assert.Equal(t, DefaultResolution, got.Extra.Resolution)
}

func TestToGenerationRequestNilContent(t *testing.T) {
	req := openaiadapter.CreateChatCompletionRequest{
		Model:    "jimeng-3.0",
		Messages: []types.ChatCompletionRequestMessage{{Role: types.RoleUser}},
	}

	got, err := toGenerationRequest(req, DefaultResolution)
	require.NoError(t, err)
	assert.Empty(t, got.Prompt)
}
