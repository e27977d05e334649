package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContentString(t *testing.T) {
	var msg ChatCompletionRequestMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"draw a cat"}`), &msg))

	require.NotNil(t, msg.Content)
	assert.True(t, msg.Content.IsString())
	text, err := msg.Content.AsString()
	require.NoError(t, err)
	assert.Equal(t, "draw a cat", text)
}

func TestMessageContentParts(t *testing.T) {
	var msg ChatCompletionRequestMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":[
		{"type":"text","text":"animate this"},
		{"type":"image_url","image_url":{"url":"https://example.com/a.png"}}
	]}`), &msg))

	assert.False(t, msg.Content.IsString())
	parts, err := msg.Content.AsParts()
	require.NoError(t, err)
	require.Len(t, parts, 2)

	kind, err := parts[1].Discriminator()
	require.NoError(t, err)
	assert.Equal(t, ContentPartTypeImageURL, kind)

	image, err := parts[1].AsImage()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", image.ImageURL.URL)
}

func TestContentPartBuilders(t *testing.T) {
	var part ChatCompletionRequestMessageContentPart
	require.NoError(t, part.FromText(ChatCompletionRequestMessageContentPartText{Text: "hello"}))

	kind, err := part.Discriminator()
	require.NoError(t, err)
	assert.Equal(t, ContentPartTypeText, kind)

	require.NoError(t, part.MergeText(ChatCompletionRequestMessageContentPartText{Text: "bye"}))
	text, err := part.AsText()
	require.NoError(t, err)
	assert.Equal(t, "bye", text.Text)

	var content ChatCompletionRequestMessageContent
	require.NoError(t, content.FromParts([]ChatCompletionRequestMessageContentPart{part}))
	data, err := json.Marshal(content)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":"bye"}]`, string(data))
}

func TestRequestOptionsPreferExtraBody(t *testing.T) {
	var req CreateChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"model":"jimeng-3.0",
		"messages":[],
		"negative_prompt":"root",
		"sample_strength":0.2,
		"extra_body":{"negative_prompt":"extra","file_paths":["a.png"]}
	}`), &req))

	opts := req.Options()
	require.NotNil(t, opts.NegativePrompt)
	assert.Equal(t, "extra", *opts.NegativePrompt)
	require.NotNil(t, opts.SampleStrength)
	assert.InDelta(t, 0.2, *opts.SampleStrength, 1e-9)
	assert.Equal(t, []string{"a.png"}, opts.FilePaths)
}
