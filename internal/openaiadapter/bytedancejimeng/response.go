package bytedancejimeng

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/types"
)

// Usage is fixed: generation is not billed in tokens.
var fixedUsage = types.CompletionUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}

// Stream notices.
const (
	imageProgressNotice = "🎨 Generating image, please wait..."
	videoProgressNotice = "🎬 Generating video, please wait..."
	imageDoneNotice     = "Image generation complete!"
	videoDoneNotice     = "Video generation complete!"
	imageFailedNotice   = "Image generation failed: "
	videoFailedNotice   = "Video generation failed: "
)

// newResponseID generates an OpenAI-compatible response ID (chatcmpl-<token>).
func newResponseID() string {
	b := make([]byte, 24) // 24 bytes yields 32 URL-safe base64 characters
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	// Use RawURLEncoding to avoid '+', '/' and trailing '='
	token := base64.RawURLEncoding.EncodeToString(b)
	return "chatcmpl-" + token
}

func imageMarkdown(i int, url string) string {
	return fmt.Sprintf("![image_%d](%s)\n", i, url)
}

func videoMarkdown(url string) string {
	return fmt.Sprintf("![video](%s)\n", url)
}

// imagesContent renders one labelled image link per URL, in order.
func imagesContent(urls []string) string {
	var b strings.Builder
	for i, url := range urls {
		b.WriteString(imageMarkdown(i, url))
	}
	return b.String()
}

func toCompletionResponse(id, model string, created int64, content string) *openaiadapter.CreateChatCompletionResponse {
	usage := fixedUsage
	return &openaiadapter.CreateChatCompletionResponse{
		ID:      id,
		Object:  types.ObjectChatCompletion,
		Created: created,
		Model:   model,
		Choices: []types.CreateChatCompletionResponseChoice{{
			Index: 0,
			Message: types.ChatCompletionResponseMessage{
				Role:    types.RoleAssistant,
				Content: &content,
			},
			FinishReason: types.CreateChatCompletionResponseChoiceFinishReasonStop,
		}},
		Usage: &usage,
	}
}

// chunkBuilder creates the chunks of one stream. All chunks share the id.
type chunkBuilder struct {
	id      string
	model   string
	created int64
}

func (b chunkBuilder) chunk(index int, content string, stop bool) *openaiadapter.CreateChatCompletionChunk {
	role := types.RoleAssistant
	choice := types.CreateChatCompletionStreamResponseChoice{
		Index: index,
		Delta: types.ChatCompletionStreamResponseDelta{
			Role:    &role,
			Content: &content,
		},
	}
	if stop {
		reason := types.CreateChatCompletionStreamResponseChoiceFinishReasonStop
		choice.FinishReason = &reason
	}

	return &openaiadapter.CreateChatCompletionChunk{
		ID:      b.id,
		Object:  types.ObjectChatCompletionChunk,
		Created: b.created,
		Model:   b.model,
		Choices: []types.CreateChatCompletionStreamResponseChoice{choice},
	}
}
