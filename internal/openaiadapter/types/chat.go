package types

// ChatCompletionRole is the author of a chat message.
type ChatCompletionRole string

const (
	RoleSystem    ChatCompletionRole = "system"
	RoleDeveloper ChatCompletionRole = "developer"
	RoleUser      ChatCompletionRole = "user"
	RoleAssistant ChatCompletionRole = "assistant"
	RoleTool      ChatCompletionRole = "tool"
)

// GenerationOptions are the non-standard request parameters forwarded to the
// generation engine. OpenAI SDKs flatten extra_body into the request root, so
// the options are accepted both there and under an explicit extra_body key.
type GenerationOptions struct {
	NegativePrompt *string  `json:"negative_prompt,omitempty" validate:"omitempty,max=2000"`
	SampleStrength *float64 `json:"sample_strength,omitempty" validate:"omitempty,gte=0,lte=1"`
	Resolution     *string  `json:"resolution,omitempty" validate:"omitempty,oneof=480p 720p 1080p"`
	FilePaths      []string `json:"file_paths,omitempty" validate:"dive,required"`
}

// CreateChatCompletionRequest is the body of POST /v1/chat/completions.
type CreateChatCompletionRequest struct {
	Model       string                         `json:"model"`
	Messages    []ChatCompletionRequestMessage `json:"messages"`
	Stream      *bool                          `json:"stream,omitempty"`
	Temperature *float32                       `json:"temperature,omitempty"`
	MaxTokens   *int                           `json:"max_tokens,omitempty"`
	User        *string                        `json:"user,omitempty"`

	GenerationOptions
	ExtraBody *GenerationOptions `json:"extra_body,omitempty"`
}

// Options merges root-level generation options with extra_body. Values in
// extra_body win.
func (r *CreateChatCompletionRequest) Options() GenerationOptions {
	opts := r.GenerationOptions
	if r.ExtraBody == nil {
		return opts
	}

	extra := r.ExtraBody
	if extra.NegativePrompt != nil {
		opts.NegativePrompt = extra.NegativePrompt
	}
	if extra.SampleStrength != nil {
		opts.SampleStrength = extra.SampleStrength
	}
	if extra.Resolution != nil {
		opts.Resolution = extra.Resolution
	}
	if len(extra.FilePaths) > 0 {
		opts.FilePaths = extra.FilePaths
	}
	return opts
}

// ChatCompletionRequestMessage is one message of the conversation.
type ChatCompletionRequestMessage struct {
	Role    ChatCompletionRole                  `json:"role"`
	Content *ChatCompletionRequestMessageContent `json:"content,omitempty"`
	Name    *string                             `json:"name,omitempty"`
}

// CreateChatCompletionResponseChoiceFinishReason is the finish reason of a buffered choice.
type CreateChatCompletionResponseChoiceFinishReason string

const (
	CreateChatCompletionResponseChoiceFinishReasonStop          CreateChatCompletionResponseChoiceFinishReason = "stop"
	CreateChatCompletionResponseChoiceFinishReasonLength        CreateChatCompletionResponseChoiceFinishReason = "length"
	CreateChatCompletionResponseChoiceFinishReasonToolCalls     CreateChatCompletionResponseChoiceFinishReason = "tool_calls"
	CreateChatCompletionResponseChoiceFinishReasonContentFilter CreateChatCompletionResponseChoiceFinishReason = "content_filter"
)

// CreateChatCompletionStreamResponseChoiceFinishReason is the finish reason of a streamed choice.
type CreateChatCompletionStreamResponseChoiceFinishReason string

const (
	CreateChatCompletionStreamResponseChoiceFinishReasonStop          CreateChatCompletionStreamResponseChoiceFinishReason = "stop"
	CreateChatCompletionStreamResponseChoiceFinishReasonLength        CreateChatCompletionStreamResponseChoiceFinishReason = "length"
	CreateChatCompletionStreamResponseChoiceFinishReasonToolCalls     CreateChatCompletionStreamResponseChoiceFinishReason = "tool_calls"
	CreateChatCompletionStreamResponseChoiceFinishReasonContentFilter CreateChatCompletionStreamResponseChoiceFinishReason = "content_filter"
)

// Object discriminators.
const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
)

// CreateChatCompletionResponse is a buffered chat completion.
type CreateChatCompletionResponse struct {
	ID      string                               `json:"id"`
	Object  string                               `json:"object"`
	Created int64                                `json:"created"`
	Model   string                               `json:"model"`
	Choices []CreateChatCompletionResponseChoice `json:"choices"`
	Usage   *CompletionUsage                     `json:"usage,omitempty"`
}

// CreateChatCompletionResponseChoice is one choice of a buffered completion.
type CreateChatCompletionResponseChoice struct {
	Index        int                                            `json:"index"`
	Message      ChatCompletionResponseMessage                  `json:"message"`
	FinishReason CreateChatCompletionResponseChoiceFinishReason `json:"finish_reason"`
}

// ChatCompletionResponseMessage is the assistant message of a choice.
type ChatCompletionResponseMessage struct {
	Role    ChatCompletionRole `json:"role"`
	Content *string            `json:"content"`
}

// CreateChatCompletionStreamResponse is one SSE chunk of a streamed completion.
type CreateChatCompletionStreamResponse struct {
	ID      string                                     `json:"id"`
	Object  string                                     `json:"object"`
	Created int64                                      `json:"created"`
	Model   string                                     `json:"model"`
	Choices []CreateChatCompletionStreamResponseChoice `json:"choices"`
	Usage   *CompletionUsage                           `json:"usage,omitempty"`
}

// CreateChatCompletionStreamResponseChoice is one choice of a chunk.
type CreateChatCompletionStreamResponseChoice struct {
	Index        int                                                   `json:"index"`
	Delta        ChatCompletionStreamResponseDelta                     `json:"delta"`
	FinishReason *CreateChatCompletionStreamResponseChoiceFinishReason `json:"finish_reason"`
}

// ChatCompletionStreamResponseDelta is the incremental message of a chunk.
type ChatCompletionStreamResponseDelta struct {
	Role    *ChatCompletionRole `json:"role,omitempty"`
	Content *string             `json:"content,omitempty"`
}

// CompletionUsage reports token usage.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
