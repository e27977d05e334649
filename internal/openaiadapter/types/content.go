package types

import (
	"encoding/json"
	"errors"

	"github.com/oapi-codegen/runtime"
)

// ChatCompletionRequestMessageContent is either a string or a list of
// content parts.
type ChatCompletionRequestMessageContent struct {
	union json.RawMessage
}

// AsString returns the content as a plain string.
func (t ChatCompletionRequestMessageContent) AsString() (string, error) {
	var body string
	err := json.Unmarshal(t.union, &body)
	return body, err
}

// FromString overwrites the content with a plain string.
func (t *ChatCompletionRequestMessageContent) FromString(v string) error {
	b, err := json.Marshal(v)
	t.union = b
	return err
}

// AsParts returns the content as a list of content parts.
func (t ChatCompletionRequestMessageContent) AsParts() ([]ChatCompletionRequestMessageContentPart, error) {
	var body []ChatCompletionRequestMessageContentPart
	err := json.Unmarshal(t.union, &body)
	return body, err
}

// FromParts overwrites the content with a list of content parts.
func (t *ChatCompletionRequestMessageContent) FromParts(v []ChatCompletionRequestMessageContentPart) error {
	b, err := json.Marshal(v)
	t.union = b
	return err
}

// IsString reports whether the content holds a plain string.
func (t ChatCompletionRequestMessageContent) IsString() bool {
	for _, c := range t.union {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return c == '"'
		}
	}
	return false
}

func (t ChatCompletionRequestMessageContent) MarshalJSON() ([]byte, error) {
	if t.union == nil {
		return []byte("null"), nil
	}
	return t.union.MarshalJSON()
}

func (t *ChatCompletionRequestMessageContent) UnmarshalJSON(b []byte) error {
	return t.union.UnmarshalJSON(b)
}

// Content part discriminators.
const (
	ContentPartTypeText     = "text"
	ContentPartTypeImageURL = "image_url"
)

// ChatCompletionRequestMessageContentPartText is a text content part.
type ChatCompletionRequestMessageContentPartText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatCompletionRequestMessageContentPartImage is an image content part.
type ChatCompletionRequestMessageContentPartImage struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL    string  `json:"url"`
		Detail *string `json:"detail,omitempty"`
	} `json:"image_url"`
}

// ChatCompletionRequestMessageContentPart is a discriminated union of
// content parts keyed by "type".
type ChatCompletionRequestMessageContentPart struct {
	union json.RawMessage
}

// Discriminator returns the "type" of the part.
func (t ChatCompletionRequestMessageContentPart) Discriminator() (string, error) {
	var discriminator struct {
		Discriminator string `json:"type"`
	}
	err := json.Unmarshal(t.union, &discriminator)
	return discriminator.Discriminator, err
}

// AsText returns the part as a text part.
func (t ChatCompletionRequestMessageContentPart) AsText() (ChatCompletionRequestMessageContentPartText, error) {
	var body ChatCompletionRequestMessageContentPartText
	err := json.Unmarshal(t.union, &body)
	return body, err
}

// FromText overwrites the part with a text part.
func (t *ChatCompletionRequestMessageContentPart) FromText(v ChatCompletionRequestMessageContentPartText) error {
	v.Type = ContentPartTypeText
	b, err := json.Marshal(v)
	t.union = b
	return err
}

// MergeText merges a text part into the existing union.
func (t *ChatCompletionRequestMessageContentPart) MergeText(v ChatCompletionRequestMessageContentPartText) error {
	v.Type = ContentPartTypeText
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	merged, err := runtime.JSONMerge(t.union, b)
	t.union = merged
	return err
}

// AsImage returns the part as an image part.
func (t ChatCompletionRequestMessageContentPart) AsImage() (ChatCompletionRequestMessageContentPartImage, error) {
	var body ChatCompletionRequestMessageContentPartImage
	err := json.Unmarshal(t.union, &body)
	return body, err
}

// FromImage overwrites the part with an image part.
func (t *ChatCompletionRequestMessageContentPart) FromImage(v ChatCompletionRequestMessageContentPartImage) error {
	v.Type = ContentPartTypeImageURL
	b, err := json.Marshal(v)
	t.union = b
	return err
}

// MergeImage merges an image part into the existing union.
func (t *ChatCompletionRequestMessageContentPart) MergeImage(v ChatCompletionRequestMessageContentPartImage) error {
	v.Type = ContentPartTypeImageURL
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	merged, err := runtime.JSONMerge(t.union, b)
	t.union = merged
	return err
}

func (t ChatCompletionRequestMessageContentPart) MarshalJSON() ([]byte, error) {
	if t.union == nil {
		return nil, errors.New("empty content part")
	}
	return t.union.MarshalJSON()
}

func (t *ChatCompletionRequestMessageContentPart) UnmarshalJSON(b []byte) error {
	return t.union.UnmarshalJSON(b)
}

// NewTextContent builds string message content.
func NewTextContent(text string) *ChatCompletionRequestMessageContent {
	content := &ChatCompletionRequestMessageContent{}
	_ = content.FromString(text)
	return content
}
