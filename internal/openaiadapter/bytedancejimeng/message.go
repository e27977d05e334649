package bytedancejimeng

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// errEmptyMessages is returned for requests without messages.
var errEmptyMessages = openaiadapter.InvalidRequest("messages must not be empty", "messages")

// toGenerationRequest builds the engine request from a chat request.
// The last message becomes the prompt.
func toGenerationRequest(clientReq openaiadapter.CreateChatCompletionRequest, defaultResolution string) (jimeng.GenerationRequest, error) {
	if len(clientReq.Messages) == 0 {
		return jimeng.GenerationRequest{}, errEmptyMessages
	}

	opts := clientReq.Options()
	if err := validate.Struct(opts); err != nil {
		return jimeng.GenerationRequest{}, toValidationError(err)
	}

	prompt, images, err := fromMessage(clientReq.Messages[len(clientReq.Messages)-1])
	if err != nil {
		return jimeng.GenerationRequest{}, openaiadapter.InvalidRequest(err.Error(), "messages")
	}

	name, width, height := parseModel(clientReq.Model)
	req := jimeng.GenerationRequest{
		Kind:   jimeng.KindImage,
		Model:  name,
		Prompt: prompt,
		Width:  width,
		Height: height,
		Extra: jimeng.Extra{
			Resolution: defaultResolution,
		},
	}

	if opts.NegativePrompt != nil {
		req.Extra.NegativePrompt = *opts.NegativePrompt
	}
	if opts.SampleStrength != nil {
		req.Extra.SampleStrength = *opts.SampleStrength
	}
	if opts.Resolution != nil {
		req.Extra.Resolution = *opts.Resolution
	}

	if isVideoModel(clientReq.Model) {
		req.Kind = jimeng.KindVideo
		req.Extra.ReferenceImages = append(append([]string{}, opts.FilePaths...), images...)
	}

	return req, nil
}

// fromMessage extracts the prompt text and image URLs of a message.
// Text parts are joined with newlines.
func fromMessage(msg types.ChatCompletionRequestMessage) (prompt string, images []string, err error) {
	if msg.Content == nil {
		return "", nil, nil
	}

	if msg.Content.IsString() {
		text, err := msg.Content.AsString()
		if err != nil {
			return "", nil, fmt.Errorf("decode message content: %w", err)
		}
		return text, nil, nil
	}

	parts, err := msg.Content.AsParts()
	if err != nil {
		return "", nil, fmt.Errorf("decode message content: %w", err)
	}

	var texts []string
	for i, part := range parts {
		discriminator, err := part.Discriminator()
		if err != nil {
			return "", nil, fmt.Errorf("get type of content part %d: %w", i, err)
		}

		switch discriminator {
		case types.ContentPartTypeText:
			text, err := part.AsText()
			if err != nil {
				return "", nil, fmt.Errorf("extract text from content part %d: %w", i, err)
			}
			texts = append(texts, text.Text)

		case types.ContentPartTypeImageURL:
			image, err := part.AsImage()
			if err != nil {
				return "", nil, fmt.Errorf("extract image from content part %d: %w", i, err)
			}
			if image.ImageURL.URL != "" {
				images = append(images, image.ImageURL.URL)
			}

		default:
			return "", nil, fmt.Errorf("content part type %s not supported", discriminator)
		}
	}

	return strings.Join(texts, "\n"), images, nil
}

// toValidationError converts validator output to an invalid_request_error
// naming the first offending field.
func toValidationError(err error) *openaiadapter.ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return openaiadapter.InvalidRequest(err.Error(), "")
	}

	first := verrs[0]
	param := toSnakeCase(first.Field())
	return openaiadapter.InvalidRequest(
		fmt.Sprintf("invalid value for %s: failed %s validation", param, first.Tag()),
		param,
	)
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
