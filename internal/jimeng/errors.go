package jimeng

import (
	"errors"
	"fmt"
)

// Error kinds reported by the engine. Use errors.Is to classify.
var (
	// ErrRecordMissing is returned when submission yields no history id or a
	// status query returns no record for the id.
	ErrRecordMissing = errors.New("generation record missing")

	// ErrContentFiltered is returned when upstream moderation rejected the prompt.
	ErrContentFiltered = errors.New("content filtered by upstream moderation")

	// ErrGenerationFailed is returned for any other terminal failure.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrUploadFailed marks a failed reference image upload.
	ErrUploadFailed = errors.New("upload failed")

	// ErrSourceNotAllowed is returned for image sources the client may not
	// read: local paths unless enabled, and non-public network addresses.
	ErrSourceNotAllowed = errors.New("image source not allowed")

	// ErrPollTimeout is returned when a job stays queued past the poll deadline.
	ErrPollTimeout = errors.New("generation still queued at poll deadline")

	// ErrUnauthenticated is returned when upstream rejects the session token.
	ErrUnauthenticated = errors.New("session token rejected")

	// ErrInsufficientCredit is returned when the account cannot pay for a job.
	ErrInsufficientCredit = errors.New("insufficient credit")
)

// contentFilteredFailCode is the provider fail code for moderated prompts.
const contentFilteredFailCode = "2038"

// GenerationError carries the provider fail code of a failed job.
type GenerationError struct {
	HistoryID string
	FailCode  string
}

func (e *GenerationError) Error() string {
	if e.FailCode == "" {
		return ErrGenerationFailed.Error()
	}
	return fmt.Sprintf("%s (fail code %s)", ErrGenerationFailed, e.FailCode)
}

// Unwrap allows errors.Is(err, ErrGenerationFailed).
func (e *GenerationError) Unwrap() error {
	return ErrGenerationFailed
}

// APIError is a non-zero ret code in an upstream response envelope.
type APIError struct {
	Path    string
	Ret     string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream %s: ret %s: %s", e.Path, e.Ret, e.Message)
}

// Unwrap maps well-known ret codes to error kinds.
func (e *APIError) Unwrap() error {
	switch e.Ret {
	case "1015":
		return ErrUnauthenticated
	case "5000":
		return ErrInsufficientCredit
	default:
		return nil
	}
}

// StatusError is an unexpected HTTP status from upstream.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: unexpected status %d: %s", e.Path, e.StatusCode, e.Body)
}

// IsPermanent reports whether retrying the whole generation cannot succeed.
// Only moderation rejections are permanent. A rejected session is retried
// like any other upstream failure.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrContentFiltered)
}
