package bytedancejimeng

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/tokensource"
)

// adapterError pairs the OpenAI error body with the engine error that caused
// it, so callers can match either with errors.As or errors.Is.
type adapterError struct {
	resp  *openaiadapter.ErrorResponse
	cause error
}

func (e *adapterError) Error() string {
	return e.cause.Error()
}

func (e *adapterError) Unwrap() []error {
	return []error{e.resp, e.cause}
}

// toAdapterError wraps err for the HTTP layer. The cause stays reachable.
func toAdapterError(err error) error {
	if err == nil {
		return nil
	}

	var errResp *openaiadapter.ErrorResponse
	if errors.As(err, &errResp) {
		return err
	}
	return &adapterError{resp: toErrorResponse(err), cause: err}
}

// toErrorResponse maps engine errors to OpenAI error types.
func toErrorResponse(err error) *openaiadapter.ErrorResponse {
	var errResp *openaiadapter.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}

	var statusErr *jimeng.StatusError
	switch {
	case errors.Is(err, jimeng.ErrContentFiltered):
		return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeInvalidRequest,
			"prompt was rejected by content moderation", openaiadapter.ErrorCodeContentFilter, "messages")

	case errors.Is(err, jimeng.ErrUnauthenticated), errors.Is(err, tokensource.ErrNoToken):
		return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeAuthentication, err.Error(), "", "")

	case errors.Is(err, jimeng.ErrInsufficientCredit):
		return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeInsufficientQuota, err.Error(), "", "")

	case errors.Is(err, jimeng.ErrPollTimeout), errors.Is(err, context.DeadlineExceeded):
		return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeServer, err.Error(), openaiadapter.ErrorCodeTimeout, "")

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeServer, "upstream temporarily unavailable", "", "")

	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests:
		return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeRateLimit, err.Error(), "", "")

	default:
		return openaiadapter.NewErrorResponse(openaiadapter.ErrorTypeAPI, err.Error(), "", "")
	}
}

// isRetryable reports whether another attempt of the whole generation may
// succeed. Client mistakes and moderation rejections never do.
func isRetryable(err error) bool {
	return !openaiadapter.IsInvalidRequest(err) && !jimeng.IsPermanent(err)
}
