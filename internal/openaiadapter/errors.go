package openaiadapter

import "errors"

// Error types understood by OpenAI clients.
const (
	ErrorTypeInvalidRequest    = "invalid_request_error"
	ErrorTypeAuthentication    = "authentication_error"
	ErrorTypePermissionDenied  = "permission_denied"
	ErrorTypeRateLimit         = "rate_limit_error"
	ErrorTypeInsufficientQuota = "insufficient_quota"
	ErrorTypeServer            = "server_error"
	ErrorTypeAPI               = "api_error"
)

// Error codes set alongside the error type.
const (
	ErrorCodeContentFilter = "content_filter"
	ErrorCodeTimeout       = "timeout"
)

// NewErrorResponse builds an OpenAI error body. Empty code and param are omitted as null.
func NewErrorResponse(errType, message, code, param string) *ErrorResponse {
	resp := &ErrorResponse{Err: Error{Type: errType, Message: message}}
	if code != "" {
		resp.Err.Code = &code
	}
	if param != "" {
		resp.Err.Param = &param
	}
	return resp
}

// InvalidRequest builds an invalid_request_error for a client mistake.
func InvalidRequest(message, param string) *ErrorResponse {
	return NewErrorResponse(ErrorTypeInvalidRequest, message, "", param)
}

// IsInvalidRequest reports whether err carries an invalid_request_error.
// Such errors are caused by the client and are never retried.
func IsInvalidRequest(err error) bool {
	var errResp *ErrorResponse
	return errors.As(err, &errResp) && errResp.Err.Type == ErrorTypeInvalidRequest
}
