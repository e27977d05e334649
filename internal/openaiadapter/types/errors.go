package types

// Error is the OpenAI error object.
type Error struct {
	Code    *string `json:"code"`
	Message string  `json:"message"`
	Param   *string `json:"param"`
	Type    string  `json:"type"`
}

// ErrorResponse wraps Error as {"error": {...}}.
type ErrorResponse struct {
	Err Error `json:"error"`
}

// ErrorEvent is an error delivered in-band on an SSE stream.
type ErrorEvent struct {
	Event string `json:"event"`
	Data  Error  `json:"data"`
}

// Error implements the error interface for Error, returning the error message.
func (e *Error) Error() string {
	return e.Message
}

// Error implements the error interface for ErrorResponse, returning the underlying error message.
// This allows ErrorResponse to be used directly in error returns.
func (e *ErrorResponse) Error() string {
	return e.Err.Message
}

// Error implements the error interface for ErrorEvent, returning the underlying error message.
// This allows ErrorEvent to be used in SSE streaming error responses.
func (e *ErrorEvent) Error() string {
	return e.Data.Message
}
