package proxy

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
)

// Recovery turns a handler panic into an OpenAI api_error response and logs
// the stack. http.ErrAbortHandler is re-raised so net/http can drop the
// connection silently.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "handler panicked",
				"panic", rec,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			writeJSONOpenAIError(r.Context(), w, openaiadapter.NewErrorResponse(
				openaiadapter.ErrorTypeServer, http.StatusText(http.StatusInternalServerError), "", ""))
		}()

		next.ServeHTTP(w, r)
	})
}

// RequestSizeLimit caps request bodies at maxBytes. Reads past the cap fail
// with *http.MaxBytesError, which decodeJSON reports as invalid_request_error.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// applyMiddlewares wraps h so that middlewares run in slice order, first outermost.
func applyMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
