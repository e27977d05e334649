package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v3"
)

// Logging writes one access log record per request. Probe and scrape
// requests are only logged when they fail. Bodies are never logged: chat
// requests carry prompts and reference images inline.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema:            httplog.SchemaECS.Concise(true),
		LogRequestHeaders: []string{"Content-Type", "Origin"},
		Skip: func(r *http.Request, status int) bool {
			return status < http.StatusBadRequest && isOperationalPath(r.URL.Path)
		},
		RecoverPanics: false,
	})
}

func isOperationalPath(path string) bool {
	return strings.HasPrefix(path, "/health/") || path == "/metrics" || path == "/ping"
}

// SetLogAttrs adds attributes to the access log record of the request.
// It does nothing outside the Logging middleware.
func SetLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	httplog.SetAttrs(ctx, attrs...)
}
