package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestRequestIDFromHeader(t *testing.T) {
	var got string
	h := RequestIDGeneration(RequestIDPropagation(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(RequestIDContextKey{}).(string)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", got)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDGenerated(t *testing.T) {
	h := RequestIDGeneration(RequestIDPropagation(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestTraceContextExtraction(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var spanCtx trace.SpanContext
	h := TraceContextExtraction(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		spanCtx = trace.SpanContextFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, spanCtx.IsValid())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spanCtx.TraceID().String())
}

func TestRequestIDRejectsInvalidHeader(t *testing.T) {
	for name, id := range map[string]string{
		"whitespace": "bad id",
		"too long":   strings.Repeat("a", maxRequestIDLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			var got string
			h := RequestIDGeneration(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = RequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, id)
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.NotEqual(t, id, got)
			assert.Len(t, got, 36)
		})
	}
}

func TestIsOperationalPath(t *testing.T) {
	assert.True(t, isOperationalPath("/health/ready"))
	assert.True(t, isOperationalPath("/metrics"))
	assert.True(t, isOperationalPath("/ping"))
	assert.False(t, isOperationalPath("/v1/chat/completions"))
}
