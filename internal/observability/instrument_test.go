package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/trace"

	"github.com/jimengproxy/jimeng-proxy/internal/observability/middleware"
)

func TestInstrumentWritesJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	shutdown, err := Instrument(context.Background(), Options{Level: slog.LevelInfo, Format: "json", Output: &buf})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	slog.Debug("hidden")
	slog.Info("visible", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"visible"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestInstrumentRejectsUnknownFormat(t *testing.T) {
	_, err := Instrument(context.Background(), Options{Format: "xml"})
	require.Error(t, err)
}

func TestInstrumentWithStdoutExporter(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	shutdown, err := Instrument(context.Background(), Options{
		Level:  slog.LevelInfo,
		Format: "text",
		Output: &buf,
		OTLP:   OTLPOptions{Protocol: ProtocolStdout},
	})
	require.NoError(t, err)

	slog.Info("exported")
	assert.Contains(t, buf.String(), "msg=exported")
	require.NoError(t, shutdown(context.Background()))
}

func TestOTLPOptionsEnabled(t *testing.T) {
	assert.False(t, OTLPOptions{}.enabled())
	assert.False(t, OTLPOptions{Protocol: ProtocolHTTP}.enabled())
	assert.True(t, OTLPOptions{Protocol: ProtocolHTTP, Endpoint: "http://collector:4318"}.enabled())
	assert.True(t, OTLPOptions{Protocol: ProtocolStdout}.enabled())
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, minsev.SeverityDebug, severity(slog.LevelDebug))
	assert.Equal(t, minsev.SeverityInfo, severity(slog.LevelInfo))
	assert.Equal(t, minsev.SeverityWarn, severity(slog.LevelWarn))
	assert.Equal(t, minsev.SeverityError, severity(slog.LevelError))
}

func TestContextHandlerAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newContextHandler(slog.NewTextHandler(&buf, nil)))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = context.WithValue(ctx, middleware.RequestIDContextKey{}, "req-7")

	logger.InfoContext(ctx, "hello")
	assert.Contains(t, buf.String(), "request_id=req-7")
	assert.Contains(t, buf.String(), "trace_id=4bf92f3577b34da6a3ce929d0e0e4736")
	assert.Contains(t, buf.String(), "span_id=00f067aa0ba902b7")
}

func TestFanoutHandler(t *testing.T) {
	var debug, warn bytes.Buffer
	h := newFanoutHandler(
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With("component", "test")

	logger.Debug("low")
	logger.Warn("high")

	assert.Contains(t, debug.String(), "msg=low")
	assert.Contains(t, debug.String(), "msg=high")
	assert.NotContains(t, warn.String(), "msg=low")
	assert.Contains(t, warn.String(), "component=test")
}
