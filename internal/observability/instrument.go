package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

// ServiceName identifies this process in exported telemetry.
const ServiceName = "jimeng-proxy"

// OTLP export protocols.
const (
	ProtocolHTTP   = "http"
	ProtocolGRPC   = "grpc"
	ProtocolStdout = "stdout"
)

// Options configures Instrument.
type Options struct {
	Level  slog.Level
	Format string // text or json
	OTLP   OTLPOptions

	// Output receives the human-readable logs. Nil means os.Stdout.
	Output io.Writer
}

// OTLPOptions configures log export. Export is disabled when Protocol is
// empty, or when Endpoint is empty for a network protocol.
type OTLPOptions struct {
	Protocol string
	Endpoint string
	Insecure bool
}

func (o OTLPOptions) enabled() bool {
	switch o.Protocol {
	case "":
		return false
	case ProtocolStdout:
		return true
	default:
		return o.Endpoint != ""
	}
}

// Instrument installs the default slog logger and the W3C trace context
// propagator. With OTLP enabled, records are also exported through an
// OpenTelemetry log pipeline. The returned function flushes and stops the
// pipeline.
func Instrument(ctx context.Context, opts Options) (shutdown func(context.Context) error, err error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handler, err := newStdoutHandler(out, opts.Level, opts.Format)
	if err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown = func(context.Context) error { return nil }
	if opts.OTLP.enabled() {
		provider, err := newLoggerProvider(ctx, opts.Level, opts.OTLP)
		if err != nil {
			return nil, fmt.Errorf("creating log exporter: %w", err)
		}
		global.SetLoggerProvider(provider)
		shutdown = provider.Shutdown

		handler = newFanoutHandler(handler, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider)))
	}

	slog.SetDefault(slog.New(handler))

	return shutdown, nil
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(out io.Writer, level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "text", "":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}

	return newContextHandler(handler), nil
}

func newLoggerProvider(ctx context.Context, level slog.Level, opts OTLPOptions) (*sdklog.LoggerProvider, error) {
	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, err
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))
	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))

	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(processor),
	), nil
}

func newExporter(ctx context.Context, opts OTLPOptions) (sdklog.Exporter, error) {
	switch opts.Protocol {
	case ProtocolHTTP:
		httpOpts := []otlploghttp.Option{otlploghttp.WithEndpointURL(opts.Endpoint)}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlploghttp.WithInsecure())
		}
		return otlploghttp.New(ctx, httpOpts...)

	case ProtocolGRPC:
		grpcOpts := []otlploggrpc.Option{otlploggrpc.WithEndpointURL(opts.Endpoint)}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlploggrpc.WithInsecure())
		}
		return otlploggrpc.New(ctx, grpcOpts...)

	case ProtocolStdout:
		return stdoutlog.New()

	default:
		return nil, errors.New("unsupported otlp protocol " + opts.Protocol + " (expected: http, grpc, stdout)")
	}
}

// severity maps a slog level to the minimum exported severity.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level >= slog.LevelError:
		return minsev.SeverityError
	case level >= slog.LevelWarn:
		return minsev.SeverityWarn
	case level >= slog.LevelInfo:
		return minsev.SeverityInfo
	default:
		return minsev.SeverityDebug
	}
}
