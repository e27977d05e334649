package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/observability"
	"github.com/jimengproxy/jimeng-proxy/internal/proxy"
	"github.com/jimengproxy/jimeng-proxy/internal/retry"
)

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Generation GenerationConfig `koanf:"generation"`
	Breaker    BreakerConfig    `koanf:"breaker"`
	Auth       AuthConfig       `koanf:"auth"`
	Log        LogConfig        `koanf:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	MaxRequestBytes int64         `koanf:"max_request_bytes" validate:"gt=0"`
}

// UpstreamConfig locates the Jimeng web API.
type UpstreamConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required,http_url"`
	ImageXURL   string        `koanf:"imagex_url" validate:"required,http_url"`
	AssistantID int           `koanf:"assistant_id" validate:"gt=0"`
	Timeout     time.Duration `koanf:"timeout" validate:"gte=0"`
}

// GenerationConfig tunes polling and the completion retry loop.
type GenerationConfig struct {
	PollInterval    time.Duration `koanf:"poll_interval" validate:"gt=0"`
	MaxPollDuration time.Duration `koanf:"max_poll_duration" validate:"gte=0"`
	MaxRetries      int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	RetryDelay      time.Duration `koanf:"retry_delay" validate:"gte=0"`
	VideoResolution string        `koanf:"video_resolution" validate:"oneof=480p 720p 1080p"`

	// Image sources beyond data: URIs and public http(s) URLs.
	AllowLocalFiles    bool `koanf:"allow_local_files"`
	AllowPrivateImages bool `koanf:"allow_private_image_urls"`
}

// BreakerConfig configures the upstream circuit breaker.
type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gt=0"`
	OpenTimeout      time.Duration `koanf:"open_timeout" validate:"gt=0"`
}

// LogConfig configures logging and log export.
type LogConfig struct {
	Level  string     `koanf:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string     `koanf:"format" validate:"oneof=text json"`
	OTLP   OTLPConfig `koanf:"otlp"`
}

// OTLPConfig configures OpenTelemetry log export.
type OTLPConfig struct {
	Protocol string `koanf:"protocol" validate:"omitempty,oneof=http grpc stdout"`
	Endpoint string `koanf:"endpoint" validate:"omitempty,url"`
	Insecure bool   `koanf:"insecure"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8000",
			ShutdownTimeout: 5 * time.Second,
			MaxRequestBytes: proxy.DefaultMaxRequestBytes,
		},
		Upstream: UpstreamConfig{
			BaseURL:     jimeng.DefaultBaseURL,
			ImageXURL:   jimeng.DefaultImageXURL,
			AssistantID: jimeng.DefaultAssistantID,
			Timeout:     60 * time.Second,
		},
		Generation: GenerationConfig{
			PollInterval:    jimeng.DefaultPollInterval,
			MaxPollDuration: jimeng.DefaultMaxPollWait,
			MaxRetries:      retry.DefaultMaxRetries,
			RetryDelay:      retry.DefaultDelay,
			VideoResolution: "720p",
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Auth: AuthConfig{
			Storage: TokenStorageTypeNone,
			EnvVar:  DefaultTokenEnvVar,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Log.OTLP.Protocol != "" && c.Log.OTLP.Protocol != observability.ProtocolStdout && c.Log.OTLP.Endpoint == "" {
		return errors.New("invalid config: log.otlp.endpoint is required for protocol " + c.Log.OTLP.Protocol)
	}
	return c.Auth.validate()
}

// SlogLevel parses Log.Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	return level, nil
}

// Instrumentation converts the log configuration for observability.Instrument.
func (c LogConfig) Instrumentation() (observability.Options, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return observability.Options{}, err
	}
	return observability.Options{
		Level:  level,
		Format: c.Format,
		OTLP: observability.OTLPOptions{
			Protocol: c.OTLP.Protocol,
			Endpoint: c.OTLP.Endpoint,
			Insecure: c.OTLP.Insecure,
		},
	}, nil
}
