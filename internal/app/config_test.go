package app

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimengproxy/jimeng-proxy/internal/observability"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Generation.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Generation.RetryDelay)
	assert.Equal(t, 15*time.Minute, cfg.Generation.MaxPollDuration)
	assert.False(t, cfg.Generation.AllowLocalFiles)
	assert.False(t, cfg.Generation.AllowPrivateImages)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad addr", func(c *Config) { c.Server.Addr = "nope" }, "Config.Server.Addr"},
		{"bad base url", func(c *Config) { c.Upstream.BaseURL = "ftp:/x" }, "Config.Upstream.BaseURL"},
		{"bad resolution", func(c *Config) { c.Generation.VideoResolution = "4k" }, "VideoResolution"},
		{"too many retries", func(c *Config) { c.Generation.MaxRetries = 50 }, "MaxRetries"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "Format"},
		{"bad storage", func(c *Config) { c.Auth.Storage = "vault" }, "Storage"},
		{"file without path", func(c *Config) { c.Auth.Storage = TokenStorageTypeFile }, "auth.file"},
		{"otlp without endpoint", func(c *Config) { c.Log.OTLP.Protocol = "grpc" }, "log.otlp.endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLogConfigInstrumentation(t *testing.T) {
	cfg := LogConfig{Level: "warn", Format: "json", OTLP: OTLPConfig{Protocol: "http", Endpoint: "http://collector:4318", Insecure: true}}

	opts, err := cfg.Instrumentation()
	require.NoError(t, err)
	assert.Equal(t, observability.Options{
		Level:  slog.LevelWarn,
		Format: "json",
		OTLP:   observability.OTLPOptions{Protocol: "http", Endpoint: "http://collector:4318", Insecure: true},
	}, opts)

	_, err = LogConfig{Level: "loud"}.Instrumentation()
	require.Error(t, err)
}
