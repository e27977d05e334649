package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/bytedancejimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/proxy"
	"github.com/jimengproxy/jimeng-proxy/internal/retry"
)

// App orchestrates the lifecycle of the proxy server and related services.
type App struct {
	cfg    *Config
	health *Health
	proxy  *proxy.Proxy
}

// New creates a new App instance from a validated configuration.
func New(ctx context.Context, cfg *Config) (*App, error) {
	var defaultTokens oauth2.TokenSource
	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}
	if store != nil {
		defaultTokens = NewStoreTokenSource(ctx, store)
	}

	health := NewHealth()
	proxyServer, err := proxy.New(defaultTokens, health, proxyOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	return &App{
		cfg:    cfg,
		health: health,
		proxy:  proxyServer,
	}, nil
}

// proxyOptions translates the configuration into proxy options.
func proxyOptions(cfg *Config) []proxy.Option {
	clientOptions := []jimeng.Option{
		jimeng.WithImageXURL(cfg.Upstream.ImageXURL),
		jimeng.WithAssistantID(cfg.Upstream.AssistantID),
		jimeng.WithPollInterval(cfg.Generation.PollInterval),
		jimeng.WithMaxPollDuration(cfg.Generation.MaxPollDuration),
		jimeng.WithLocalFiles(cfg.Generation.AllowLocalFiles),
		jimeng.WithPrivateNetworks(cfg.Generation.AllowPrivateImages),
	}
	if cfg.Breaker.Enabled {
		clientOptions = append(clientOptions, jimeng.WithBreaker(
			jimeng.NewBreaker("jimeng", cfg.Breaker.FailureThreshold, cfg.Breaker.OpenTimeout),
		))
	}

	return []proxy.Option{
		proxy.WithTransport(upstreamTransport(cfg.Upstream.Timeout)),
		proxy.WithUpstream(cfg.Upstream.BaseURL),
		proxy.WithClientOptions(clientOptions...),
		proxy.WithAdapterOptions(
			bytedancejimeng.WithRetryPolicy(retry.Policy{
				MaxRetries: cfg.Generation.MaxRetries,
				Delay:      cfg.Generation.RetryDelay,
			}),
			bytedancejimeng.WithDefaultResolution(cfg.Generation.VideoResolution),
		),
		proxy.WithMaxRequestBytes(cfg.Server.MaxRequestBytes),
		proxy.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	}
}

// upstreamTransport bounds how long upstream may take to answer a single call.
func upstreamTransport(timeout time.Duration) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = timeout
	t.DialContext = (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	return t
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting proxy server")
	proxyErrCh, err := a.proxy.Start(gCtx, a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)

	a.health.SetReady(true)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-proxyErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	a.health.SetReady(false)
	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
