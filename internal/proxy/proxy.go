package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/observability/middleware"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/bytedancejimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/tokensource"
)

// DefaultMaxRequestBytes bounds request bodies. Reference images may be sent inline.
const DefaultMaxRequestBytes = 10 << 20

// ReadinessChecker reports whether the application can serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Proxy serves the OpenAI-compatible API on top of Jimeng.
type Proxy struct {
	handler http.Handler
	server  *http.Server

	defaultTokens oauth2.TokenSource
	transport     http.RoundTripper
	hosts         []string
	intn          func(int) int
	clientOptions []jimeng.Option
}

type config struct {
	transport       http.RoundTripper
	baseURL         string
	clientOptions   []jimeng.Option
	adapterOptions  []bytedancejimeng.Option
	maxRequestBytes int64
	readTimeout     time.Duration
	writeTimeout    time.Duration
	intn            func(int) int
}

// Option configures a Proxy.
type Option func(*config)

// WithTransport sets the base transport used for upstream calls.
// Session cookies are added on top of it.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) { c.transport = rt }
}

// WithUpstream points the proxy at another upstream origin. The origin's
// host receives the session cookies.
func WithUpstream(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// WithClientOptions passes options to every engine client.
func WithClientOptions(opts ...jimeng.Option) Option {
	return func(c *config) { c.clientOptions = append(c.clientOptions, opts...) }
}

// WithAdapterOptions passes options to the completion and media adapters.
func WithAdapterOptions(opts ...bytedancejimeng.Option) Option {
	return func(c *config) { c.adapterOptions = append(c.adapterOptions, opts...) }
}

// WithMaxRequestBytes overrides DefaultMaxRequestBytes.
func WithMaxRequestBytes(n int64) Option {
	return func(c *config) { c.maxRequestBytes = n }
}

// WithTimeouts sets the server read and write timeouts. Zero means none.
func WithTimeouts(read, write time.Duration) Option {
	return func(c *config) {
		c.readTimeout = read
		c.writeTimeout = write
	}
}

// WithTokenPicker injects the random source used to choose one session
// token from a set.
func WithTokenPicker(intn func(int) int) Option {
	return func(c *config) { c.intn = intn }
}

// New creates a Proxy. defaultTokens supplies the credential set used when
// a request carries no Authorization header; it may be nil.
func New(defaultTokens oauth2.TokenSource, health ReadinessChecker, opts ...Option) (*Proxy, error) {
	cfg := config{
		transport:       http.DefaultTransport,
		baseURL:         jimeng.DefaultBaseURL,
		maxRequestBytes: DefaultMaxRequestBytes,
		intn:            rand.IntN,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if health == nil {
		return nil, errors.New("readiness checker cannot be nil")
	}

	base, err := url.Parse(cfg.baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", cfg.baseURL)
	}

	clientOptions := append([]jimeng.Option{jimeng.WithBaseURL(cfg.baseURL)}, cfg.clientOptions...)
	adapterOptions := append([]bytedancejimeng.Option{bytedancejimeng.WithClientOptions(clientOptions...)}, cfg.adapterOptions...)

	p := &Proxy{
		defaultTokens: defaultTokens,
		transport:     cfg.transport,
		hosts:         []string{base.Hostname()},
		intn:          cfg.intn,
		clientOptions: clientOptions,
	}

	chatHandler := &CreateChatCompletionsHandler{
		Adapter:   bytedancejimeng.NewCreateChatCompletionAdapter(adapterOptions...),
		Transport: p.requestTransport,
	}
	mediaAdapter := bytedancejimeng.NewMediaAdapter(adapterOptions...)

	r := chi.NewRouter()
	r.Get("/health/live", livenessHandler())
	r.Get("/health/ready", readinessHandler(health))
	r.Get("/ping", pingHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/v1/models", modelsHandler())
	r.Method(http.MethodPost, "/v1/chat/completions", chatHandler)
	r.Method(http.MethodPost, "/v1/images/generations", &CreateImagesHandler{Adapter: mediaAdapter, Transport: p.requestTransport})
	r.Method(http.MethodPost, "/v1/videos/generations", &CreateVideosHandler{Adapter: mediaAdapter, Transport: p.requestTransport})
	r.Post("/token/points", p.tokenPointsHandler())

	p.handler = applyMiddlewares(r,
		middleware.RequestIDGeneration,
		middleware.Logging(slog.Default()),
		middleware.TraceContextExtraction,
		middleware.RequestIDPropagation,
		Recovery,
		RequestSizeLimit(cfg.maxRequestBytes),
	)

	p.server = &http.Server{
		Handler:           p.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.readTimeout,
		WriteTimeout:      cfg.writeTimeout,
	}

	return p, nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start listens on addr and serves in the background. Listen errors are
// returned directly; later serve errors are delivered on the channel.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	p.server.BaseContext = func(net.Listener) context.Context { return context.WithoutCancel(ctx) }
	slog.InfoContext(ctx, "proxy listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return errCh, nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("proxy shutdown: %w", err)
	}
	return nil
}

// requestTransport resolves the credential of a request. The Authorization
// header wins; the default token set is used when it is absent.
func (p *Proxy) requestTransport(r *http.Request) (http.RoundTripper, error) {
	tokens := tokensource.SplitTokens(r.Header.Get("Authorization"))
	if len(tokens) == 0 && p.defaultTokens != nil {
		tok, err := p.defaultTokens.Token()
		if err != nil {
			return nil, fmt.Errorf("reading default session tokens: %w", err)
		}
		tokens = tokensource.SplitTokens(tok.AccessToken)
	}
	if len(tokens) == 0 {
		return nil, tokensource.ErrNoToken
	}

	return p.sessionTransport(tokensource.Pick(tokens, p.intn)), nil
}

func (p *Proxy) sessionTransport(token string) http.RoundTripper {
	return &tokensource.Transport{
		Source: tokensource.NewSessionSource(token),
		Base:   p.transport,
		Hosts:  p.hosts,
	}
}
