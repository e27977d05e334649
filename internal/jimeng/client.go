package jimeng

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/jimengproxy/jimeng-proxy/internal/clock"
)

// Upstream defaults.
const (
	DefaultBaseURL       = "https://jimeng.jianying.com"
	DefaultImageXURL     = "https://imagex.bytedanceapi.com"
	DefaultAssistantID   = 513695
	DefaultPollInterval  = time.Second
	DefaultMaxPollWait   = 15 * time.Minute
	defaultPlatformCode  = "7"
	defaultVersionCode   = "5.8.0"
	defaultWebVersion    = "6.6.0"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36"
	maxErrorBodyLength   = 512
	maxResponseBodyBytes = 16 << 20
)

// Client talks to the Jimeng web API on behalf of a single account.
// The account credential is carried by the transport passed to NewClient;
// a Client is cheap and intended to live for one external call.
type Client struct {
	baseURL     string
	imageXURL   string
	assistantID int
	webID       string

	http    *http.Client
	media   *http.Client
	fetch   *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]

	allowLocalFiles      bool
	allowPrivateNetworks bool

	clock           clock.Clock
	pollInterval    time.Duration
	maxPollDuration time.Duration
	seed            func() int64
	newID           func() string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the upstream API origin.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithImageXURL overrides the media host used for reference image uploads.
func WithImageXURL(u string) Option {
	return func(c *Client) { c.imageXURL = u }
}

// WithAssistantID overrides the upstream application id.
func WithAssistantID(id int) Option {
	return func(c *Client) { c.assistantID = id }
}

// WithMediaTransport sets the unauthenticated transport used for the media host.
func WithMediaTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.media = &http.Client{Transport: rt} }
}

// WithFetchTransport replaces the transport that downloads caller supplied
// reference images and generated results. It bypasses the private network
// guard.
func WithFetchTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.fetch = &http.Client{Transport: rt, CheckRedirect: limitRedirects} }
}

// WithLocalFiles lets image sources name files on the proxy host. Off by
// default: sources usually come from remote callers.
func WithLocalFiles(allowed bool) Option {
	return func(c *Client) { c.allowLocalFiles = allowed }
}

// WithPrivateNetworks lets image downloads reach loopback, private and
// link-local addresses. Off by default.
func WithPrivateNetworks(allowed bool) Option {
	return func(c *Client) { c.allowPrivateNetworks = allowed }
}

// WithBreaker guards every upstream exchange with a circuit breaker.
// Breakers are shared across clients; see NewBreaker.
func WithBreaker(cb *gobreaker.CircuitBreaker[[]byte]) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithClock injects the clock used for poll delays and signatures.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithPollInterval sets the delay between status queries.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxPollDuration bounds how long a job may stay queued. Zero disables the bound.
func WithMaxPollDuration(d time.Duration) Option {
	return func(c *Client) { c.maxPollDuration = d }
}

// WithSeedSource injects the random seed generator used in drafts.
func WithSeedSource(seed func() int64) Option {
	return func(c *Client) { c.seed = seed }
}

// WithIDSource injects the generator for draft, component and submit ids.
func WithIDSource(newID func() string) Option {
	return func(c *Client) { c.newID = newID }
}

// WithWebID sets the browser id reported to upstream.
func WithWebID(id string) Option {
	return func(c *Client) { c.webID = id }
}

// NewClient creates a Client that authenticates through transport.
func NewClient(transport http.RoundTripper, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}

	c := &Client{
		baseURL:         DefaultBaseURL,
		imageXURL:       DefaultImageXURL,
		assistantID:     DefaultAssistantID,
		http:            &http.Client{Transport: transport},
		media:           &http.Client{Transport: http.DefaultTransport},
		clock:           clock.Real{},
		pollInterval:    DefaultPollInterval,
		maxPollDuration: DefaultMaxPollWait,
		seed:            randomSeed,
		newID:           func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if c.fetch == nil {
		c.fetch = newFetchClient(c.allowPrivateNetworks)
	}
	if c.webID == "" {
		c.webID = strconv.FormatInt(rand.Int64N(1e18)+1e18, 10)
	}

	return c, nil
}

// randomSeed draws a seed in [2.5e9, 2.6e9) to avoid upstream result caching.
func randomSeed() int64 {
	return 2_500_000_000 + rand.Int64N(100_000_000)
}

// NewBreaker creates a circuit breaker that opens after failureThreshold
// consecutive transport failures or 5xx responses and probes again after openTimeout.
func NewBreaker(name string, failureThreshold uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("upstream circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// call POSTs body as JSON to path and decodes the envelope data into out.
func (c *Client) call(ctx context.Context, path string, query url.Values, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", path, err)
	}

	raw, err := c.exchange(ctx, path, query, payload)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	if env.Ret != "0" {
		return &APIError{Path: path, Ret: env.Ret.String(), Message: env.ErrMsg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", path, err)
	}
	return nil
}

// exchange performs the HTTP round trip, through the breaker when configured.
func (c *Client) exchange(ctx context.Context, path string, query url.Values, payload []byte) ([]byte, error) {
	do := func() ([]byte, error) {
		req, err := c.newRequest(ctx, path, query, payload)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("upstream %s: %w", path, err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("reading %s response: %w", path, err)
		}

		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &StatusError{Path: path, StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBodyLength)}
		}
		return body, nil
	}

	if c.breaker == nil {
		return do()
	}
	return c.breaker.Execute(do)
}

func (c *Client) newRequest(ctx context.Context, path string, query url.Values, payload []byte) (*http.Request, error) {
	params := url.Values{}
	for k, v := range query {
		params[k] = v
	}
	params.Set("aid", strconv.Itoa(c.assistantID))
	params.Set("device_platform", "web")
	params.Set("region", "CN")
	params.Set("web_id", c.webID)

	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", path, err)
	}

	deviceTime := strconv.FormatInt(c.clock.Now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Appid", strconv.Itoa(c.assistantID))
	req.Header.Set("Appvr", defaultVersionCode)
	req.Header.Set("Pf", defaultPlatformCode)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/ai-tool/image/generate")
	req.Header.Set("Device-Time", deviceTime)
	req.Header.Set("Sign", sign(path, deviceTime))
	req.Header.Set("Sign-Ver", "1")
	req.Header.Set("User-Agent", defaultUserAgent)

	return req, nil
}

// sign computes the request signature expected by the web API.
func sign(path, deviceTime string) string {
	suffix := path
	if len(suffix) > 7 {
		suffix = suffix[len(suffix)-7:]
	}
	sum := md5.Sum([]byte("9e2c|" + suffix + "|" + defaultPlatformCode + "|" + defaultVersionCode + "|" + deviceTime + "||11ac"))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
