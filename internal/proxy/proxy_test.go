package proxy

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jimengproxy/jimeng-proxy/internal/clock"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/bytedancejimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/types"
	"github.com/jimengproxy/jimeng-proxy/internal/retry"
)

type readiness bool

func (r readiness) IsReady() bool { return bool(r) }

// fakeJimeng serves the upstream endpoints used by the proxy and records the
// session cookie of each submission.
type fakeJimeng struct {
	mu       sync.Mutex
	record   map[string]any
	sessions []string
}

func (f *fakeJimeng) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var data any
	switch r.URL.Path {
	case "/commerce/v1/benefits/user_credit":
		cookie, _ := r.Cookie("sessionid")
		if cookie == nil || cookie.Value == "expired" {
			_ = json.NewEncoder(w).Encode(map[string]any{"ret": "1015", "errmsg": "login error"})
			return
		}
		data = map[string]any{"credit": map[string]int{"gift_credit": 3, "vip_credit": 2}}
	case "/mweb/v1/aigc_draft/generate":
		if cookie, err := r.Cookie("sessionid"); err == nil {
			f.sessions = append(f.sessions, cookie.Value)
		}
		data = map[string]any{"aigc_data": map[string]any{"history_record_id": "hist-1"}}
	case "/mweb/v1/get_history_by_ids":
		data = map[string]any{"hist-1": f.record}
	default:
		http.NotFound(w, r)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"ret": "0", "errmsg": "success", "data": data})
}

func (f *fakeJimeng) submittedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sessions...)
}

func imagesRecord(urls ...string) map[string]any {
	items := make([]any, 0, len(urls))
	for _, u := range urls {
		items = append(items, map[string]any{"image": map[string]any{"large_images": []any{map[string]any{"image_url": u}}}})
	}
	return map[string]any{"status": 50, "item_list": items}
}

func newTestProxy(t *testing.T, upstream *fakeJimeng, defaultTokens oauth2.TokenSource) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	start := time.Unix(1_700_000_000, 0)
	p, err := New(defaultTokens, readiness(true),
		WithUpstream(srv.URL),
		WithTokenPicker(func(n int) int { return n - 1 }),
		WithAdapterOptions(
			bytedancejimeng.WithClock(clock.NewFake(start)),
			bytedancejimeng.WithRetryPolicy(retry.Policy{MaxRetries: 3, Delay: time.Second, Clock: clock.NewFake(start)}),
			bytedancejimeng.WithResponseIDSource(func() string { return "chatcmpl-test" }),
		),
	)
	require.NoError(t, err)

	proxy := httptest.NewServer(p)
	t.Cleanup(proxy.Close)
	return proxy
}

func post(t *testing.T, url, auth, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// readEvents returns the data payloads of an SSE body.
func readEvents(t *testing.T, body io.Reader) []string {
	t.Helper()

	var events []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			events = append(events, data)
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

const chatBody = `{"model":"jimeng-3.0:512x512","messages":[{"role":"user","content":"a red fox"}]}`

func TestChatCompletions(t *testing.T) {
	upstream := &fakeJimeng{record: imagesRecord("https://img/a")}
	proxy := newTestProxy(t, upstream, nil)

	resp := post(t, proxy.URL+"/v1/chat/completions", "Bearer first, second", chatBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var got openaiadapter.CreateChatCompletionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "chatcmpl-test", got.ID)
	assert.Equal(t, "![image_0](https://img/a)\n", *got.Choices[0].Message.Content)
	assert.Equal(t, 2, got.Usage.TotalTokens)

	assert.Equal(t, []string{"second"}, upstream.submittedSessions())
}

func TestChatCompletionsUsesDefaultTokens(t *testing.T) {
	upstream := &fakeJimeng{record: imagesRecord("https://img/a")}
	proxy := newTestProxy(t, upstream, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "stored"}))

	resp := post(t, proxy.URL+"/v1/chat/completions", "", chatBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"stored"}, upstream.submittedSessions())
}

func TestChatCompletionsWithoutCredential(t *testing.T) {
	proxy := newTestProxy(t, &fakeJimeng{}, nil)

	resp := post(t, proxy.URL+"/v1/chat/completions", "", chatBody)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var got openaiadapter.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, openaiadapter.ErrorTypeAuthentication, got.Err.Type)
}

func TestChatCompletionsRejectsBadInput(t *testing.T) {
	proxy := newTestProxy(t, &fakeJimeng{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"model":`},
		{"empty messages", `{"model":"jimeng-3.0","messages":[]}`},
		{"invalid resolution", `{"model":"jimeng-video-3.0","messages":[{"role":"user","content":"x"}],"extra_body":{"resolution":"8k"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, proxy.URL+"/v1/chat/completions", "Bearer tok", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var got openaiadapter.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, openaiadapter.ErrorTypeInvalidRequest, got.Err.Type)
		})
	}
}

func TestChatCompletionsStreaming(t *testing.T) {
	upstream := &fakeJimeng{record: imagesRecord("https://img/a", "https://img/b")}
	proxy := newTestProxy(t, upstream, nil)

	body := `{"model":"jimeng-3.0","stream":true,"messages":[{"role":"user","content":"a red fox"}]}`
	resp := post(t, proxy.URL+"/v1/chat/completions", "Bearer tok", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp.Body)
	require.Len(t, events, 5)
	assert.Equal(t, "[DONE]", events[4])

	for i, event := range events[:4] {
		var chunk openaiadapter.CreateChatCompletionChunk
		require.NoError(t, json.Unmarshal([]byte(event), &chunk))
		assert.Equal(t, "chatcmpl-test", chunk.ID)
		assert.Equal(t, i, chunk.Choices[0].Index)
	}
}

func TestChatCompletionsStreamingEmptyMessages(t *testing.T) {
	proxy := newTestProxy(t, &fakeJimeng{}, nil)

	resp := post(t, proxy.URL+"/v1/chat/completions", "Bearer tok", `{"model":"jimeng-3.0","stream":true,"messages":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"[DONE]"}, readEvents(t, resp.Body))
}

func TestImagesGenerations(t *testing.T) {
	upstream := &fakeJimeng{record: imagesRecord("https://img/a")}
	proxy := newTestProxy(t, upstream, nil)

	resp := post(t, proxy.URL+"/v1/images/generations", "Bearer tok", `{"model":"jimeng-3.0","prompt":"fox"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got types.ImagesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []types.Image{{URL: "https://img/a"}}, got.Data)
}

func TestTokenPoints(t *testing.T) {
	proxy := newTestProxy(t, &fakeJimeng{}, nil)

	resp := post(t, proxy.URL+"/token/points", "Bearer one,two", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []TokenPoints
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Token)
	assert.Equal(t, "two", got[1].Token)
	assert.Equal(t, 5, got[1].Points.Total)
}

func TestTokenPointsRejectedToken(t *testing.T) {
	proxy := newTestProxy(t, &fakeJimeng{}, nil)

	resp := post(t, proxy.URL+"/token/points", "Bearer expired", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, proxy.URL+"/token/points", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestModels(t *testing.T) {
	proxy := newTestProxy(t, &fakeJimeng{}, nil)

	resp, err := http.Get(proxy.URL + "/v1/models")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var got types.ListModelsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	ids := make([]string, 0, len(got.Data))
	for _, m := range got.Data {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, "list", got.Object)
	assert.Contains(t, ids, "jimeng-3.0")
	assert.Contains(t, ids, "jimeng-video-3.0")
}

func TestOperationalEndpoints(t *testing.T) {
	proxy := newTestProxy(t, &fakeJimeng{}, nil)

	for _, path := range []string{"/ping", "/health/live", "/health/ready", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(proxy.URL + path)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestReadinessNotReady(t *testing.T) {
	p, err := New(nil, readiness(false))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"status":"not_ready"}`, rec.Body.String())
}

func TestRequestSizeLimit(t *testing.T) {
	p, err := New(nil, readiness(true), WithMaxRequestBytes(16))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(chatBody))
	req.Header.Set("Authorization", "Bearer tok")
	p.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewRejectsInvalidUpstream(t *testing.T) {
	_, err := New(nil, readiness(true), WithUpstream("://nope"))
	require.Error(t, err)

	_, err = New(nil, nil)
	require.Error(t, err)
}
