package jimeng

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimengproxy/jimeng-proxy/internal/clock"
)

const testSeed = 2_512_345_678

// writeEnvelope writes a successful upstream envelope around data.
func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ret": "0", "errmsg": "success", "data": data})
}

func writeRet(w http.ResponseWriter, ret int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ret": ret, "errmsg": msg, "data": nil})
}

// newTestClient starts handler as the upstream and returns a client wired to it.
func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *clock.Fake) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var ids atomic.Int64
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	base := []Option{
		WithBaseURL(server.URL),
		WithImageXURL(server.URL),
		WithClock(clk),
		WithSeedSource(func() int64 { return testSeed }),
		WithIDSource(func() string { return fmt.Sprintf("id-%d", ids.Add(1)) }),
		WithWebID("7000000000000000000"),
	}

	client, err := NewClient(http.DefaultTransport, append(base, opts...)...)
	require.NoError(t, err)
	return client, clk
}

func TestNewClientRequiresTransport(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
}

func TestSignUsesPathSuffix(t *testing.T) {
	sum := md5.Sum([]byte("9e2c|enerate|7|5.8.0|1700000000||11ac"))
	assert.Equal(t, hex.EncodeToString(sum[:]), sign("/mweb/v1/aigc_draft/generate", "1700000000"))

	short := md5.Sum([]byte("9e2c|/a|7|5.8.0|1||11ac"))
	assert.Equal(t, hex.EncodeToString(short[:]), sign("/a", "1"))
}

func TestCallSendsSignedHeadersAndCommonParams(t *testing.T) {
	var got *http.Request
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		writeEnvelope(w, map[string]any{})
	}))

	require.NoError(t, client.call(context.Background(), creditPath, nil, map[string]any{}, nil))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "1700000000", got.Header.Get("Device-Time"))
	assert.Equal(t, sign(creditPath, "1700000000"), got.Header.Get("Sign"))
	assert.Equal(t, "1", got.Header.Get("Sign-Ver"))
	assert.Equal(t, "513695", got.Header.Get("Appid"))
	assert.Equal(t, "513695", got.URL.Query().Get("aid"))
	assert.Equal(t, "web", got.URL.Query().Get("device_platform"))
	assert.Equal(t, "7000000000000000000", got.URL.Query().Get("web_id"))
}

func TestCallMapsRetCodes(t *testing.T) {
	tests := []struct {
		name string
		ret  int
		want error
	}{
		{name: "unauthenticated", ret: 1015, want: ErrUnauthenticated},
		{name: "insufficient credit", ret: 5000, want: ErrInsufficientCredit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeRet(w, tt.ret, "nope")
			}))

			_, err := client.Credit(context.Background())
			require.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, fmt.Sprint(tt.ret), apiErr.Ret)
		})
	}
}

func TestCallReportsHTTPStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))

	_, err := client.Credit(context.Background())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.False(t, IsPermanent(err))
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	breaker := NewBreaker("test", 2, time.Minute)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), WithBreaker(breaker))

	for range 2 {
		_, err := client.Credit(context.Background())
		require.Error(t, err)
	}

	_, err := client.Credit(context.Background())
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestBreakerIgnoresAPIErrors(t *testing.T) {
	breaker := NewBreaker("test", 1, time.Minute)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeRet(w, 1015, "login required")
	}), WithBreaker(breaker))

	for range 3 {
		_, err := client.Credit(context.Background())
		require.ErrorIs(t, err, ErrUnauthenticated)
		assert.False(t, IsPermanent(err))
	}
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestFlexStringDecodesStringsAndNumbers(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"2038","b":2038,"c":null}`), &v))

	assert.Equal(t, "2038", v.A.String())
	assert.Equal(t, "2038", v.B.String())
	assert.Equal(t, 2038, v.B.Int())
	assert.Empty(t, v.C.String())
}
