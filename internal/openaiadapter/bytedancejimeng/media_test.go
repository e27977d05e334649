package bytedancejimeng

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/types"
)

func TestMediaAdapterGenerateImagesURL(t *testing.T) {
	env := newTestEnv(t, imagesDone("https://img/a", "https://img/b"))
	adapter := NewMediaAdapter(env.opts...)

	resp, err := adapter.GenerateImages(context.Background(), types.CreateImageRequest{Model: "jimeng-3.0", Prompt: "cat"}, http.DefaultTransport)
	require.NoError(t, err)

	assert.Equal(t, int64(1_700_000_000), resp.Created)
	assert.Equal(t, []types.Image{{URL: "https://img/a"}, {URL: "https://img/b"}}, resp.Data)
}

func TestMediaAdapterGenerateImagesBase64(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png-bytes"))
	}))
	t.Cleanup(files.Close)

	env := newTestEnv(t, imagesDone(files.URL+"/a.png"))
	adapter := NewMediaAdapter(append(env.opts, WithClientOptions(jimeng.WithPrivateNetworks(true)))...)

	resp, err := adapter.GenerateImages(context.Background(), types.CreateImageRequest{
		Prompt:         "cat",
		ResponseFormat: types.ResponseFormatB64JSON,
	}, http.DefaultTransport)
	require.NoError(t, err)

	require.Len(t, resp.Data, 1)
	assert.Empty(t, resp.Data[0].URL)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), resp.Data[0].B64JSON)
}

func TestMediaAdapterRejectsInvalidRequest(t *testing.T) {
	env := newTestEnv(t, imagesDone("https://img/a"))
	adapter := NewMediaAdapter(env.opts...)

	_, err := adapter.GenerateImages(context.Background(), types.CreateImageRequest{Prompt: "cat", ResponseFormat: "gif"}, http.DefaultTransport)
	assert.True(t, openaiadapter.IsInvalidRequest(err))

	_, err = adapter.GenerateVideos(context.Background(), types.CreateVideoRequest{}, http.DefaultTransport)
	assert.True(t, openaiadapter.IsInvalidRequest(err))
	assert.Zero(t, env.upstream.submitCount())
}

func TestMediaAdapterGenerateVideos(t *testing.T) {
	env := newTestEnv(t, videoDone("https://video/1.mp4"))
	adapter := NewMediaAdapter(env.opts...)

	resp, err := adapter.GenerateVideos(context.Background(), types.CreateVideoRequest{Model: "jimeng-video-3.0", Prompt: "sea"}, http.DefaultTransport)
	require.NoError(t, err)
	assert.Equal(t, []types.Video{{URL: "https://video/1.mp4"}}, resp.Data)
}

func TestMediaAdapterDoesNotRetry(t *testing.T) {
	env := newTestEnv(t, map[string]any{"status": 30, "fail_code": "1000"})
	adapter := NewMediaAdapter(env.opts...)

	_, err := adapter.GenerateImages(context.Background(), types.CreateImageRequest{Prompt: "cat"}, http.DefaultTransport)
	require.Error(t, err)
	assert.Equal(t, 1, env.upstream.submitCount())
}
