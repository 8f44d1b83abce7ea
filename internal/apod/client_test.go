package apod

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/astromatch/internal/deck"
)

func TestFetchImages_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/planetary/apod", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"url":"https://apod.nasa.gov/a.jpg","media_type":"image","title":"A"},
			{"url":"https://youtube.com/embed/x","media_type":"video","title":"V"},
			{"url":"https://apod.nasa.gov/b.jpg","media_type":"image","title":"B","hdurl":"https://apod.nasa.gov/b_hd.jpg"}
		]`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, APIKey: "secret"})
	got, err := c.FetchImages(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []deck.Image{
		{URL: "https://apod.nasa.gov/a.jpg", MediaType: "image", Title: "A"},
		{URL: "https://youtube.com/embed/x", MediaType: "video", Title: "V"},
		{URL: "https://apod.nasa.gov/b.jpg", MediaType: "image", Title: "B"},
	}, got)
}

func TestFetchImages_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"OVER_RATE_LIMIT"}}`))
	}))
	defer srv.Close()

	_, err := New(Options{BaseURL: srv.URL}).FetchImages(context.Background(), 4)
	require.Error(t, err)

	var up *UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusTooManyRequests, up.StatusCode)
	assert.Contains(t, up.Body, "OVER_RATE_LIMIT")
	assert.Equal(t, KindUpstream, Kind(err))
}

func TestFetchImages_MalformedBodyIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := New(Options{BaseURL: srv.URL}).FetchImages(context.Background(), 4)
	require.Error(t, err)
	assert.Equal(t, KindUpstream, Kind(err))
}

func TestFetchImages_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close() // nothing listens there any more

	_, err := New(Options{BaseURL: base, Timeout: time.Second}).FetchImages(context.Background(), 4)
	require.Error(t, err)

	var ne *NetworkError
	assert.True(t, errors.As(err, &ne))
	assert.Equal(t, KindNetwork, Kind(err))
}

func TestFetchImages_RateLimitHonoursContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, RatePerSec: 0.001, Burst: 1})
	_, err := c.FetchImages(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.FetchImages(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, Kind(err))
	assert.Equal(t, 1, calls)
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(KindNetwork), "network issue")
	assert.Contains(t, UserMessage(KindUpstream), "NASA API")
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DefaultBaseURL, c.base)
	assert.Equal(t, DemoKey, c.key)
	assert.Nil(t, c.limiter)
	assert.Contains(t, c.endpoint(5), "count=5")
}
