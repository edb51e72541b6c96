package recall

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL)

	data, err := c.Download(context.Background(), srv.URL+"/recording.mp4")

	require.NoError(t, err)
	assert.Equal(t, []byte("video-bytes"), data)
}

func TestDownload_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL)

	_, err := c.Download(context.Background(), srv.URL+"/gone.mp4")

	assert.Error(t, err)
}

func TestDownload_ContextBoundsTransfer(t *testing.T) {
	c := NewClient("key", "https://example.invalid")

	// The API client caps requests at 30s; a recording transfer must only
	// be bounded by the caller's context.
	assert.NotZero(t, c.http.Timeout)
	assert.Zero(t, c.dl.Timeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Download(ctx, "https://example.invalid/recording.mp4")
	assert.Error(t, err)
}
