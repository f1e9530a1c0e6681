package prober

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "ytscan/pkg/errors"
	"ytscan/pkg/logger"
)

var placeholders = []string{"- YouTube", "Video - YouTube", "YouTube"}

func newTestClient(t *testing.T, baseURL string, log logger.Logger) *Client {
	t.Helper()
	return NewClient(Options{
		BaseURL:           baseURL,
		Timeout:           2 * time.Second,
		PlaceholderTitles: placeholders,
	}, log)
}

func TestURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://www.youtube.com/watch?v=", "https://www.youtube.com/watch?v=abc"},
		{"http://host/videos/", "http://host/videos/abc"},
		{"http://host/videos", "http://host/videos/abc"},
		{"http://host/v/{id}/info", "http://host/v/abc/info"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			c := newTestClient(t, tt.base, logger.NewNopLogger())
			assert.Equal(t, tt.want, c.URL("abc"))
		})
	}
}

func TestProbeClassification(t *testing.T) {
	pages := map[string]string{
		"/found":       "<html><head><title>  My Clip \n</title></head></html>",
		"/placeholder": "<html><head><title>Video - YouTube</title></head></html>",
		"/legacy":      "<html><head><title>- YouTube</title></head></html>",
		"/empty":       "<html><head><title>   </title></head></html>",
		"/untitled":    "<html><body>nothing here</body></html>",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/", logger.NewNopLogger())

	tests := []struct {
		id        string
		wantFound bool
		wantTitle string
	}{
		{"found", true, "My Clip"},
		{"placeholder", false, ""},
		{"legacy", false, ""},
		{"empty", false, ""},
		{"untitled", false, ""},
		{"missing", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := c.Probe(context.Background(), tt.id)
			assert.Equal(t, tt.wantFound, got.Found())
			assert.Equal(t, tt.wantTitle, got.Title)
		})
	}
}

func TestProbeSendsBrowserHeaders(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, "<title>x</title>")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, logger.NewNopLogger())
	c.Probe(context.Background(), "abc")

	assert.True(t, strings.HasPrefix(ua.Load().(string), "Mozilla/5.0"))
}

func TestProbeTransportFailureIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	log := logger.NewTestLogger()
	c := newTestClient(t, srv.URL, log)

	got := c.Probe(context.Background(), "abc")
	assert.False(t, got.Found())

	warns := log.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "abc", warns[0].Fields["id"])
	assert.Equal(t, srv.URL+"/abc", warns[0].Fields["url"])
	assert.Equal(t, "transport", warns[0].Fields["error_type"])
}

func TestProbeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	log := logger.NewTestLogger()
	c := newTestClient(t, url, log)

	assert.False(t, c.Probe(context.Background(), "abc").Found())
	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)

	_, err := c.Check(context.Background(), "abc")
	assert.ErrorIs(t, err, errs.ErrTransport)
}

func TestProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, logger.NewNopLogger())

	start := time.Now()
	_, err := c.Check(context.Background(), "slow")
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCheckStatusHandling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gone":
			w.WriteHeader(http.StatusGone)
		case "/busy":
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, logger.NewNopLogger())

	out, err := c.Check(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, out.Found())

	_, err = c.Check(context.Background(), "busy")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeTransport, errs.TypeOf(err))
}

func TestExtractTitle(t *testing.T) {
	title, err := ExtractTitle(strings.NewReader("<html><head><title>First</title><title>Second</title></head></html>"))
	require.NoError(t, err)
	assert.Equal(t, "First", title)

	title, err = ExtractTitle(strings.NewReader("<title>Tom &amp; Jerry &#8211; Live</title>"))
	require.NoError(t, err)
	assert.Equal(t, "Tom & Jerry – Live", title)

	title, err = ExtractTitle(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "", title)
}

func TestClassify(t *testing.T) {
	c := newTestClient(t, "http://host/", logger.NewNopLogger())

	assert.Equal(t, Outcome{Status: Found, Title: "My Clip"}, c.Classify("My Clip"))
	assert.Equal(t, Outcome{Status: NotFound}, c.Classify("Video - YouTube"))
	assert.Equal(t, Outcome{Status: NotFound}, c.Classify(" YouTube "))
	assert.Equal(t, Outcome{Status: NotFound}, c.Classify(""))
}

func TestSetHTTPClient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<title>Secure Clip</title>")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, logger.NewNopLogger())

	// the default client does not trust the test certificate
	_, err := c.Check(context.Background(), "x")
	assert.ErrorIs(t, err, errs.ErrTransport)

	c.SetHTTPClient(srv.Client())
	out, err := c.Check(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Secure Clip", out.Title)
}
