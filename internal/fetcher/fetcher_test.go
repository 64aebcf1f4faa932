package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Timeout = time.Second
	opts.RetryBackoff = time.Millisecond
	return opts
}

// dropConnection closes the underlying connection without writing a response.
func dropConnection(t *testing.T, w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	require.True(t, ok)
	conn, _, err := hj.Hijack()
	require.NoError(t, err)
	_ = conn.Close()
}

func TestFetch_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h1>Learn Python</h1> <p>today</p></body></html>"))
	}))
	defer server.Close()

	opts := testOptions()
	opts.UserAgent = "test-agent/1.0"
	outcome := New(opts, nil).Fetch(context.Background(), server.URL)

	require.NotNil(t, outcome.HTTPStatus)
	assert.Equal(t, http.StatusOK, *outcome.HTTPStatus)
	require.NotNil(t, outcome.FinalURL)
	assert.Equal(t, server.URL, *outcome.FinalURL)
	assert.Equal(t, "Learn Python today", outcome.BodySnippet)
	assert.Equal(t, "test-agent/1.0", gotUA)
}

func TestFetch_ErrorStatusesAreResults(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusTooManyRequests, http.StatusInternalServerError} {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(code)
			_, _ = w.Write([]byte("<p>Page not found</p>"))
		}))

		outcome := New(testOptions(), nil).Fetch(context.Background(), server.URL)
		server.Close()

		require.NotNil(t, outcome.HTTPStatus, "status %d", code)
		assert.Equal(t, code, *outcome.HTTPStatus)
		assert.Equal(t, "Page not found", outcome.BodySnippet)
		assert.Equal(t, int32(1), hits.Load(), "status %d must not be retried", code)
	}
}

func TestFetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/course/old/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/course/new/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/course/new/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("new home"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	outcome := New(testOptions(), nil).Fetch(context.Background(), server.URL+"/course/old/")

	require.NotNil(t, outcome.FinalURL)
	assert.Equal(t, server.URL+"/course/new/", *outcome.FinalURL)
	assert.Equal(t, http.StatusOK, *outcome.HTTPStatus)
	assert.Equal(t, "new home", outcome.BodySnippet)
}

func TestFetch_TooManyRedirectsIsNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	opts := testOptions()
	opts.MaxRedirects = 3
	outcome := New(opts, nil).Fetch(context.Background(), server.URL+"/a")

	assert.Nil(t, outcome.HTTPStatus)
	assert.Nil(t, outcome.FinalURL)
	assert.Empty(t, outcome.BodySnippet)
}

func TestFetch_RetriesTransportFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			dropConnection(t, w)
			return
		}
		_, _ = w.Write([]byte("finally"))
	}))
	defer server.Close()

	outcome := New(testOptions(), nil).Fetch(context.Background(), server.URL)

	assert.Equal(t, int32(3), hits.Load())
	require.NotNil(t, outcome.HTTPStatus)
	assert.Equal(t, http.StatusOK, *outcome.HTTPStatus)
	assert.Equal(t, "finally", outcome.BodySnippet)
}

func TestFetch_ExhaustedRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		dropConnection(t, w)
	}))
	defer server.Close()

	outcome := New(testOptions(), nil).Fetch(context.Background(), server.URL)

	assert.Equal(t, int32(3), hits.Load(), "one attempt plus two retries")
	assert.Nil(t, outcome.HTTPStatus)
	assert.Nil(t, outcome.FinalURL)
	assert.Equal(t, "", outcome.BodySnippet)
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	opts := testOptions()
	opts.Timeout = 20 * time.Millisecond
	opts.MaxRetries = 0
	outcome := New(opts, nil).Fetch(context.Background(), server.URL)

	assert.Nil(t, outcome.HTTPStatus)
}

func TestFetch_InvalidURLIsNotRetried(t *testing.T) {
	opts := testOptions()
	opts.RetryBackoff = time.Hour

	done := make(chan struct{})
	go func() {
		defer close(done)
		outcome := New(opts, nil).Fetch(context.Background(), "http://[::1")
		assert.Nil(t, outcome.HTTPStatus)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("invalid URL was retried")
	}
}

func TestFetch_DecodesDeclaredCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>caf\xe9</p>"))
	}))
	defer server.Close()

	outcome := New(testOptions(), nil).Fetch(context.Background(), server.URL)
	assert.Equal(t, "café", outcome.BodySnippet)
}
