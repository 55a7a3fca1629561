// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/xemtv/internal/platform/httpx"
	"github.com/ManuGH/xemtv/internal/resilience"
)

func newPlaylistServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/a.m3u", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#EXTM3U\n# feed a\n"))
	})
	mux.HandleFunc("/b.m3u", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#EXTM3U\n# feed b\n"))
	})
	mux.HandleFunc("/missing.m3u", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/slow.m3u", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/br.m3u", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "br")
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte("#EXTM3U\n# brotli\n"))
		_ = bw.Close()
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	})
	mux.HandleFunc("/gz.m3u", func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte("#EXTM3U\n# gzip\n"))
		_ = zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAll_PreservesOrderAndDropsFailures(t *testing.T) {
	srv := newPlaylistServer(t)
	f := NewFetcher(httpx.NewClient(5*time.Second), WithTimeout(100*time.Millisecond))

	docs := f.FetchAll(context.Background(), []string{
		srv.URL + "/b.m3u",
		srv.URL + "/missing.m3u",
		srv.URL + "/slow.m3u",
		"http://127.0.0.1:0/unreachable.m3u",
		srv.URL + "/a.m3u",
	})

	require.Len(t, docs, 2)
	assert.Equal(t, srv.URL+"/b.m3u", docs[0].URL)
	assert.Contains(t, docs[0].Text, "feed b")
	assert.Equal(t, srv.URL+"/a.m3u", docs[1].URL)
	assert.Contains(t, docs[1].Text, "feed a")
}

func TestFetchAll_AllFailIsEmpty(t *testing.T) {
	srv := newPlaylistServer(t)
	f := NewFetcher(httpx.NewClient(time.Second))

	docs := f.FetchAll(context.Background(), []string{srv.URL + "/missing.m3u"})
	assert.Empty(t, docs)
	assert.Empty(t, f.FetchAll(context.Background(), nil))
}

func TestFetchAll_DecodesCompressedBodies(t *testing.T) {
	srv := newPlaylistServer(t)
	f := NewFetcher(httpx.NewClient(time.Second))

	docs := f.FetchAll(context.Background(), []string{srv.URL + "/br.m3u", srv.URL + "/gz.m3u"})
	require.Len(t, docs, 2)
	assert.Equal(t, "#EXTM3U\n# brotli\n", docs[0].Text)
	assert.Equal(t, "#EXTM3U\n# gzip\n", docs[1].Text)
}

func TestFetchAll_AppliesTransform(t *testing.T) {
	srv := newPlaylistServer(t)
	var seen []string
	f := NewFetcher(httpx.NewClient(time.Second), WithTransform(func(feedURL string, body []byte) ([]byte, error) {
		seen = append(seen, feedURL)
		if strings.HasSuffix(feedURL, "/b.m3u") {
			return nil, errors.New("rejected")
		}
		return bytes.ReplaceAll(body, []byte("feed a"), []byte("rewritten")), nil
	}), WithMaxBytes(1024))

	// Fetches run concurrently; keep one URL per call so seen is not shared.
	docs := f.FetchAll(context.Background(), []string{srv.URL + "/a.m3u"})
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, "rewritten")

	docs = f.FetchAll(context.Background(), []string{srv.URL + "/b.m3u"})
	assert.Empty(t, docs, "transform errors drop the feed")
	assert.Len(t, seen, 2)
}

func TestFetchAll_RejectsOversizedBody(t *testing.T) {
	srv := newPlaylistServer(t)
	f := NewFetcher(httpx.NewClient(time.Second), WithMaxBytes(4))

	assert.Empty(t, f.FetchAll(context.Background(), []string{srv.URL + "/a.m3u"}))
}

func TestFetchAll_OpenBreakerSkipsFeed(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(httpx.NewClient(time.Second), WithBreakers(resilience.NewSet(1, time.Hour)))
	assert.Empty(t, f.FetchAll(context.Background(), []string{srv.URL + "/dead.m3u"}))
	assert.Empty(t, f.FetchAll(context.Background(), []string{srv.URL + "/dead.m3u"}))
	assert.Equal(t, int32(1), hits.Load(), "second fetch must be skipped by the open breaker")
}

func TestFetchAll_BreakerIsPerFeedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(httpx.NewClient(time.Second), WithBreakers(resilience.NewSet(3, time.Hour)))
	bad := srv.URL + "/get.php?user=bad&password=x"
	for n := 0; n < 3; n++ {
		assert.Empty(t, f.FetchAll(context.Background(), []string{bad}))
	}

	docs := f.FetchAll(context.Background(), []string{srv.URL + "/get.php?user=good&password=y"})
	assert.Len(t, docs, 1, "a failing feed must not open the breaker of a feed that differs only by query")
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestDecodeBody_CloseLeavesResponseBodyOpen(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte("#EXTM3U\n"))
	require.NoError(t, zw.Close())

	for _, enc := range []string{"", "gzip"} {
		t.Run("encoding="+enc, func(t *testing.T) {
			raw := &closeRecorder{Reader: bytes.NewReader(gz.Bytes())}
			if enc == "" {
				raw.Reader = strings.NewReader("#EXTM3U\n")
			}
			resp := &http.Response{Header: http.Header{}, Body: raw}
			resp.Header.Set("Content-Encoding", enc)

			body, err := decodeBody(resp)
			require.NoError(t, err)
			got, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, "#EXTM3U\n", string(got))
			require.NoError(t, body.Close())
			assert.False(t, raw.closed)
		})
	}
}

func TestFetchAll_SendsUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(httpx.NewClient(time.Second), WithUserAgent("xemtv-test"))
	require.Len(t, f.FetchAll(context.Background(), []string{srv.URL}), 1)
	assert.Equal(t, "xemtv-test", ua.Load())
}
