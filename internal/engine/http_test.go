// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/drm"
	"github.com/ManuGH/xemtv/internal/platform/httpx"
)

const (
	testKID = "10000000100010001000100000000001"
	testKey = "00112233445566778899aabbccddeeff"

	hlsManifest = "#EXTM3U\n#EXT-X-VERSION:3\n#EXTINF:6,\nseg0.ts\n"
	clearMPD    = `<?xml version="1.0"?><MPD xmlns="urn:mpeg:dash:schema:mpd:2011"><Period/></MPD>`
	encMPD      = `<?xml version="1.0"?><MPD xmlns="urn:mpeg:dash:schema:mpd:2011" xmlns:cenc="urn:mpeg:cenc:2013">
<Period><AdaptationSet><ContentProtection schemeIdUri="urn:mpeg:dash:mp4protection:2011" value="cenc" cenc:default_KID="10000000-1000-1000-1000-100000000001"/></AdaptationSet></Period></MPD>`
)

type manifestServer struct {
	*httptest.Server
	referer   atomic.Value
	userAgent atomic.Value
	failLive  atomic.Bool
}

func newManifestServer(t *testing.T) *manifestServer {
	t.Helper()
	ms := &manifestServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/live.m3u8", func(w http.ResponseWriter, r *http.Request) {
		ms.referer.Store(r.Header.Get("Referer"))
		ms.userAgent.Store(r.Header.Get("User-Agent"))
		if ms.failLive.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(hlsManifest))
	})
	mux.HandleFunc("/clear.mpd", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(clearMPD))
	})
	mux.HandleFunc("/enc.mpd", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(encMPD))
	})
	mux.HandleFunc("/garbage.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>blocked</html>"))
	})
	ms.Server = httptest.NewServer(mux)
	t.Cleanup(ms.Close)
	return ms
}

func newTestEngine(t *testing.T, opts ...HTTPOption) (Engine, *Surface) {
	t.Helper()
	rt := NewHTTPRuntime(httpx.NewClient(2*time.Second), opts...)
	s := NewSurface("test")
	e, err := rt.NewEngine(s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Destroy() })
	return e, s
}

func mustBuild(t *testing.T, mode drm.Mode, licenseURL string) drm.Config {
	t.Helper()
	cfg, err := drm.Build(mode, []drm.KeyPair{{KID: testKID, Key: testKey}}, licenseURL)
	require.NoError(t, err)
	return cfg
}

func TestHTTPRuntime_Supports(t *testing.T) {
	rt := NewHTTPRuntime(httpx.NewClient(time.Second))
	assert.True(t, rt.Supports(channel.HLS))
	assert.True(t, rt.Supports(channel.DASH))
	assert.False(t, rt.Supports("flv"))

	noDash := NewHTTPRuntime(httpx.NewClient(time.Second), WithDASH(false))
	assert.False(t, noDash.Supports(channel.DASH))
}

func TestHTTPEngine_LoadHLSSendsHints(t *testing.T) {
	srv := newManifestServer(t)
	e, s := newTestEngine(t)
	assert.True(t, s.HasOverlay())

	err := e.Load(context.Background(), LoadRequest{
		URL:       srv.URL + "/live.m3u8",
		Type:      channel.HLS,
		Referrer:  "http://ref.example/",
		UserAgent: "xemtv-player",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://ref.example/", srv.referer.Load())
	assert.Equal(t, "xemtv-player", srv.userAgent.Load())

	require.NoError(t, e.DetachOverlay())
	assert.False(t, s.HasOverlay())
}

func TestHTTPEngine_LoadFailures(t *testing.T) {
	srv := newManifestServer(t)

	tests := []struct {
		name     string
		req      LoadRequest
		wantCode int
	}{
		{name: "missing", req: LoadRequest{URL: srv.URL + "/nope.m3u8", Type: channel.HLS}, wantCode: CodeBadHTTPStatus},
		{name: "not hls", req: LoadRequest{URL: srv.URL + "/garbage.m3u8", Type: channel.HLS}, wantCode: CodeUnsupportedFormat},
		{name: "not dash", req: LoadRequest{URL: srv.URL + "/live.m3u8", Type: channel.DASH}, wantCode: CodeUnsupportedFormat},
		{name: "unreachable", req: LoadRequest{URL: "http://127.0.0.1:0/x.m3u8", Type: channel.HLS}, wantCode: CodeHTTPError},
		{name: "empty url", req: LoadRequest{Type: channel.HLS}, wantCode: CodeHTTPError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			err := e.Load(context.Background(), tt.req)
			require.Error(t, err)
			code, ok := CodeOf(err)
			require.True(t, ok, "expected engine error, got %v", err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestHTTPEngine_ClearKeyChecks(t *testing.T) {
	srv := newManifestServer(t)
	wrongKey, err := drm.Build(drm.ModeHex, []drm.KeyPair{{KID: "ffff", Key: "eeee"}}, "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		cfg     drm.Config
		wantDRM bool
	}{
		{name: "hex with matching kid", path: "/enc.mpd", cfg: mustBuild(t, drm.ModeHex, "")},
		{name: "hex with other kid", path: "/enc.mpd", cfg: wrongKey, wantDRM: true},
		{name: "inline license document", path: "/enc.mpd", cfg: mustBuild(t, drm.ModeServer, "")},
		{name: "remote license server", path: "/enc.mpd", cfg: drm.Config{Mode: drm.ModeServer, LicenseServer: "https://license.example/ck"}},
		{name: "no drm on encrypted", path: "/enc.mpd", cfg: drm.Config{Mode: drm.ModeNone}, wantDRM: true},
		{name: "no drm on clear", path: "/clear.mpd", cfg: drm.Config{Mode: drm.ModeNone}},
		{name: "keys on clear", path: "/clear.mpd", cfg: mustBuild(t, drm.ModeHex, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			err := e.Load(context.Background(), LoadRequest{URL: srv.URL + tt.path, Type: channel.DASH, DRM: tt.cfg})
			if tt.wantDRM {
				assert.True(t, IsDRMFailure(err), "expected DRM failure, got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHTTPEngine_DestroyIsTerminal(t *testing.T) {
	srv := newManifestServer(t)
	rt := NewHTTPRuntime(httpx.NewClient(time.Second))
	e, err := rt.NewEngine(NewSurface("s"))
	require.NoError(t, err)

	require.NoError(t, e.Destroy())
	assert.Error(t, e.Destroy())
	assert.Error(t, e.Load(context.Background(), LoadRequest{URL: srv.URL + "/live.m3u8", Type: channel.HLS}))
}

func TestHTTPEngine_HealthWatchReportsFailure(t *testing.T) {
	srv := newManifestServer(t)
	rt := NewHTTPRuntime(httpx.NewClient(time.Second), WithHealthInterval(10*time.Millisecond))
	e, err := rt.NewEngine(NewSurface("s"))
	require.NoError(t, err)

	errs := make(chan error, 1)
	err = e.Load(context.Background(), LoadRequest{
		URL:     srv.URL + "/live.m3u8",
		Type:    channel.HLS,
		OnError: func(err error) { errs <- err },
	})
	require.NoError(t, err)

	srv.failLive.Store(true)
	select {
	case err := <-errs:
		code, _ := CodeOf(err)
		assert.Equal(t, CodeBadHTTPStatus, code)
	case <-time.After(2 * time.Second):
		t.Fatal("health watcher did not report the failure")
	}
	require.NoError(t, e.Destroy())
}

func TestHTTPEngine_DestroyStopsWatcher(t *testing.T) {
	srv := newManifestServer(t)
	rt := NewHTTPRuntime(httpx.NewClient(time.Second), WithHealthInterval(5*time.Millisecond))
	e, err := rt.NewEngine(NewSurface("s"))
	require.NoError(t, err)
	require.NoError(t, e.Load(context.Background(), LoadRequest{
		URL:     srv.URL + "/live.m3u8",
		Type:    channel.HLS,
		OnError: func(error) { t.Error("healthy source must not report errors") },
	}))

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, e.Destroy())

	srv.failLive.Store(true)
	time.Sleep(30 * time.Millisecond)
}
