// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/core/urlutil"
	"github.com/ManuGH/xemtv/internal/drm"
	xlog "github.com/ManuGH/xemtv/internal/log"
)

const defaultProbeBytes = 1 << 20

var (
	errDestroyed = errors.New("engine destroyed")

	defaultKIDPattern = regexp.MustCompile(`(?i)cenc:default_KID\s*=\s*"([0-9a-f-]+)"`)
)

// HTTPOption configures an HTTPRuntime.
type HTTPOption func(*HTTPRuntime)

// WithDASH toggles DASH support.
func WithDASH(enabled bool) HTTPOption {
	return func(r *HTTPRuntime) { r.dash = enabled }
}

// WithHealthInterval makes loaded engines re-probe their manifest every d.
func WithHealthInterval(d time.Duration) HTTPOption {
	return func(r *HTTPRuntime) { r.healthInterval = d }
}

// WithProbeBytes caps how much of a manifest is read.
func WithProbeBytes(n int64) HTTPOption {
	return func(r *HTTPRuntime) {
		if n > 0 {
			r.probeBytes = n
		}
	}
}

// HTTPRuntime plays sources by fetching and validating their manifests.
type HTTPRuntime struct {
	client         *http.Client
	dash           bool
	healthInterval time.Duration
	probeBytes     int64
	logger         zerolog.Logger
}

// NewHTTPRuntime returns a runtime supporting HLS and, unless disabled, DASH.
func NewHTTPRuntime(client *http.Client, opts ...HTTPOption) *HTTPRuntime {
	r := &HTTPRuntime{
		client:     client,
		dash:       true,
		probeBytes: defaultProbeBytes,
		logger:     xlog.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supports reports whether kind can be played.
func (r *HTTPRuntime) Supports(kind channel.StreamType) bool {
	switch kind {
	case channel.HLS:
		return true
	case channel.DASH:
		return r.dash
	default:
		return false
	}
}

// NewEngine binds a new engine to s and attaches its overlay.
func (r *HTTPRuntime) NewEngine(s *Surface) (Engine, error) {
	if s == nil {
		return nil, errors.New("nil surface")
	}
	s.AttachOverlay()
	ctx, cancel := context.WithCancel(context.Background())
	return &httpEngine{runtime: r, surface: s, ctx: ctx, cancel: cancel}, nil
}

type httpEngine struct {
	runtime *HTTPRuntime
	surface *Surface

	// ctx is canceled by Destroy and bounds the health watcher.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	destroyed bool
}

func (e *httpEngine) Load(ctx context.Context, req LoadRequest) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return errDestroyed
	}
	e.mu.Unlock()

	if err := e.runtime.probe(ctx, req); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return errDestroyed
	}
	if e.runtime.healthInterval > 0 && req.OnError != nil {
		e.wg.Add(1)
		go e.watch(req)
	}
	return nil
}

// watch re-probes the manifest until it fails or the engine is destroyed.
func (e *httpEngine) watch(req LoadRequest) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.runtime.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if err := e.runtime.probe(e.ctx, req); err != nil {
				if e.ctx.Err() != nil {
					return
				}
				e.runtime.logger.Warn().Err(err).
					Str(xlog.FieldEvent, "engine.health_failed").
					Str(xlog.FieldSourceURL, urlutil.SanitizeURL(req.URL)).
					Msg("loaded source stopped responding")
				req.OnError(err)
				return
			}
		}
	}
}

func (e *httpEngine) DetachOverlay() error {
	e.surface.DetachOverlay()
	return nil
}

func (e *httpEngine) Destroy() error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return errDestroyed
	}
	e.destroyed = true
	e.mu.Unlock()

	e.cancel()

	e.wg.Wait()
	return nil
}

// probe fetches the manifest and checks it can be played with req.DRM.
func (r *HTTPRuntime) probe(ctx context.Context, req LoadRequest) error {
	if req.URL == "" {
		return &Error{Code: CodeHTTPError, Msg: "empty source URL"}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return &Error{Code: CodeHTTPError, Msg: "build request", Err: err}
	}
	if req.Referrer != "" {
		httpReq.Header.Set("Referer", req.Referrer)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return &Error{Code: CodeHTTPError, Msg: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Code: CodeBadHTTPStatus, Msg: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, r.probeBytes))
	if err != nil {
		return &Error{Code: CodeHTTPError, Msg: "read manifest", Err: err}
	}

	switch req.Type {
	case channel.DASH:
		if !bytes.Contains(body, []byte("<MPD")) {
			return &Error{Code: CodeUnsupportedFormat, Msg: "not a DASH manifest"}
		}
		return checkKeys(body, req.DRM)
	default:
		if !bytes.HasPrefix(bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))), []byte("#EXTM3U")) {
			return &Error{Code: CodeUnsupportedFormat, Msg: "not an HLS playlist"}
		}
		return nil
	}
}

// checkKeys fails with CodeDRMFailure when the manifest is encrypted with a
// key id the configuration cannot provide.
func checkKeys(manifest []byte, cfg drm.Config) error {
	m := defaultKIDPattern.FindSubmatch(manifest)
	if m == nil {
		return nil
	}
	kid := strings.ToLower(strings.ReplaceAll(string(m[1]), "-", ""))

	switch cfg.Mode {
	case drm.ModeHex:
		if _, ok := cfg.ClearKeys[kid]; ok {
			return nil
		}
	case drm.ModeServer:
		doc, inline, err := drm.ParseDataURI(cfg.LicenseServer)
		if err != nil {
			return &Error{Code: CodeDRMFailure, Msg: "invalid license document", Err: err}
		}
		if !inline {
			if cfg.LicenseServer != "" {
				return nil
			}
			break
		}
		for _, id := range doc.KeyIDsHex() {
			if id == kid {
				return nil
			}
		}
	}
	return &Error{Code: CodeDRMFailure, Msg: "no key for default_KID " + kid}
}
