// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/xemtv/internal/core/urlutil"
	xlog "github.com/ManuGH/xemtv/internal/log"
	"github.com/ManuGH/xemtv/internal/metrics"
	"github.com/ManuGH/xemtv/internal/resilience"
	"github.com/ManuGH/xemtv/internal/telemetry"
)

const (
	// DefaultFetchTimeout bounds each playlist download independently.
	DefaultFetchTimeout = 10 * time.Second
	defaultMaxBytes     = 32 << 20
	defaultConcurrency  = 8
	defaultUserAgent    = "xemtv/1.0"
)

const (
	resultOK      = "ok"
	resultError   = "error"
	resultSkipped = "skipped"
)

// Document is the raw text of one fetched playlist.
type Document struct {
	URL  string
	Text string
}

// Transform rewrites a fetched body before it is parsed.
type Transform func(feedURL string, body []byte) ([]byte, error)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithTransform installs a response transform applied to every body.
func WithTransform(t Transform) FetcherOption {
	return func(f *Fetcher) { f.transform = t }
}

// WithBreakers skips feeds whose circuit breaker is open.
func WithBreakers(s *resilience.Set) FetcherOption {
	return func(f *Fetcher) { f.breakers = s }
}

// WithUserAgent sets the User-Agent sent to playlist hosts.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBytes caps the decoded size of one playlist.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// Fetcher downloads playlists concurrently. A failed feed never fails the
// whole fetch; it simply contributes nothing.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	transform Transform
	breakers  *resilience.Set
	userAgent string
	maxBytes  int64
	logger    zerolog.Logger
}

// NewFetcher returns a Fetcher using client for all requests.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    client,
		timeout:   DefaultFetchTimeout,
		userAgent: defaultUserAgent,
		maxBytes:  defaultMaxBytes,
		logger:    xlog.WithComponent("playlist"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll downloads every URL and returns the successful documents in input order.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Document {
	ctx, span := telemetry.Tracer("playlist").Start(ctx, "playlist.fetch_all")
	defer span.End()

	results := make([]*Document, len(urls))
	var g errgroup.Group
	g.SetLimit(defaultConcurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			text, err := f.fetchFeed(ctx, u)
			if err != nil {
				return nil
			}
			results[i] = &Document{URL: u, Text: text}
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		if r != nil {
			docs = append(docs, *r)
		}
	}
	span.SetAttributes(
		attribute.Int(telemetry.PlaylistFeedsKey, len(urls)),
		attribute.Int("playlist.fetched", len(docs)),
	)
	return docs
}

// fetchFeed applies the breaker and records metrics, logs and a span.
func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) (string, error) {
	safeURL := urlutil.SanitizeURL(feedURL)
	logger := xlog.WithContext(ctx, f.logger).With().Str(xlog.FieldPlaylistURL, safeURL).Logger()

	var breaker *resilience.CircuitBreaker
	if f.breakers != nil {
		breaker = f.breakers.ForLabeled(feedURL, safeURL)
		if !breaker.Allow() {
			metrics.ObservePlaylistFetch(resultSkipped, 0)
			logger.Warn().Str(xlog.FieldEvent, "playlist.fetch_skipped").Msg("feed circuit open, skipping")
			return "", resilience.ErrCircuitOpen
		}
	}

	ctx, span := telemetry.Tracer("playlist").Start(ctx, "playlist.fetch")
	start := time.Now()
	text, err := f.fetch(ctx, feedURL)
	elapsed := time.Since(start)

	if err != nil {
		if breaker != nil {
			breaker.RecordFailure()
		}
		metrics.ObservePlaylistFetch(resultError, elapsed)
		span.SetAttributes(telemetry.FetchAttributes(safeURL, resultError, 0)...)
		telemetry.EndSpan(span, err, fetchErrorType(err))
		logger.Warn().Err(err).
			Str(xlog.FieldEvent, "playlist.fetch_failed").
			Dur("duration", elapsed).
			Msg("playlist fetch failed")
		return "", err
	}

	if breaker != nil {
		breaker.RecordSuccess()
	}
	metrics.ObservePlaylistFetch(resultOK, elapsed)
	span.SetAttributes(telemetry.FetchAttributes(safeURL, resultOK, len(text))...)
	telemetry.EndSpan(span, nil, "")
	logger.Debug().
		Str(xlog.FieldEvent, "playlist.fetched").
		Int("bytes", len(text)).
		Dur("duration", elapsed).
		Msg("playlist fetched")
	return text, nil
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > f.maxBytes {
		return "", fmt.Errorf("playlist exceeds %d bytes", f.maxBytes)
	}

	if f.transform != nil {
		if raw, err = f.transform(feedURL, raw); err != nil {
			return "", fmt.Errorf("transform: %w", err)
		}
	}
	return string(raw), nil
}

// decodeBody unwraps a br or gzip encoded response. Closing the result does
// not close resp.Body.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

func fetchErrorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "fetch"
	}
}
