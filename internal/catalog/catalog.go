// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package catalog holds the current channel groups and keeps them fresh.
package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ManuGH/xemtv/internal/channel"
	xlog "github.com/ManuGH/xemtv/internal/log"
	"github.com/ManuGH/xemtv/internal/metrics"
	"github.com/ManuGH/xemtv/internal/playlist"
	"github.com/ManuGH/xemtv/internal/telemetry"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrRefreshThrottled = errors.New("refresh requested too soon")
)

// Refresh triggers, used as metric labels.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerReload   = "reload"
)

const defaultMinRefreshInterval = 30 * time.Second

// Fetcher downloads playlist documents.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []playlist.Document
}

// Parser turns fetched documents into groups.
type Parser interface {
	ParseDocuments(docs []playlist.Document) []channel.Group
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMinRefreshInterval sets the minimum spacing of manual refreshes.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(c *Catalog) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithClock overrides time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// Catalog publishes immutable snapshots. Readers never observe a partially
// built catalog; a refresh swaps the whole snapshot at once.
type Catalog struct {
	fetcher Fetcher
	limiter *rate.Limiter
	now     func() time.Time
	logger  zerolog.Logger

	mu     sync.RWMutex
	urls   []string
	parser Parser

	snap  atomic.Pointer[Snapshot]
	built atomic.Bool
	sf    singleflight.Group
}

// New returns a catalog with an empty snapshot.
func New(fetcher Fetcher, parser Parser, opts ...Option) *Catalog {
	c := &Catalog{
		fetcher: fetcher,
		parser:  parser,
		limiter: rate.NewLimiter(rate.Every(defaultMinRefreshInterval), 1),
		now:     time.Now,
		logger:  xlog.WithComponent("catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snap.Store(NewSnapshot(nil, 0, time.Time{}))
	return c
}

// SetSources replaces the playlist URLs used by subsequent refreshes.
func (c *Catalog) SetSources(urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls = append([]string(nil), urls...)
}

// Sources returns the configured playlist URLs.
func (c *Catalog) Sources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.urls...)
}

// SetParser replaces the parser, e.g. after the feed filter changed.
func (c *Catalog) SetParser(p Parser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parser = p
}

// Snapshot returns the current snapshot. It is never nil.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Ready reports whether at least one refresh completed.
func (c *Catalog) Ready() bool {
	return c.built.Load()
}

// Refresh fetches all feeds and swaps in the rebuilt snapshot. Concurrent
// callers share one refresh. Feeds that fail contribute nothing; when every
// feed fails the catalog becomes empty.
func (c *Catalog) Refresh(ctx context.Context, trigger string) (*Snapshot, error) {
	ch := c.sf.DoChan("refresh", func() (any, error) {
		return c.rebuild(context.WithoutCancel(ctx), trigger), nil
	})
	select {
	case res := <-ch:
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequestRefresh is Refresh behind the manual refresh rate limit.
func (c *Catalog) RequestRefresh(ctx context.Context) (*Snapshot, error) {
	if !c.limiter.Allow() {
		metrics.IncCatalogRefresh(TriggerManual, false)
		return nil, ErrRefreshThrottled
	}
	return c.Refresh(ctx, TriggerManual)
}

func (c *Catalog) rebuild(ctx context.Context, trigger string) *Snapshot {
	ctx, span := telemetry.Tracer("catalog").Start(ctx, "catalog.refresh")
	defer span.End()

	c.mu.RLock()
	urls := append([]string(nil), c.urls...)
	parser := c.parser
	c.mu.RUnlock()

	start := c.now()
	docs := c.fetcher.FetchAll(ctx, urls)
	groups := parser.ParseDocuments(docs)
	snap := NewSnapshot(groups, len(docs), c.now())

	c.snap.Store(snap)
	c.built.Store(true)

	success := len(urls) == 0 || len(docs) > 0
	metrics.IncCatalogRefresh(trigger, success)
	metrics.SetCatalogSize(len(snap.Groups), snap.ChannelCount())
	span.SetAttributes(telemetry.CatalogAttributes(len(docs), len(snap.Groups), snap.ChannelCount())...)

	evt := c.logger.Info()
	if !success {
		evt = c.logger.Warn()
	}
	evt.Str(xlog.FieldEvent, "catalog.refreshed").
		Str("trigger", trigger).
		Int("feeds_configured", len(urls)).
		Int("feeds_fetched", len(docs)).
		Int("groups", len(snap.Groups)).
		Int("channels", snap.ChannelCount()).
		Dur("duration", c.now().Sub(start)).
		Msg("catalog refreshed")
	return snap
}

// Run refreshes on startup and then every interval until ctx is done. A
// non-positive interval performs only the startup refresh.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) error {
	// Refresh only fails when ctx is done.
	_, _ = c.Refresh(ctx, TriggerStartup)
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = c.Refresh(ctx, TriggerSchedule)
		}
	}
}

// Lookup returns a copy of the channel with the given id.
func (c *Catalog) Lookup(id int) (channel.Channel, error) {
	if ch, ok := c.Snapshot().byID[id]; ok {
		return ch.Clone(), nil
	}
	return channel.Channel{}, ErrChannelNotFound
}

// Resolution is the outcome of resolving a channel selector.
type Resolution struct {
	Channel channel.Channel
	// Matched is false when the selector was empty or unknown and the first
	// channel was chosen instead.
	Matched bool
}

// Resolve maps a selector to a channel: first by numeric id, then by tvg-id.
// An empty or unmatched selector falls back to the first channel of the
// first group. Only an empty catalog yields ErrChannelNotFound.
func (c *Catalog) Resolve(selector string) (Resolution, error) {
	snap := c.Snapshot()
	selector = strings.TrimSpace(selector)
	if selector != "" {
		if id, err := strconv.Atoi(selector); err == nil {
			if ch, ok := snap.byID[id]; ok {
				return Resolution{Channel: ch.Clone(), Matched: true}, nil
			}
		}
		if ch, ok := snap.byStableID[selector]; ok {
			return Resolution{Channel: ch.Clone(), Matched: true}, nil
		}
	}
	first := snap.First()
	if first == nil {
		return Resolution{}, ErrChannelNotFound
	}
	return Resolution{Channel: first.Clone()}, nil
}
