// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playback owns per-viewer playback sessions: it walks a channel's
// ranked sources and DRM modes until one plays, and reports progress to the
// viewer as notifications.
package playback

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/core/urlutil"
	"github.com/ManuGH/xemtv/internal/drm"
	"github.com/ManuGH/xemtv/internal/engine"
	xlog "github.com/ManuGH/xemtv/internal/log"
	"github.com/ManuGH/xemtv/internal/metrics"
	"github.com/ManuGH/xemtv/internal/telemetry"
)

var ErrClosed = errors.New("playback session closed")

const (
	// DefaultRetryDelay separates consecutive attempts.
	DefaultRetryDelay  = 1500 * time.Millisecond
	defaultLoadTimeout = 15 * time.Second
)

// Option configures a Controller.
type Option func(*Controller)

// WithRetryDelay sets the pause before each retry.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithLoadTimeout bounds a single engine load.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// WithSleep replaces the retry delay implementation.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.sleep = fn }
}

// WithInbox sets the notification inbox.
func WithInbox(in *Inbox) Option {
	return func(c *Controller) { c.inbox = in }
}

// Status is a point-in-time view of a session.
type Status struct {
	SessionID   string    `json:"sessionId"`
	State       State     `json:"state"`
	ChannelID   int       `json:"channelId,omitempty"`
	ChannelName string    `json:"channelName,omitempty"`
	Source      int       `json:"source"`
	SourceCount int       `json:"sourceCount"`
	Mode        drm.Mode  `json:"drmMode,omitempty"`
	StreamURL   string    `json:"streamUrl,omitempty"`
	Attempts    int       `json:"attempts"`
	Attempted   []int     `json:"attempted,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Controller plays one channel at a time on one surface. Attempts run on a
// chain of goroutines where each run starts only after its predecessor has
// exited, so two engines never exist for the same surface.
type Controller struct {
	id          string
	runtime     engine.Runtime
	surface     *engine.Surface
	inbox       *Inbox
	retryDelay  time.Duration
	loadTimeout time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      zerolog.Logger

	mu        sync.Mutex
	closed    bool
	gen       uint64
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	state     State
	channel   channel.Channel
	sources   []channel.Source
	attempt   Attempt
	attempted map[int]struct{}
	attempts  int
	loadSeq   uint64
	lastErr   error
	updatedAt time.Time

	// Only the active run, or Close after the chain drained, touches these.
	lease *engine.Lease
	eng   engine.Engine
}

// NewController returns an idle controller bound to surface.
func NewController(id string, rt engine.Runtime, surface *engine.Surface, opts ...Option) *Controller {
	done := make(chan struct{})
	close(done)
	c := &Controller{
		id:          id,
		runtime:     rt,
		surface:     surface,
		retryDelay:  DefaultRetryDelay,
		loadTimeout: defaultLoadTimeout,
		sleep:       sleepContext,
		done:        done,
		state:       StateIdle,
		attempted:   make(map[int]struct{}),
		updatedAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.inbox == nil {
		c.inbox = NewInbox(defaultInboxCapacity)
	}
	c.logger = xlog.WithComponent("playback").With().Str(xlog.FieldSessionID, id).Logger()
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Notifications drains pending viewer notifications.
func (c *Controller) Notifications() []Notification { return c.inbox.Drain() }

// Select starts playing ch, abandoning any selection in progress. It returns
// once the attempt sequence is scheduled; use Wait to block until it settles.
// A channel without playable sources fails immediately.
func (c *Controller) Select(ch channel.Channel) error {
	sources, rankErr := channel.Rank(ch.Sources)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.gen++
	g := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	ctx := c.ctx
	c.channel = ch
	c.channel.Sources = sources
	c.sources = sources
	c.attempt = FirstAttempt()
	c.attempted = make(map[int]struct{})
	c.attempts = 0
	c.lastErr = nil

	prev := c.done
	done := make(chan struct{})
	c.done = done

	if rankErr != nil {
		c.fire(EvRejected)
		c.lastErr = rankErr
		c.mu.Unlock()

		c.logger.Warn().Err(rankErr).
			Str(xlog.FieldEvent, "playback.rejected").
			Int(xlog.FieldChannelID, ch.ID).
			Str(xlog.FieldChannelName, ch.Name).
			Msg("channel has no playable sources")
		c.notify(LevelError, fmt.Sprintf("Cannot play %q: %v", ch.Name, rankErr))
		metrics.IncPlaybackOutcome("no_sources")

		go func() {
			defer close(done)
			<-prev
			c.teardown(true)
		}()
		return rankErr
	}

	c.fire(EvSelect)
	c.mu.Unlock()

	c.logger.Info().
		Str(xlog.FieldEvent, "playback.select").
		Int(xlog.FieldChannelID, ch.ID).
		Str(xlog.FieldChannelName, ch.Name).
		Int(xlog.FieldSourceCount, len(sources)).
		Msg("channel selected")

	go c.run(ctx, g, prev, done, FirstAttempt(), true, nil)
	return nil
}

// Wait blocks until the current selection reaches Playing or Error, or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		done := c.done
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		settled := c.done == done
		c.mu.Unlock()
		if settled {
			return nil
		}
	}
}

// Status returns the current session status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		SessionID:   c.id,
		State:       c.state,
		ChannelID:   c.channel.ID,
		ChannelName: c.channel.Name,
		SourceCount: len(c.sources),
		Attempts:    c.attempts,
		UpdatedAt:   c.updatedAt,
	}
	if len(c.sources) > 0 {
		st.Source = c.attempt.Source
		st.Mode = c.attempt.Mode
	}
	if c.state == StatePlaying {
		st.StreamURL = c.sources[c.attempt.Source].URL
	}
	for idx := range c.attempted {
		st.Attempted = append(st.Attempted, idx)
	}
	sort.Ints(st.Attempted)
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

// Close cancels any attempt in flight, releases the engine and the surface,
// and rejects further selections.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
	prev := c.done
	c.mu.Unlock()

	<-prev
	c.teardown(true)

	c.mu.Lock()
	c.fire(EvClose)
	c.mu.Unlock()
	c.logger.Debug().Str(xlog.FieldEvent, "playback.closed").Msg("session closed")
	return nil
}

// run walks attempts starting at a until one plays or all are exhausted.
// pending carries a runtime failure of a that must be handled first.
func (c *Controller) run(ctx context.Context, g uint64, prev <-chan struct{}, done chan struct{}, a Attempt, fresh bool, pending error) {
	defer close(done)
	<-prev

	defer func() {
		if r := recover(); r != nil {
			c.recoverPanic(g, r)
		}
	}()

	if fresh {
		c.teardown(true)
	}

	for {
		if !c.current(g) {
			return
		}

		kind, err := FailureRuntime, pending
		pending = nil
		if err == nil {
			kind, err = c.attemptOnce(ctx, g, a)
		}
		if !c.current(g) {
			return
		}
		if err == nil {
			c.markPlaying(g, a)
			return
		}

		next, ok := Advance(a, c.sourcesSnapshot(), kind)
		if !ok {
			c.markExhausted(g, err)
			return
		}
		c.markRetry(g, a, next, kind, err)

		if err := c.sleep(ctx, c.retryDelay); err != nil {
			return
		}
		a = next
	}
}

// attemptOnce tries a single (source, mode) combination.
func (c *Controller) attemptOnce(ctx context.Context, g uint64, a Attempt) (FailureKind, error) {
	c.mu.Lock()
	if c.gen != g {
		c.mu.Unlock()
		return FailureLoad, context.Canceled
	}
	src := c.sources[a.Source]
	c.attempt = a
	c.attempted[a.Source] = struct{}{}
	c.attempts++
	c.updatedAt = time.Now()
	ch := c.channel
	c.mu.Unlock()

	logger := c.logger.With().
		Int(xlog.FieldChannelID, ch.ID).
		Int(xlog.FieldSourceIndex, a.Source).
		Str(xlog.FieldDRMMode, a.Mode.String()).
		Str(xlog.FieldSourceURL, urlutil.SanitizeURL(src.URL)).
		Logger()

	ctx, span := telemetry.Tracer("playback").Start(ctx, "playback.attempt")
	span.SetAttributes(telemetry.PlaybackAttributes(ch.Name, ch.ID, a.Source, string(src.Type), a.Mode.String())...)

	kind, err := c.load(ctx, g, src, a)
	metrics.IncPlaybackAttempt(string(src.Type), a.Mode.String(), err == nil)
	if err != nil {
		telemetry.EndSpan(span, err, string(kind))
		evt := logger.Warn().Err(err).Str(xlog.FieldEvent, "playback.attempt_failed").Str("reason", string(kind))
		if code, ok := engine.CodeOf(err); ok {
			evt = evt.Int(xlog.FieldEngineCode, code)
		}
		evt.Msg("playback attempt failed")
		return kind, err
	}
	telemetry.EndSpan(span, nil, "")
	logger.Info().Str(xlog.FieldEvent, "playback.attempt_ok").Msg("source loaded")
	return "", nil
}

func (c *Controller) load(ctx context.Context, g uint64, src channel.Source, a Attempt) (FailureKind, error) {
	if !c.runtime.Supports(src.Type) {
		return FailureUnsupported, &engine.Error{
			Code: engine.CodeRuntimeUnsupported,
			Msg:  fmt.Sprintf("%s playback is not supported", src.Type),
		}
	}

	cfg, err := configFor(src, a.Mode)
	if err != nil {
		return FailureDRMConfig, fmt.Errorf("drm %s: %w", a.Mode, err)
	}

	c.teardown(false)
	if err := c.ensureLease(); err != nil {
		return FailureLoad, err
	}
	eng, err := c.runtime.NewEngine(c.surface)
	if err != nil {
		return FailureLoad, fmt.Errorf("create engine: %w", err)
	}

	c.mu.Lock()
	c.eng = eng
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()
	err = eng.Load(loadCtx, engine.LoadRequest{
		URL:       src.URL,
		Type:      src.Type,
		Referrer:  src.Referrer,
		UserAgent: src.UserAgent,
		DRM:       cfg,
		OnError:   func(err error) { c.onRuntimeError(g, seq, err) },
	})
	if err != nil {
		return FailureLoad, err
	}
	return "", nil
}

func (c *Controller) ensureLease() error {
	c.mu.Lock()
	held := c.lease != nil
	c.mu.Unlock()
	if held {
		return nil
	}
	lease, err := c.surface.Acquire()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.lease = lease
	c.mu.Unlock()
	return nil
}

// teardown detaches and destroys the current engine, and optionally releases
// the surface. Failures are logged, never returned.
func (c *Controller) teardown(releaseLease bool) {
	c.mu.Lock()
	eng := c.eng
	c.eng = nil
	var lease *engine.Lease
	if releaseLease {
		lease = c.lease
		c.lease = nil
	}
	c.mu.Unlock()

	if eng != nil {
		if err := eng.DetachOverlay(); err != nil {
			c.logger.Warn().Err(err).Str(xlog.FieldEvent, "playback.detach_failed").Msg("failed to detach engine overlay")
		}
		if err := eng.Destroy(); err != nil {
			c.logger.Warn().Err(err).Str(xlog.FieldEvent, "playback.destroy_failed").Msg("failed to destroy engine")
		}
	}
	if lease != nil {
		lease.Release()
	}
}

// onRuntimeError handles a failure reported after the engine started playing.
func (c *Controller) onRuntimeError(g, seq uint64, err error) {
	c.mu.Lock()
	if c.closed || c.gen != g || c.loadSeq != seq || c.state != StatePlaying {
		c.mu.Unlock()
		return
	}
	c.fire(EvRuntimeError)
	c.lastErr = err
	a := c.attempt
	ctx := c.ctx
	prev := c.done
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	c.logger.Warn().Err(err).
		Str(xlog.FieldEvent, "playback.runtime_error").
		Int(xlog.FieldSourceIndex, a.Source).
		Msg("playback failed after start")

	go c.run(ctx, g, prev, done, a, false, err)
}

func (c *Controller) markPlaying(g uint64, a Attempt) {
	c.mu.Lock()
	if c.gen != g {
		c.mu.Unlock()
		return
	}
	c.fire(EvLoaded)
	recovered := c.attempts > 1 || c.lastErr != nil
	c.lastErr = nil
	name := c.channel.Name
	c.mu.Unlock()

	if recovered {
		c.notify(LevelInfo, fmt.Sprintf("Now playing %q from source %d", name, a.Source+1))
		metrics.IncPlaybackOutcome("recovered")
		return
	}
	metrics.IncPlaybackOutcome("first_source")
}

func (c *Controller) markRetry(g uint64, a, next Attempt, kind FailureKind, err error) {
	c.mu.Lock()
	if c.gen != g {
		c.mu.Unlock()
		return
	}
	c.fire(EvRetry)
	c.lastErr = err
	count := len(c.sources)
	c.mu.Unlock()

	if next.Source == a.Source {
		metrics.IncPlaybackFailover("drm_mode", string(kind))
		c.logger.Info().
			Str(xlog.FieldEvent, "playback.failover").
			Int(xlog.FieldSourceIndex, a.Source).
			Str(xlog.FieldDRMMode, next.Mode.String()).
			Msg("retrying source with next DRM mode")
		c.notify(LevelWarn, fmt.Sprintf("Source %d failed, retrying with DRM mode %q", a.Source+1, next.Mode))
		return
	}

	metrics.IncPlaybackFailover("next_source", string(kind))
	c.logger.Info().
		Str(xlog.FieldEvent, "playback.failover").
		Int(xlog.FieldSourceIndex, next.Source).
		Int(xlog.FieldSourceCount, count).
		Msg("trying next source")
	msg := fmt.Sprintf("Source %d of %d failed, trying source %d", a.Source+1, count, next.Source+1)
	if kind == FailureUnsupported {
		msg = fmt.Sprintf("Source %d of %d is not supported by the player, trying source %d", a.Source+1, count, next.Source+1)
	}
	c.notify(LevelWarn, msg)
}

func (c *Controller) markExhausted(g uint64, err error) {
	c.mu.Lock()
	if c.gen != g {
		c.mu.Unlock()
		return
	}
	c.fire(EvExhausted)
	c.lastErr = err
	name := c.channel.Name
	count := len(c.sources)
	attempts := c.attempts
	c.mu.Unlock()

	c.teardown(true)

	c.logger.Error().Err(err).
		Str(xlog.FieldEvent, "playback.exhausted").
		Str(xlog.FieldChannelName, name).
		Int(xlog.FieldSourceCount, count).
		Int("attempts", attempts).
		Msg("all sources failed")
	c.notify(LevelError, fmt.Sprintf("Could not play %q: all %d %s failed", name, count, plural(count, "source", "sources")))
	metrics.IncPlaybackOutcome("exhausted")
}

func (c *Controller) recoverPanic(g uint64, r any) {
	c.mu.Lock()
	stale := c.gen != g
	if !stale {
		c.state = StateError
		c.lastErr = fmt.Errorf("playback panic: %v", r)
		c.updatedAt = time.Now()
	}
	c.mu.Unlock()

	c.logger.Error().
		Str(xlog.FieldEvent, "playback.panic").
		Interface("panic", r).
		Bytes("stack", debug.Stack()).
		Msg("playback run panicked")
	c.teardown(true)
	if !stale {
		c.notify(LevelError, "Playback failed unexpectedly")
		metrics.IncPlaybackOutcome("panic")
	}
}

// fire applies ev to the current state. Caller must hold c.mu.
func (c *Controller) fire(ev Event) bool {
	tr, ok := TransitionFor(c.state, ev)
	if !ok {
		c.logger.Error().
			Str(xlog.FieldEvent, "playback.forbidden_transition").
			Str(xlog.FieldOldState, string(c.state)).
			Str("trigger", string(ev)).
			Msg("forbidden playback transition")
		return false
	}
	if tr.To != c.state {
		c.logger.Debug().
			Str(xlog.FieldEvent, "playback.transition").
			Str(xlog.FieldOldState, string(c.state)).
			Str(xlog.FieldNewState, string(tr.To)).
			Str("trigger", string(ev)).
			Msg("state changed")
	}
	c.state = tr.To
	c.updatedAt = time.Now()
	return true
}

func (c *Controller) current(g uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.gen == g
}

func (c *Controller) sourcesSnapshot() []channel.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sources
}

func (c *Controller) notify(level Level, msg string) {
	c.inbox.Notify(level, msg)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
