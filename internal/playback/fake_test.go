// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/drm"
	"github.com/ManuGH/xemtv/internal/engine"
)

type loadCall struct {
	URL  string
	Mode drm.Mode
}

// fakeRuntime records every load and lets tests script failures.
type fakeRuntime struct {
	mu          sync.Mutex
	unsupported map[channel.StreamType]bool
	fail        func(req engine.LoadRequest) error
	block       map[string]bool
	calls       []loadCall
	events      []string
	engines     []*fakeEngine
	live        int
	maxLive     int
}

func (r *fakeRuntime) Supports(kind channel.StreamType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.unsupported[kind]
}

func (r *fakeRuntime) NewEngine(s *engine.Surface) (engine.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live++
	if r.live > r.maxLive {
		r.maxLive = r.live
	}
	e := &fakeEngine{rt: r}
	r.engines = append(r.engines, e)
	return e, nil
}

func (r *fakeRuntime) Calls() []loadCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]loadCall(nil), r.calls...)
}

func (r *fakeRuntime) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *fakeRuntime) Live() (live, maxLive int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live, r.maxLive
}

func (r *fakeRuntime) LastEngine() *fakeEngine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.engines) == 0 {
		return nil
	}
	return r.engines[len(r.engines)-1]
}

type fakeEngine struct {
	rt        *fakeRuntime
	mu        sync.Mutex
	onError   func(error)
	destroyed bool
}

func (e *fakeEngine) Load(ctx context.Context, req engine.LoadRequest) error {
	e.rt.mu.Lock()
	e.rt.calls = append(e.rt.calls, loadCall{URL: req.URL, Mode: req.DRM.Mode})
	block := e.rt.block[req.URL]
	fail := e.rt.fail
	e.rt.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if fail != nil {
		if err := fail(req); err != nil {
			return err
		}
	}
	e.mu.Lock()
	e.onError = req.OnError
	e.mu.Unlock()
	return nil
}

// Fail simulates a playback error after a successful load.
func (e *fakeEngine) Fail(err error) {
	e.mu.Lock()
	cb := e.onError
	e.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (e *fakeEngine) DetachOverlay() error {
	e.rt.mu.Lock()
	defer e.rt.mu.Unlock()
	e.rt.events = append(e.rt.events, "detach")
	return nil
}

func (e *fakeEngine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return errors.New("already destroyed")
	}
	e.destroyed = true

	e.rt.mu.Lock()
	defer e.rt.mu.Unlock()
	e.rt.events = append(e.rt.events, "destroy")
	e.rt.live--
	return nil
}
