// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	xlog "github.com/ManuGH/xemtv/internal/log"
	"github.com/ManuGH/xemtv/internal/metrics"
)

var (
	ErrSessionNotFound  = errors.New("playback session not found")
	ErrTooManySessions  = errors.New("too many playback sessions")
	errRegistryShutdown = errors.New("session registry is shut down")
)

// Factory builds the controller for a new session id.
type Factory func(id string) *Controller

// Registry tracks open sessions, one controller per viewer.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Controller
	max      int
	factory  Factory
	shutdown bool
	logger   zerolog.Logger
}

// NewRegistry returns a registry allowing at most max sessions; max <= 0
// means unbounded.
func NewRegistry(max int, factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*Controller),
		max:      max,
		factory:  factory,
		logger:   xlog.WithComponent("playback"),
	}
}

// Create opens a new session.
func (r *Registry) Create() (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return nil, errRegistryShutdown
	}
	if r.max > 0 && len(r.sessions) >= r.max {
		return nil, ErrTooManySessions
	}
	id := uuid.NewString()
	c := r.factory(id)
	r.sessions[id] = c
	metrics.SetActiveSessions(len(r.sessions))
	r.logger.Info().
		Str(xlog.FieldEvent, "playback.session_created").
		Str(xlog.FieldSessionID, id).
		Int("sessions", len(r.sessions)).
		Msg("playback session created")
	return c, nil
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Close removes and closes the session with id.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	c, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		metrics.SetActiveSessions(len(r.sessions))
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return c.Close()
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes every session and rejects new ones.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.shutdown = true
	sessions := r.sessions
	r.sessions = make(map[string]*Controller)
	metrics.SetActiveSessions(0)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range sessions {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Close()
		}()
	}
	wg.Wait()
}
