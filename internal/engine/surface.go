// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"errors"
	"sync"
)

var ErrSurfaceBusy = errors.New("media surface is already leased")

// Surface is the single mount point an engine renders into. Only one lease
// may be held at a time.
type Surface struct {
	id string

	mu      sync.Mutex
	lease   uint64
	seq     uint64
	overlay bool
}

// NewSurface returns an unleased surface.
func NewSurface(id string) *Surface {
	return &Surface{id: id}
}

// ID returns the surface identifier.
func (s *Surface) ID() string { return s.id }

// Acquire grants exclusive use of the surface until the lease is released.
func (s *Surface) Acquire() (*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lease != 0 {
		return nil, ErrSurfaceBusy
	}
	s.seq++
	s.lease = s.seq
	return &Lease{surface: s, token: s.seq}, nil
}

// Leased reports whether a lease is currently held.
func (s *Surface) Leased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lease != 0
}

// AttachOverlay marks the surface as showing an engine overlay.
func (s *Surface) AttachOverlay() {
	s.mu.Lock()
	s.overlay = true
	s.mu.Unlock()
}

// DetachOverlay clears the overlay mark.
func (s *Surface) DetachOverlay() {
	s.mu.Lock()
	s.overlay = false
	s.mu.Unlock()
}

// HasOverlay reports whether an engine overlay is attached.
func (s *Surface) HasOverlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay
}

// Lease is exclusive ownership of a surface.
type Lease struct {
	surface *Surface
	token   uint64
	once    sync.Once
}

// Surface returns the leased surface.
func (l *Lease) Surface() *Surface { return l.surface }

// Release gives the surface back. Calling it more than once is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() {
		s := l.surface
		s.mu.Lock()
		if s.lease == l.token {
			s.lease = 0
			s.overlay = false
		}
		s.mu.Unlock()
	})
}
