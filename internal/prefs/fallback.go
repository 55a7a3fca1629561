// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	xlog "github.com/ManuGH/xemtv/internal/log"
)

// ErrDegraded is returned by Ping when the primary store is unreachable but
// the fallback still serves requests.
var ErrDegraded = errors.New("preference store degraded")

// FallbackStore reads and writes the primary store and uses the local
// fallback whenever the primary fails. Writes go to both so the fallback
// stays warm.
type FallbackStore struct {
	primary  Store
	fallback Store
	logger   zerolog.Logger
}

// NewFallbackStore combines primary with a local fallback.
func NewFallbackStore(primary, fallback Store) *FallbackStore {
	return &FallbackStore{
		primary:  primary,
		fallback: fallback,
		logger:   xlog.WithComponent("prefs"),
	}
}

func (s *FallbackStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.primary.Get(ctx, key)
	switch {
	case err == nil:
		return v, nil
	case !errors.Is(err, ErrNotFound):
		s.degraded("get", err)
	}
	return s.fallback.Get(ctx, key)
}

func (s *FallbackStore) Set(ctx context.Context, key, value string) error {
	ferr := s.fallback.Set(ctx, key, value)
	if err := s.primary.Set(ctx, key, value); err != nil {
		s.degraded("set", err)
		return ferr
	}
	if ferr != nil {
		s.logger.Warn().Err(ferr).Str(xlog.FieldEvent, "prefs.fallback_write_failed").Msg("local preference write failed")
	}
	return nil
}

func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	ferr := s.fallback.Delete(ctx, key)
	if err := s.primary.Delete(ctx, key); err != nil {
		s.degraded("delete", err)
		return ferr
	}
	return nil
}

// Ping returns ErrDegraded when only the fallback is reachable.
func (s *FallbackStore) Ping(ctx context.Context) error {
	if err := s.primary.Ping(ctx); err != nil {
		if ferr := s.fallback.Ping(ctx); ferr != nil {
			return fmt.Errorf("all preference stores unavailable: %w", errors.Join(err, ferr))
		}
		return fmt.Errorf("%w: %v", ErrDegraded, err)
	}
	return nil
}

func (s *FallbackStore) Close() error {
	return errors.Join(s.primary.Close(), s.fallback.Close())
}

func (s *FallbackStore) degraded(op string, err error) {
	s.logger.Warn().Err(err).
		Str(xlog.FieldEvent, "prefs.primary_failed").
		Str("op", op).
		Msg("primary preference store failed, using local fallback")
}
