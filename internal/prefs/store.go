// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package prefs persists small per-viewer preferences such as the last
// selected channel.
package prefs

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("preference not found")

// Store is an opaque string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Ping reports whether the store is usable.
	Ping(ctx context.Context) error
	Close() error
}

// SelectionKey is the key under which a viewer's last channel is stored.
func SelectionKey(viewer string) string {
	if viewer == "" {
		viewer = "default"
	}
	return "selection:" + viewer
}
