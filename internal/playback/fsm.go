// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/drm"
)

// Attempt identifies one (source, DRM mode) combination.
type Attempt struct {
	Source int      `json:"source"`
	Mode   drm.Mode `json:"mode"`
}

// FirstAttempt is where every channel selection starts.
func FirstAttempt() Attempt {
	return Attempt{Source: 0, Mode: drm.ModeHex}
}

// FailureKind classifies why an attempt failed.
type FailureKind string

const (
	// FailureUnsupported means the runtime cannot play the source format at all.
	FailureUnsupported FailureKind = "unsupported"
	FailureDRMConfig   FailureKind = "drm_config"
	FailureLoad        FailureKind = "load"
	FailureRuntime     FailureKind = "runtime"
)

// Advance returns the attempt that follows a failed one. A clear-key source
// walks the DRM modes before the next source is tried; each source starts at
// ModeHex. ok is false once every source is exhausted.
func Advance(a Attempt, sources []channel.Source, kind FailureKind) (next Attempt, ok bool) {
	if a.Source < 0 || a.Source >= len(sources) {
		return Attempt{}, false
	}
	if kind != FailureUnsupported && sources[a.Source].HasClearKey() {
		if mode, more := a.Mode.Next(); more {
			return Attempt{Source: a.Source, Mode: mode}, true
		}
	}
	if a.Source+1 < len(sources) {
		return Attempt{Source: a.Source + 1, Mode: drm.ModeHex}, true
	}
	return Attempt{}, false
}

// MaxAttempts bounds the attempts made for n sources.
func MaxAttempts(n int) int {
	return n * len(drm.Modes)
}

// configFor builds the engine DRM configuration for one attempt. Sources
// without clear-key material always play unconfigured.
func configFor(src channel.Source, mode drm.Mode) (drm.Config, error) {
	if !src.HasClearKey() {
		return drm.Config{Mode: drm.ModeNone}, nil
	}
	return drm.Build(mode, src.Keys, src.LicenseURL())
}
