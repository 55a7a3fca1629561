// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package engine defines the media engine contract used by playback sessions
// and an HTTP implementation that validates manifests before playing them.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/drm"
)

// Error codes reported by engines.
const (
	CodeBadHTTPStatus      = 1001
	CodeHTTPError          = 1002
	CodeUnsupportedFormat  = 4000
	CodeDRMFailure         = 6008
	CodeRuntimeUnsupported = 7000
)

// Error is a failure reported by an engine, identified by a numeric code.
type Error struct {
	Code int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine error %d: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the engine error code from err.
func CodeOf(err error) (int, bool) {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code, true
	}
	return 0, false
}

// IsDRMFailure reports whether err is a license or decryption failure.
func IsDRMFailure(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == CodeDRMFailure
}

// LoadRequest is everything an engine needs to start one source.
type LoadRequest struct {
	URL       string
	Type      channel.StreamType
	Referrer  string
	UserAgent string
	DRM       drm.Config

	// OnError receives failures that happen after Load returned nil. It is
	// called at most once and must not block.
	OnError func(error)
}

// Engine plays one source on a surface.
type Engine interface {
	Load(ctx context.Context, req LoadRequest) error
	// DetachOverlay unregisters the engine's UI overlay from its surface.
	DetachOverlay() error
	Destroy() error
}

// Runtime creates engines and reports which formats it can play.
type Runtime interface {
	Supports(kind channel.StreamType) bool
	NewEngine(s *Surface) (Engine, error)
}
