// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldTraceID   = "trace_id"
	FieldViewer    = "viewer"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Catalog fields
	FieldPlaylistURL = "playlist_url"
	FieldGroup       = "group"
	FieldChannelID   = "channel_id"
	FieldChannelName = "channel_name"

	// Playback fields
	FieldSourceIndex = "source_index"
	FieldSourceCount = "source_count"
	FieldSourceURL   = "source_url"
	FieldDRMMode     = "drm_mode"
	FieldEngineCode  = "engine_code"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
