// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by every span the daemon emits.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	PlaylistURLKey      = "playlist.url"
	PlaylistBytesKey    = "playlist.bytes"
	PlaylistResultKey   = "playlist.result"
	PlaylistFeedsKey    = "playlist.feeds"
	PlaylistGroupsKey   = "playlist.groups"
	PlaylistChannelsKey = "playlist.channels"

	PlaybackChannelKey     = "playback.channel"
	PlaybackChannelIDKey   = "playback.channel_id"
	PlaybackSourceIndexKey = "playback.source_index"
	PlaybackStreamTypeKey  = "playback.stream_type"
	PlaybackDRMModeKey     = "playback.drm_mode"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// FetchAttributes describes one playlist download. url must already be sanitised.
func FetchAttributes(url, result string, bytes int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PlaylistURLKey, url),
		attribute.String(PlaylistResultKey, result),
		attribute.Int(PlaylistBytesKey, bytes),
	}
}

// CatalogAttributes describes the outcome of a catalog build.
func CatalogAttributes(feeds, groups, channels int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(PlaylistFeedsKey, feeds),
		attribute.Int(PlaylistGroupsKey, groups),
		attribute.Int(PlaylistChannelsKey, channels),
	}
}

// PlaybackAttributes describes one (source, DRM mode) attempt.
func PlaybackAttributes(channelName string, channelID, sourceIndex int, streamType, drmMode string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 5)
	if channelName != "" {
		attrs = append(attrs, attribute.String(PlaybackChannelKey, channelName))
	}
	return append(attrs,
		attribute.Int(PlaybackChannelIDKey, channelID),
		attribute.Int(PlaybackSourceIndexKey, sourceIndex),
		attribute.String(PlaybackStreamTypeKey, streamType),
		attribute.String(PlaybackDRMModeKey, drmMode),
	)
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
