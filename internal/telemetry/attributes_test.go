// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		out[string(a.Key)] = a.Value
	}
	return out
}

func TestHTTPAttributes(t *testing.T) {
	m := attrMap(HTTPAttributes("GET", "/api/v1/groups", "http://localhost:8080/api/v1/groups", 200))
	assert.Len(t, m, 4)
	assert.Equal(t, "GET", m[HTTPMethodKey].AsString())
	assert.Equal(t, "/api/v1/groups", m[HTTPRouteKey].AsString())
	assert.Equal(t, int64(200), m[HTTPStatusCodeKey].AsInt64())
}

func TestFetchAttributes(t *testing.T) {
	m := attrMap(FetchAttributes("http://feed/list.m3u", "success", 512))
	assert.Equal(t, "http://feed/list.m3u", m[PlaylistURLKey].AsString())
	assert.Equal(t, "success", m[PlaylistResultKey].AsString())
	assert.Equal(t, int64(512), m[PlaylistBytesKey].AsInt64())
}

func TestCatalogAttributes(t *testing.T) {
	m := attrMap(CatalogAttributes(2, 3, 40))
	assert.Equal(t, int64(2), m[PlaylistFeedsKey].AsInt64())
	assert.Equal(t, int64(3), m[PlaylistGroupsKey].AsInt64())
	assert.Equal(t, int64(40), m[PlaylistChannelsKey].AsInt64())
}

func TestPlaybackAttributes(t *testing.T) {
	t.Run("with channel name", func(t *testing.T) {
		m := attrMap(PlaybackAttributes("VTV1", 7, 1, "dash", "server"))
		assert.Len(t, m, 5)
		assert.Equal(t, "VTV1", m[PlaybackChannelKey].AsString())
		assert.Equal(t, int64(7), m[PlaybackChannelIDKey].AsInt64())
		assert.Equal(t, int64(1), m[PlaybackSourceIndexKey].AsInt64())
		assert.Equal(t, "dash", m[PlaybackStreamTypeKey].AsString())
		assert.Equal(t, "server", m[PlaybackDRMModeKey].AsString())
	})
	t.Run("without channel name", func(t *testing.T) {
		m := attrMap(PlaybackAttributes("", 7, 0, "hls", "hex"))
		assert.Len(t, m, 4)
		_, ok := m[PlaybackChannelKey]
		assert.False(t, ok)
	})
}

func TestErrorAttributes(t *testing.T) {
	m := attrMap(ErrorAttributes("timeout"))
	assert.True(t, m[ErrorKey].AsBool())
	assert.Equal(t, "timeout", m[ErrorTypeKey].AsString())
}
