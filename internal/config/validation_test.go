// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) AppConfig {
	t.Helper()
	cfg := Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Playlist.URLs = []string{"https://iptv.example/list.m3u"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid", func(*AppConfig) {}, ""},
		{"zero fetch timeout", func(c *AppConfig) { c.Playlist.FetchTimeout = 0 }, "playlist.fetchTimeout"},
		{"malformed playlist url", func(c *AppConfig) { c.Playlist.URLs = []string{"iptv.example/list"} }, "playlist.urls[0]"},
		{"filter group without feed", func(c *AppConfig) { c.Playlist.FilterGroup = "Sport" }, "playlist.filterGroup"},
		{"filter feed without group", func(c *AppConfig) { c.Playlist.FilterFeed = "list.m3u" }, "playlist.filterFeed"},
		{"filter group with feed", func(c *AppConfig) {
			c.Playlist.FilterFeed = "list.m3u"
			c.Playlist.FilterGroup = "Sport"
		}, ""},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "logLevel"},
		{"bad listen addr", func(c *AppConfig) { c.ListenAddr = "8080" }, "listenAddr"},
		{"no sessions", func(c *AppConfig) { c.Playback.MaxSessions = 0 }, "playback.maxSessions"},
		{"tracing exporter", func(c *AppConfig) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "zipkin"
		}, "tracing.exporter"},
		{"tracing disabled ignores exporter", func(c *AppConfig) { c.Tracing.Exporter = "zipkin" }, ""},
		{"sample rate", func(c *AppConfig) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRate = 2
		}, "tracing.sampleRate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
