// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"strings"

	"github.com/ManuGH/xemtv/internal/validate"
)

var tracingExporters = []string{"grpc", "http"}

// Validate checks a resolved configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("listenAddr", cfg.ListenAddr)
	if !validate.LogLevel(strings.ToLower(cfg.LogLevel)).IsValid() {
		v.AddError("logLevel", "invalid log level (must be: trace, debug, info, warn, error)", cfg.LogLevel)
	}
	v.Directory("dataDir", cfg.DataDir, false)

	for i, u := range cfg.Playlist.URLs {
		v.PlaylistURL(fmt.Sprintf("playlist.urls[%d]", i), u)
	}
	v.PositiveDuration("playlist.fetchTimeout", cfg.Playlist.FetchTimeout)
	v.NonNegativeDuration("playlist.refreshInterval", cfg.Playlist.RefreshInterval)
	switch {
	case cfg.Playlist.FilterGroup != "" && cfg.Playlist.FilterFeed == "":
		v.AddError("playlist.filterGroup", "requires playlist.filterFeed", cfg.Playlist.FilterGroup)
	case cfg.Playlist.FilterFeed != "" && cfg.Playlist.FilterGroup == "":
		v.AddError("playlist.filterFeed", "requires playlist.filterGroup", cfg.Playlist.FilterFeed)
	}
	v.NotEmpty("playlist.defaultGroup", cfg.Playlist.DefaultGroup)
	if cfg.Playlist.ImageProxy != "" {
		v.URL("playlist.imageProxy", cfg.Playlist.ImageProxy, []string{"http", "https"})
	}

	v.NonNegativeDuration("playback.retryDelay", cfg.Playback.RetryDelay)
	v.NonNegativeDuration("playback.healthInterval", cfg.Playback.HealthInterval)
	v.Positive("playback.maxSessions", cfg.Playback.MaxSessions)

	v.Range("prefs.redisDB", cfg.Prefs.RedisDB, 0, 15)

	v.NonNegativeDuration("api.refreshMinInterval", cfg.API.RefreshMinInterval)
	v.NonNegative("api.rateLimit", cfg.API.RateLimit)

	if cfg.Tracing.Enabled {
		v.OneOf("tracing.exporter", cfg.Tracing.Exporter, tracingExporters)
		v.NotEmpty("tracing.endpoint", cfg.Tracing.Endpoint)
		v.FloatRange("tracing.sampleRate", cfg.Tracing.SampleRate, 0, 1)
	}

	return v.Err()
}
