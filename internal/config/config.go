// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads the daemon configuration from defaults, an optional
// YAML file and XEMTV_* environment variables, and hot-reloads the file.
package config

import (
	"time"

	"github.com/ManuGH/xemtv/internal/prefs"
	"github.com/ManuGH/xemtv/internal/telemetry"
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version    string
	ListenAddr string
	LogLevel   string
	LogService string
	DataDir    string

	Playlist PlaylistConfig
	Playback PlaybackConfig
	Prefs    PrefsConfig
	API      APIConfig
	Tracing  TracingConfig
}

// PlaylistConfig controls catalog fetching and parsing.
type PlaylistConfig struct {
	URLs            []string
	FetchTimeout    time.Duration
	RefreshInterval time.Duration // 0 disables periodic refresh
	FilterFeed      string
	FilterGroup     string
	DefaultGroup    string
	ImageProxy      string
}

// PlaybackConfig controls playback sessions.
type PlaybackConfig struct {
	RetryDelay     time.Duration
	MaxSessions    int
	DASHSupported  bool
	HealthInterval time.Duration
}

// PrefsConfig selects the preference store. An empty RedisAddr keeps
// preferences in a local file only.
type PrefsConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// APIConfig controls the HTTP API.
type APIConfig struct {
	RefreshMinInterval time.Duration
	RateLimit          int // requests per minute per client IP
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled    bool
	Exporter   string
	Endpoint   string
	SampleRate float64
}

// PrefsFile is the local preference file inside DataDir.
const PrefsFile = "prefs.json"

// RedisConfig returns the Redis connection settings.
func (c PrefsConfig) RedisConfig() prefs.RedisConfig {
	return prefs.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// Telemetry converts the tracing section for telemetry.NewProvider.
func (c AppConfig) Telemetry() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Tracing.Enabled,
		ServiceName:    c.LogService,
		ServiceVersion: c.Version,
		Environment:    "production",
		ExporterType:   c.Tracing.Exporter,
		Endpoint:       c.Tracing.Endpoint,
		SamplingRate:   c.Tracing.SampleRate,
	}
}

// FileConfig mirrors the YAML file. Pointer fields distinguish "unset" from
// zero values so the file only overrides what it names.
type FileConfig struct {
	ListenAddr *string `yaml:"listenAddr"`
	LogLevel   *string `yaml:"logLevel"`
	LogService *string `yaml:"logService"`
	DataDir    *string `yaml:"dataDir"`

	Playlist *PlaylistFileConfig `yaml:"playlist"`
	Playback *PlaybackFileConfig `yaml:"playback"`
	Prefs    *PrefsFileConfig    `yaml:"prefs"`
	API      *APIFileConfig      `yaml:"api"`
	Tracing  *TracingFileConfig  `yaml:"tracing"`
}

type PlaylistFileConfig struct {
	URLs            []string `yaml:"urls"`
	FetchTimeout    *string  `yaml:"fetchTimeout"`
	RefreshInterval *string  `yaml:"refreshInterval"`
	FilterFeed      *string  `yaml:"filterFeed"`
	FilterGroup     *string  `yaml:"filterGroup"`
	DefaultGroup    *string  `yaml:"defaultGroup"`
	ImageProxy      *string  `yaml:"imageProxy"`
}

type PlaybackFileConfig struct {
	RetryDelay     *string `yaml:"retryDelay"`
	MaxSessions    *int    `yaml:"maxSessions"`
	DASHSupported  *bool   `yaml:"dashSupported"`
	HealthInterval *string `yaml:"healthInterval"`
}

type PrefsFileConfig struct {
	RedisAddr     *string `yaml:"redisAddr"`
	RedisPassword *string `yaml:"redisPassword"`
	RedisDB       *int    `yaml:"redisDB"`
}

type APIFileConfig struct {
	RefreshMinInterval *string `yaml:"refreshMinInterval"`
	RateLimit          *int    `yaml:"rateLimit"`
}

type TracingFileConfig struct {
	Enabled    *bool    `yaml:"enabled"`
	Exporter   *string  `yaml:"exporter"`
	Endpoint   *string  `yaml:"endpoint"`
	SampleRate *float64 `yaml:"sampleRate"`
}

// ToFile renders c as a complete file configuration. Loading the result
// with no environment overrides yields c again, Version aside.
func (c AppConfig) ToFile() FileConfig {
	dur := func(d time.Duration) *string {
		s := d.String()
		return &s
	}
	return FileConfig{
		ListenAddr: ptr(c.ListenAddr),
		LogLevel:   ptr(c.LogLevel),
		LogService: ptr(c.LogService),
		DataDir:    ptr(c.DataDir),
		Playlist: &PlaylistFileConfig{
			URLs:            append([]string{}, c.Playlist.URLs...),
			FetchTimeout:    dur(c.Playlist.FetchTimeout),
			RefreshInterval: dur(c.Playlist.RefreshInterval),
			FilterFeed:      ptr(c.Playlist.FilterFeed),
			FilterGroup:     ptr(c.Playlist.FilterGroup),
			DefaultGroup:    ptr(c.Playlist.DefaultGroup),
			ImageProxy:      ptr(c.Playlist.ImageProxy),
		},
		Playback: &PlaybackFileConfig{
			RetryDelay:     dur(c.Playback.RetryDelay),
			MaxSessions:    ptr(c.Playback.MaxSessions),
			DASHSupported:  ptr(c.Playback.DASHSupported),
			HealthInterval: dur(c.Playback.HealthInterval),
		},
		Prefs: &PrefsFileConfig{
			RedisAddr:     ptr(c.Prefs.RedisAddr),
			RedisPassword: ptr(c.Prefs.RedisPassword),
			RedisDB:       ptr(c.Prefs.RedisDB),
		},
		API: &APIFileConfig{
			RefreshMinInterval: dur(c.API.RefreshMinInterval),
			RateLimit:          ptr(c.API.RateLimit),
		},
		Tracing: &TracingFileConfig{
			Enabled:    ptr(c.Tracing.Enabled),
			Exporter:   ptr(c.Tracing.Exporter),
			Endpoint:   ptr(c.Tracing.Endpoint),
			SampleRate: ptr(c.Tracing.SampleRate),
		},
	}
}

func ptr[T any](v T) *T { return &v }
