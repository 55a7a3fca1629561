// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultListenAddr         = ":8080"
	DefaultLogLevel           = "info"
	DefaultLogService         = "xemtv"
	DefaultDataDir            = "/tmp/xemtv"
	DefaultFetchTimeout       = 10 * time.Second
	DefaultRefreshInterval    = 30 * time.Minute
	DefaultGroup              = "Khác"
	DefaultImageProxy         = "https://images.weserv.nl/?url="
	DefaultRetryDelay         = 1500 * time.Millisecond
	DefaultMaxSessions        = 64
	DefaultHealthInterval     = 30 * time.Second
	DefaultRefreshMinInterval = 30 * time.Second
	DefaultRateLimit          = 600
	DefaultTracingExporter    = "grpc"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRate  = 1.0
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string

	// ConsumedEnvKeys records every environment key the loader read.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the configuration file path, if any.
func (l *Loader) Path() string { return l.configPath }

// Load resolves and validates the configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr: DefaultListenAddr,
		LogLevel:   DefaultLogLevel,
		LogService: DefaultLogService,
		DataDir:    DefaultDataDir,
		Playlist: PlaylistConfig{
			FetchTimeout:    DefaultFetchTimeout,
			RefreshInterval: DefaultRefreshInterval,
			DefaultGroup:    DefaultGroup,
			ImageProxy:      DefaultImageProxy,
		},
		Playback: PlaybackConfig{
			RetryDelay:     DefaultRetryDelay,
			MaxSessions:    DefaultMaxSessions,
			DASHSupported:  true,
			HealthInterval: DefaultHealthInterval,
		},
		API: APIConfig{
			RefreshMinInterval: DefaultRefreshMinInterval,
			RateLimit:          DefaultRateLimit,
		},
		Tracing: TracingConfig{
			Exporter:   DefaultTracingExporter,
			Endpoint:   DefaultTracingEndpoint,
			SampleRate: DefaultTracingSampleRate,
		},
	}
}

// loadFile parses a YAML file strictly: unknown fields are errors.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.ListenAddr, f.ListenAddr)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogService, f.LogService)
	setString(&cfg.DataDir, f.DataDir)

	var errs []error
	if p := f.Playlist; p != nil {
		if p.URLs != nil {
			cfg.Playlist.URLs = cleanList(p.URLs)
		}
		errs = append(errs,
			setDuration(&cfg.Playlist.FetchTimeout, p.FetchTimeout, "playlist.fetchTimeout"),
			setDuration(&cfg.Playlist.RefreshInterval, p.RefreshInterval, "playlist.refreshInterval"),
		)
		setString(&cfg.Playlist.FilterFeed, p.FilterFeed)
		setString(&cfg.Playlist.FilterGroup, p.FilterGroup)
		setString(&cfg.Playlist.DefaultGroup, p.DefaultGroup)
		setString(&cfg.Playlist.ImageProxy, p.ImageProxy)
	}
	if p := f.Playback; p != nil {
		errs = append(errs,
			setDuration(&cfg.Playback.RetryDelay, p.RetryDelay, "playback.retryDelay"),
			setDuration(&cfg.Playback.HealthInterval, p.HealthInterval, "playback.healthInterval"),
		)
		setValue(&cfg.Playback.MaxSessions, p.MaxSessions)
		setValue(&cfg.Playback.DASHSupported, p.DASHSupported)
	}
	if p := f.Prefs; p != nil {
		setString(&cfg.Prefs.RedisAddr, p.RedisAddr)
		setString(&cfg.Prefs.RedisPassword, p.RedisPassword)
		setValue(&cfg.Prefs.RedisDB, p.RedisDB)
	}
	if a := f.API; a != nil {
		errs = append(errs, setDuration(&cfg.API.RefreshMinInterval, a.RefreshMinInterval, "api.refreshMinInterval"))
		setValue(&cfg.API.RateLimit, a.RateLimit)
	}
	if t := f.Tracing; t != nil {
		setValue(&cfg.Tracing.Enabled, t.Enabled)
		setString(&cfg.Tracing.Exporter, t.Exporter)
		setString(&cfg.Tracing.Endpoint, t.Endpoint)
		setValue(&cfg.Tracing.SampleRate, t.SampleRate)
	}
	return errors.Join(errs...)
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.ListenAddr = l.envString("XEMTV_LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = l.envString("XEMTV_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("XEMTV_LOG_SERVICE", cfg.LogService)
	cfg.DataDir = l.envString("XEMTV_DATA", cfg.DataDir)

	cfg.Playlist.URLs = l.envList("XEMTV_PLAYLIST_URLS", cfg.Playlist.URLs)
	cfg.Playlist.FetchTimeout = l.envDuration("XEMTV_FETCH_TIMEOUT", cfg.Playlist.FetchTimeout)
	cfg.Playlist.RefreshInterval = l.envDuration("XEMTV_REFRESH_INTERVAL", cfg.Playlist.RefreshInterval)
	cfg.Playlist.FilterFeed = l.envString("XEMTV_FILTER_FEED", cfg.Playlist.FilterFeed)
	cfg.Playlist.FilterGroup = l.envString("XEMTV_FILTER_GROUP", cfg.Playlist.FilterGroup)
	cfg.Playlist.DefaultGroup = l.envString("XEMTV_DEFAULT_GROUP", cfg.Playlist.DefaultGroup)
	cfg.Playlist.ImageProxy = l.envString("XEMTV_IMAGE_PROXY", cfg.Playlist.ImageProxy)

	cfg.Playback.RetryDelay = l.envDuration("XEMTV_RETRY_DELAY", cfg.Playback.RetryDelay)
	cfg.Playback.MaxSessions = l.envInt("XEMTV_MAX_SESSIONS", cfg.Playback.MaxSessions)
	cfg.Playback.DASHSupported = l.envBool("XEMTV_DASH_SUPPORTED", cfg.Playback.DASHSupported)
	cfg.Playback.HealthInterval = l.envDuration("XEMTV_HEALTH_INTERVAL", cfg.Playback.HealthInterval)

	cfg.Prefs.RedisAddr = l.envString("XEMTV_REDIS_ADDR", cfg.Prefs.RedisAddr)
	cfg.Prefs.RedisPassword = l.envString("XEMTV_REDIS_PASSWORD", cfg.Prefs.RedisPassword)
	cfg.Prefs.RedisDB = l.envInt("XEMTV_REDIS_DB", cfg.Prefs.RedisDB)

	cfg.API.RefreshMinInterval = l.envDuration("XEMTV_REFRESH_MIN_INTERVAL", cfg.API.RefreshMinInterval)
	cfg.API.RateLimit = l.envInt("XEMTV_RATE_LIMIT", cfg.API.RateLimit)

	cfg.Tracing.Enabled = l.envBool("XEMTV_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString("XEMTV_TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString("XEMTV_TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRate = l.envFloat("XEMTV_TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string, field string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*src))
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
