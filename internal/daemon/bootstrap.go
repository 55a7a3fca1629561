// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon wires the components into a running service and owns its
// lifecycle.
package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ManuGH/xemtv/internal/api"
	"github.com/ManuGH/xemtv/internal/api/middleware"
	"github.com/ManuGH/xemtv/internal/catalog"
	"github.com/ManuGH/xemtv/internal/config"
	"github.com/ManuGH/xemtv/internal/engine"
	"github.com/ManuGH/xemtv/internal/health"
	"github.com/ManuGH/xemtv/internal/log"
	"github.com/ManuGH/xemtv/internal/platform/httpx"
	"github.com/ManuGH/xemtv/internal/playback"
	"github.com/ManuGH/xemtv/internal/playlist"
	"github.com/ManuGH/xemtv/internal/prefs"
	"github.com/ManuGH/xemtv/internal/resilience"
	"github.com/ManuGH/xemtv/internal/telemetry"
	"github.com/ManuGH/xemtv/internal/version"
)

const (
	feedBreakerThreshold = 3
	feedBreakerReset     = 5 * time.Minute
)

// Bootstrap builds every component for cfg and returns the App that runs
// them. Resources acquired here are released by the manager's shutdown hooks.
func Bootstrap(ctx context.Context, cfg config.AppConfig, holder *config.Holder) (*App, error) {
	logger := log.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, cfg.Telemetry())
	if err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "telemetry.init_failed").
			Msg("telemetry initialization failed, continuing without tracing")
		tp = nil
	}

	store, err := openPrefs(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var clientOpts []httpx.Option
	if cfg.Tracing.Enabled {
		clientOpts = append(clientOpts, httpx.WithTracing())
	}
	client := httpx.NewClient(cfg.Playlist.FetchTimeout, clientOpts...)

	fetcher := playlist.NewFetcher(client,
		playlist.WithTimeout(cfg.Playlist.FetchTimeout),
		playlist.WithBreakers(resilience.NewSet(feedBreakerThreshold, feedBreakerReset)),
		playlist.WithUserAgent(version.UserAgent()),
	)
	cat := catalog.New(fetcher, NewParser(cfg), catalog.WithMinRefreshInterval(cfg.API.RefreshMinInterval))
	cat.SetSources(cfg.Playlist.URLs)

	runtime := engine.NewHTTPRuntime(client,
		engine.WithDASH(cfg.Playback.DASHSupported),
		engine.WithHealthInterval(cfg.Playback.HealthInterval),
	)
	sessions := playback.NewRegistry(cfg.Playback.MaxSessions, func(id string) *playback.Controller {
		return playback.NewController(id, runtime, engine.NewSurface(id),
			playback.WithRetryDelay(cfg.Playback.RetryDelay))
	})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewCatalogChecker(cat, 3*cfg.Playlist.RefreshInterval))
	hm.RegisterChecker(health.NewPrefsChecker(store))

	stack := middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		RateLimit:             cfg.API.RateLimit,
	}
	if cfg.Tracing.Enabled {
		stack.TracingService = cfg.LogService
	}
	srv := api.New(api.Deps{
		Catalog:  cat,
		Sessions: sessions,
		Prefs:    store,
		Health:   hm,
		Stack:    stack,
	})

	mgr, err := NewManager(DefaultServerConfig(cfg.ListenAddr), Deps{Logger: logger, APIHandler: srv.Handler()})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if tp != nil {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}
	mgr.RegisterShutdownHook("prefs", func(context.Context) error { return store.Close() })
	mgr.RegisterShutdownHook("playback", func(context.Context) error {
		sessions.CloseAll()
		return nil
	})

	logger.Info().
		Str(log.FieldEvent, "daemon.bootstrapped").
		Int("feeds", len(cfg.Playlist.URLs)).
		Int("max_sessions", cfg.Playback.MaxSessions).
		Bool("dash", cfg.Playback.DASHSupported).
		Bool("redis", cfg.Prefs.RedisAddr != "").
		Bool("tracing", cfg.Tracing.Enabled).
		Msg("components wired")

	return NewApp(logger, mgr, holder, cat, cfg.Playlist.RefreshInterval), nil
}

// openPrefs opens the local preference file and, when configured, puts
// Redis in front of it. An unreachable Redis at startup is not fatal.
func openPrefs(ctx context.Context, cfg config.AppConfig) (prefs.Store, error) {
	file, err := prefs.OpenFileStore(filepath.Join(cfg.DataDir, config.PrefsFile))
	if err != nil {
		return nil, fmt.Errorf("open preference file: %w", err)
	}
	if cfg.Prefs.RedisAddr == "" {
		return file, nil
	}
	remote, err := prefs.NewRedisStore(ctx, cfg.Prefs.RedisConfig())
	if err != nil {
		logger := log.WithComponent("prefs")
		logger.Warn().Err(err).
			Str(log.FieldEvent, "prefs.redis_unavailable").
			Msg("redis unavailable, using local preference file only")
		return file, nil
	}
	return prefs.NewFallbackStore(remote, file), nil
}
