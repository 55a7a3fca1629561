// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/xemtv/internal/catalog"
	"github.com/ManuGH/xemtv/internal/config"
	"github.com/ManuGH/xemtv/internal/log"
	"github.com/ManuGH/xemtv/internal/playlist"
)

// App owns the long-lived runtime lifecycle (catalog refresh loop, config
// watcher, reload wiring) and delegates server management to Manager.
type App struct {
	logger          zerolog.Logger
	manager         Manager
	cfgHolder       *config.Holder
	catalog         *catalog.Catalog
	refreshInterval time.Duration
	reloadSignal    os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder and cat may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, cat *catalog.Catalog, refreshInterval time.Duration) *App {
	return &App{
		logger:          logger,
		manager:         manager,
		cfgHolder:       cfgHolder,
		catalog:         cat,
		refreshInterval: refreshInterval,
		reloadSignal:    syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// The watcher is best-effort; SIGHUP still reloads without it.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.cfgHolder.Stop()

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyConfig(ctx, cfg)
				}
			}
		})
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(log.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	if a.catalog != nil {
		g.Go(func() error {
			return a.catalog.Run(ctx, a.refreshInterval)
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// applyConfig pushes a reloaded configuration into the running catalog and
// logger. Listen address, prefs and playback settings need a restart.
func (a *App) applyConfig(ctx context.Context, cfg config.AppConfig) {
	log.Configure(log.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})
	if a.catalog == nil {
		return
	}
	a.catalog.SetSources(cfg.Playlist.URLs)
	a.catalog.SetParser(NewParser(cfg))
	if _, err := a.catalog.Refresh(ctx, catalog.TriggerReload); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldEvent, "catalog.reload_refresh_failed").Msg("refresh after reload did not complete")
	}
}

// NewParser builds the playlist parser for cfg.
func NewParser(cfg config.AppConfig) *playlist.Parser {
	return playlist.NewParser(playlist.Options{
		DefaultGroup: cfg.Playlist.DefaultGroup,
		ImageProxy:   cfg.Playlist.ImageProxy,
		FilterFeed:   cfg.Playlist.FilterFeed,
		FilterGroup:  cfg.Playlist.FilterGroup,
	})
}
