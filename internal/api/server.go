// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api serves the channel catalog and playback sessions over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/xemtv/internal/api/middleware"
	"github.com/ManuGH/xemtv/internal/catalog"
	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/health"
	"github.com/ManuGH/xemtv/internal/playback"
	"github.com/ManuGH/xemtv/internal/prefs"
)

// Catalog is the read and refresh surface of the channel catalog.
type Catalog interface {
	Snapshot() *catalog.Snapshot
	Lookup(id int) (channel.Channel, error)
	Resolve(selector string) (catalog.Resolution, error)
	RequestRefresh(ctx context.Context) (*catalog.Snapshot, error)
}

// Deps are the collaborators of a Server. Prefs and Health are optional.
type Deps struct {
	Catalog  Catalog
	Sessions *playback.Registry
	Prefs    prefs.Store
	Health   *health.Manager
	Stack    middleware.StackConfig
}

// Server represents the HTTP API server.
type Server struct {
	catalog  Catalog
	sessions *playback.Registry
	prefs    prefs.Store
	health   *health.Manager
	stack    middleware.StackConfig
}

// New returns a server over deps.
func New(deps Deps) *Server {
	return &Server{
		catalog:  deps.Catalog,
		sessions: deps.Sessions,
		prefs:    deps.Prefs,
		health:   deps.Health,
		stack:    deps.Stack,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(s.stack)

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/playlist.m3u", s.handlePlaylist)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/groups", s.handleGroups)
		r.Get("/channels/{id}", s.handleChannel)
		r.Get("/selection", s.handleSelection)
		r.With(middleware.RefreshRateLimit()).Post("/refresh", s.handleRefresh)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/{sid}", s.handleSessionStatus)
			r.Post("/{sid}/select", s.handleSessionSelect)
			r.Delete("/{sid}", s.handleCloseSession)
		})
	})
	return r
}
