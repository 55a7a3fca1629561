// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/xemtv/internal/catalog"
	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/log"
	"github.com/ManuGH/xemtv/internal/playlist"
	"github.com/ManuGH/xemtv/internal/prefs"
)

type groupsResponse struct {
	Groups   []channel.Group `json:"groups"`
	Channels int             `json:"channels"`
	Feeds    int             `json:"feeds"`
	BuiltAt  *time.Time      `json:"builtAt,omitempty"`
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	snap := s.catalog.Snapshot()
	resp := groupsResponse{Groups: snap.Groups, Channels: snap.ChannelCount(), Feeds: snap.Feeds}
	if !snap.BuiltAt.IsZero() {
		builtAt := snap.BuiltAt
		resp.BuiltAt = &builtAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleChannel returns one channel with its sources in play order.
func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid channel id %q", chi.URLParam(r, "id")))
		return
	}
	ch, err := s.catalog.Lookup(id)
	if err != nil {
		writeNotFound(w, err)
		return
	}
	ranked, err := channel.Rank(ch.Sources)
	if err != nil {
		writeUnprocessable(w, err)
		return
	}
	ch.Sources = ranked
	writeJSON(w, http.StatusOK, ch)
}

type selectionResponse struct {
	Channel channel.Channel `json:"channel"`
	Matched bool            `json:"matched"`
	Viewer  string          `json:"viewer,omitempty"`
}

// handleSelection resolves ?channel= for a viewer. Without the parameter the
// viewer's last stored choice is used. The resolved id is stored back.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	viewer := r.URL.Query().Get("viewer")
	key := prefs.SelectionKey(viewer)

	selector, explicit := r.URL.Query().Get("channel"), r.URL.Query().Has("channel")
	if !explicit && s.prefs != nil {
		stored, err := s.prefs.Get(r.Context(), key)
		switch {
		case err == nil:
			selector = stored
		case !errors.Is(err, prefs.ErrNotFound):
			logger.Warn().Err(err).Str(log.FieldEvent, "prefs.read_failed").Str(log.FieldViewer, viewer).Msg("stored selection unavailable")
		}
	}

	res, err := s.catalog.Resolve(selector)
	if err != nil {
		writeNotFound(w, err)
		return
	}

	if s.prefs != nil {
		if err := s.prefs.Set(r.Context(), key, strconv.Itoa(res.Channel.ID)); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "prefs.write_failed").Str(log.FieldViewer, viewer).Msg("failed to store selection")
		}
	}
	writeJSON(w, http.StatusOK, selectionResponse{Channel: res.Channel, Matched: res.Matched, Viewer: viewer})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.RequestRefresh(r.Context())
	switch {
	case errors.Is(err, catalog.ErrRefreshThrottled):
		writeErrorCode(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups":   len(snap.Groups),
		"channels": snap.ChannelCount(),
		"feeds":    snap.Feeds,
		"builtAt":  snap.BuiltAt,
	})
}

// handlePlaylist exports the merged catalog as extended M3U.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := playlist.WriteM3U(&buf, s.catalog.Snapshot().Groups); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldEvent, "playlist.export_failed").
			Msg("failed to render playlist")
		writeInternal(w)
		return
	}
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Header().Set("Content-Disposition", "inline; filename=playlist.m3u")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
