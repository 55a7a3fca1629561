// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/log"
	"github.com/ManuGH/xemtv/internal/playback"
)

type sessionResponse struct {
	Status        playback.Status         `json:"status"`
	Notifications []playback.Notification `json:"notifications"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.sessions.Create()
	if err != nil {
		if !errors.Is(err, playback.ErrTooManySessions) {
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Warn().Err(err).
				Str(log.FieldEvent, "playback.session_rejected").
				Msg("session not created")
		}
		writeServiceUnavailable(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+ctrl.ID())
	writeJSON(w, http.StatusCreated, sessionResponse{
		Status:        ctrl.Status(),
		Notifications: []playback.Notification{},
	})
}

// handleSessionStatus returns the status and drains pending notifications.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	notes := ctrl.Notifications()
	if notes == nil {
		notes = []playback.Notification{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{Status: ctrl.Status(), Notifications: notes})
}

// handleSessionSelect starts playback of ?channel= and returns before the
// attempt sequence settles.
func (s *Server) handleSessionSelect(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := s.catalog.Resolve(r.URL.Query().Get("channel"))
	if err != nil {
		writeNotFound(w, err)
		return
	}
	switch err := ctrl.Select(res.Channel); {
	case errors.Is(err, channel.ErrNoPlayableSources):
		writeUnprocessable(w, err)
		return
	case errors.Is(err, playback.ErrClosed):
		writeNotFound(w, playback.ErrSessionNotFound)
		return
	case err != nil:
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  ctrl.Status(),
		"matched": res.Matched,
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.Close(chi.URLParam(r, "sid"))
	if errors.Is(err, playback.ErrSessionNotFound) {
		writeNotFound(w, err)
		return
	}
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).
			Str(log.FieldEvent, "playback.close_failed").
			Msg("session close reported an error")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*playback.Controller, bool) {
	ctrl, err := s.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeNotFound(w, err)
		return nil, false
	}
	return ctrl, true
}
