// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playbackAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xemtv_playback_attempts_total",
		Help: "Playback attempts by stream type, DRM mode and result",
	}, []string{"type", "drm_mode", "result"})

	playbackFailoverTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xemtv_playback_failover_total",
		Help: "Playback fail-overs by kind (drm_mode, next_source) and reason",
	}, []string{"kind", "reason"})

	playbackOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xemtv_playback_outcome_total",
		Help: "Channel selection outcomes (first_source, recovered, exhausted, no_sources)",
	}, []string{"outcome"})

	playbackSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xemtv_playback_sessions_active",
		Help: "Open playback sessions",
	})
)

// IncPlaybackAttempt records one (source, DRM mode) attempt.
func IncPlaybackAttempt(streamType, mode string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	playbackAttemptsTotal.WithLabelValues(streamType, mode, result).Inc()
}

// IncPlaybackFailover records a transition to another DRM mode or source.
func IncPlaybackFailover(kind, reason string) {
	playbackFailoverTotal.WithLabelValues(kind, reason).Inc()
}

// IncPlaybackOutcome records how a channel selection ended.
func IncPlaybackOutcome(outcome string) {
	playbackOutcomeTotal.WithLabelValues(outcome).Inc()
}

// SetActiveSessions records the number of open playback sessions.
func SetActiveSessions(n int) {
	playbackSessionsActive.Set(float64(n))
}
