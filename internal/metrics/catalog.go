// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playlistFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xemtv_playlist_fetch_duration_seconds",
		Help:    "Time taken to fetch one playlist document",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"result"})

	playlistFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xemtv_playlist_fetch_total",
		Help: "Playlist fetches by result (ok, error, skipped)",
	}, []string{"result"})

	catalogChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xemtv_catalog_channels",
		Help: "Channels in the current catalog snapshot",
	})

	catalogGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xemtv_catalog_groups",
		Help: "Groups in the current catalog snapshot",
	})

	catalogRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xemtv_catalog_refresh_total",
		Help: "Catalog refreshes by trigger and result",
	}, []string{"trigger", "result"})

	feedBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xemtv_feed_breaker_state",
		Help: "Feed circuit breaker state (1 for the active state, 0 otherwise)",
	}, []string{"feed", "state"})

	feedBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xemtv_feed_breaker_trips_total",
		Help: "Feed circuit breaker transitions to open",
	}, []string{"feed", "reason"})
)

// ObservePlaylistFetch records the outcome and latency of a single playlist fetch.
func ObservePlaylistFetch(result string, d time.Duration) {
	playlistFetchTotal.WithLabelValues(result).Inc()
	if result != "skipped" {
		playlistFetchDuration.WithLabelValues(result).Observe(d.Seconds())
	}
}

// SetCatalogSize records the size of the catalog snapshot just published.
func SetCatalogSize(groups, channels int) {
	catalogGroups.Set(float64(groups))
	catalogChannels.Set(float64(channels))
}

// IncCatalogRefresh counts a refresh by trigger ("startup", "interval", "manual", "reload").
func IncCatalogRefresh(trigger string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	catalogRefreshTotal.WithLabelValues(trigger, result).Inc()
}

var breakerStates = []string{"closed", "half-open", "open"}

// SetFeedBreakerState records the active breaker state for a feed.
func SetFeedBreakerState(feed, state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		feedBreakerState.WithLabelValues(feed, s).Set(value)
	}
}

// RecordFeedBreakerTrip increments the trip counter when a feed breaker opens.
func RecordFeedBreakerTrip(feed, reason string) {
	feedBreakerTrips.WithLabelValues(feed, reason).Inc()
}
