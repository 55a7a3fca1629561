// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/drm"
)

func TestAdvance(t *testing.T) {
	sources := []channel.Source{
		clearKeySource("http://a/1.mpd", "HD"),
		plainSource("http://a/2.m3u8", "SD"),
	}

	tests := []struct {
		name   string
		from   Attempt
		kind   FailureKind
		want   Attempt
		wantOK bool
	}{
		{"hex to server", Attempt{0, drm.ModeHex}, FailureLoad, Attempt{0, drm.ModeServer}, true},
		{"server to none", Attempt{0, drm.ModeServer}, FailureDRMConfig, Attempt{0, drm.ModeNone}, true},
		{"none moves to next source at hex", Attempt{0, drm.ModeNone}, FailureRuntime, Attempt{1, drm.ModeHex}, true},
		{"unsupported skips remaining modes", Attempt{0, drm.ModeHex}, FailureUnsupported, Attempt{1, drm.ModeHex}, true},
		{"plain source has no mode chain", Attempt{1, drm.ModeHex}, FailureLoad, Attempt{}, false},
		{"out of range", Attempt{5, drm.ModeHex}, FailureLoad, Attempt{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Advance(tt.from, sources, tt.kind)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvance_TerminatesWithinBound(t *testing.T) {
	sources := []channel.Source{
		clearKeySource("http://a/1.mpd", "HD"),
		clearKeySource("http://a/2.mpd", "SD"),
		clearKeySource("http://a/3.mpd", ""),
	}
	a, steps := FirstAttempt(), 1
	for {
		next, ok := Advance(a, sources, FailureLoad)
		if !ok {
			break
		}
		assert.Greater(t, next.Source*len(drm.Modes)+modeIndex(next.Mode), a.Source*len(drm.Modes)+modeIndex(a.Mode))
		a = next
		steps++
		require.LessOrEqual(t, steps, MaxAttempts(len(sources)))
	}
	assert.Equal(t, MaxAttempts(len(sources)), steps)
}

func modeIndex(m drm.Mode) int {
	for i, mode := range drm.Modes {
		if mode == m {
			return i
		}
	}
	return -1
}

func TestConfigFor(t *testing.T) {
	cfg, err := configFor(plainSource("http://a/1.m3u8", ""), drm.ModeHex)
	require.NoError(t, err)
	assert.Equal(t, drm.Config{Mode: drm.ModeNone}, cfg)

	cfg, err = configFor(clearKeySource("http://a/1.mpd", ""), drm.ModeHex)
	require.NoError(t, err)
	assert.Equal(t, drm.ModeHex, cfg.Mode)
	assert.Len(t, cfg.ClearKeys, 1)

	_, err = configFor(channel.Source{URL: "http://a/1.mpd", LicenseType: channel.LicenseClearKey}, drm.ModeHex)
	assert.ErrorIs(t, err, drm.ErrNoKeyMaterial)
}

func TestTransitionFor(t *testing.T) {
	tests := []struct {
		from State
		ev   Event
		to   State
		ok   bool
	}{
		{StateIdle, EvSelect, StateLoading, true},
		{StatePlaying, EvSelect, StateLoading, true},
		{StateLoading, EvLoaded, StatePlaying, true},
		{StateLoading, EvRetry, StateLoading, true},
		{StateLoading, EvExhausted, StateError, true},
		{StatePlaying, EvRuntimeError, StateLoading, true},
		{StateError, EvClose, StateIdle, true},
		{StateIdle, EvRejected, StateError, true},
		{StateIdle, EvLoaded, "", false},
		{StatePlaying, EvRetry, "", false},
		{StateError, EvRuntimeError, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			tr, ok := TransitionFor(tt.from, tt.ev)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.to, tr.To)
			}
		})
	}
}

func TestTransitionsTable_NoDuplicateEdges(t *testing.T) {
	seen := make(map[string]bool)
	for _, tr := range transitionsTable {
		key := string(tr.From) + "/" + string(tr.Event)
		assert.False(t, seen[key], "duplicate transition %s", key)
		seen[key] = true
	}
}
