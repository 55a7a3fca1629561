// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package channel holds the live-TV catalog model and the source ranking rules.
package channel

import (
	"strings"

	"github.com/ManuGH/xemtv/internal/core/urlutil"
	"github.com/ManuGH/xemtv/internal/drm"
)

// StreamType is the adaptive-streaming container of a source.
type StreamType string

const (
	HLS  StreamType = "hls"
	DASH StreamType = "dash"
)

// StreamTypeFor infers the container from the stream URL.
func StreamTypeFor(streamURL string) StreamType {
	if urlutil.ContainsFold(streamURL, ".mpd") {
		return DASH
	}
	return HLS
}

const (
	// LicenseClearKey is the lower-cased license_type value for clear-key DRM.
	LicenseClearKey = "clearkey"
	// DefaultQuality labels sources whose name carries no recognised quality token.
	DefaultQuality = "Default"
)

// Source is one playable rendition of a channel.
type Source struct {
	URL         string        `json:"file"`
	Type        StreamType    `json:"type"`
	Label       string        `json:"label"`
	Referrer    string        `json:"referrer,omitempty"`
	UserAgent   string        `json:"userAgent,omitempty"`
	LicenseType string        `json:"licenseType,omitempty"`
	LicenseKey  string        `json:"licenseKey,omitempty"`
	Keys        []drm.KeyPair `json:"keys,omitempty"`
}

// HasClearKey reports whether the source carries any clear-key material, which
// makes it eligible for the DRM mode retry chain.
func (s Source) HasClearKey() bool {
	return s.LicenseType == LicenseClearKey || len(s.Keys) > 0
}

// HasVerifiedKeys reports whether the source is clear-key with inline key pairs.
func (s Source) HasVerifiedKeys() bool {
	return s.LicenseType == LicenseClearKey && len(s.Keys) > 0
}

// LicenseURL returns the license key when it is an opaque license-server URL.
func (s Source) LicenseURL() string {
	if strings.HasPrefix(strings.ToLower(s.LicenseKey), "http") {
		return s.LicenseKey
	}
	return ""
}

// IsFlash reports whether the source is a Flash Video stream.
func (s Source) IsFlash() bool {
	return urlutil.ContainsFold(s.URL, ".flv")
}

func (s Source) clone() Source {
	if s.Keys != nil {
		s.Keys = append([]drm.KeyPair(nil), s.Keys...)
	}
	return s
}

// Channel is one logical channel merged from every playlist entry that refers to it.
type Channel struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Logo     string   `json:"logo,omitempty"`
	StableID string   `json:"tvgId,omitempty"`
	Group    string   `json:"group"`
	Sources  []Source `json:"sources"`
}

// Clone returns a deep copy safe to hand out of the catalog.
func (c *Channel) Clone() Channel {
	out := *c
	out.Sources = make([]Source, len(c.Sources))
	for i, s := range c.Sources {
		out.Sources[i] = s.clone()
	}
	return out
}

// Group is a category and its channels in encounter order.
type Group struct {
	Name     string     `json:"name"`
	Channels []*Channel `json:"channels"`
}
