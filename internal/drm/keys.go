// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package drm translates clear-key material between the encodings the playback
// engine's decryption modes expect and builds the per-mode engine configuration.
package drm

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOddLengthHex  = errors.New("hex input has odd length")
	ErrInvalidKey    = errors.New("invalid key material")
	ErrNoKeyMaterial = errors.New("no key material for DRM mode")
)

// NormalizeHex lowercases s and drops every character that is not a hex digit,
// so UUID-style key ids ("0123-abcd-...") collapse to plain hex.
func NormalizeHex(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HexToBase64URL converts hex key material to unpadded base64url.
// Odd-length input yields the empty string.
func HexToBase64URL(h string) string {
	h = NormalizeHex(h)
	if len(h)%2 != 0 {
		return ""
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}
	s := base64.StdEncoding.EncodeToString(raw)
	s = strings.ReplaceAll(s, "+", "-")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.TrimRight(s, "=")
}

// Base64URLToHex converts base64url (padded or not, standard alphabet tolerated)
// to lowercase hex.
func Base64URLToHex(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	s = strings.TrimRight(s, "=")
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return hex.EncodeToString(raw), nil
}

// KeyPair is one clear-key (key id, key) pair as found in a playlist. Hex pairs
// come from "kid:key" license strings, base64 pairs from JSON license documents.
type KeyPair struct {
	KID      string `json:"kid"`
	Key      string `json:"key"`
	IsBase64 bool   `json:"isBase64,omitempty"`
}

// Valid reports whether both halves are present.
func (p KeyPair) Valid() bool {
	return strings.TrimSpace(p.KID) != "" && strings.TrimSpace(p.Key) != ""
}

// HexPair returns the pair as even-length lowercase hex, translating base64 pairs.
func (p KeyPair) HexPair() (kid, key string, err error) {
	if !p.Valid() {
		return "", "", ErrInvalidKey
	}
	if p.IsBase64 {
		if kid, err = Base64URLToHex(p.KID); err != nil {
			return "", "", fmt.Errorf("kid: %w", err)
		}
		if key, err = Base64URLToHex(p.Key); err != nil {
			return "", "", fmt.Errorf("key: %w", err)
		}
		return kid, key, nil
	}
	kid, key = padHex(NormalizeHex(p.KID)), padHex(NormalizeHex(p.Key))
	if kid == "" || key == "" {
		return "", "", ErrInvalidKey
	}
	return kid, key, nil
}

// Base64URLPair returns the pair as unpadded base64url, translating hex pairs.
// Base64 pairs are re-encoded so padded or standard-alphabet input comes out canonical.
func (p KeyPair) Base64URLPair() (kid, key string, err error) {
	hk, hv, err := p.HexPair()
	if err != nil {
		return "", "", err
	}
	kid, key = HexToBase64URL(hk), HexToBase64URL(hv)
	if kid == "" || key == "" {
		return "", "", ErrOddLengthHex
	}
	return kid, key, nil
}

// padHex left-pads odd-length hex with a zero nibble.
func padHex(h string) string {
	if len(h)%2 != 0 {
		return "0" + h
	}
	return h
}
