// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package drm

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Mode is one of the decryption configuration modes the engine is tried with.
type Mode string

const (
	// ModeHex injects the key map directly (hex key id -> hex key).
	ModeHex Mode = "hex"
	// ModeServer points the engine at a license server; for inline keys this is
	// a data URI carrying a clear-key license document.
	ModeServer Mode = "server"
	// ModeNone drops DRM configuration entirely.
	ModeNone Mode = "none"
)

// Modes lists the retry order for a source carrying clear-key material.
var Modes = []Mode{ModeHex, ModeServer, ModeNone}

// Next returns the mode tried after m, or false when m is the last one.
func (m Mode) Next() (Mode, bool) {
	switch m {
	case ModeHex:
		return ModeServer, true
	case ModeServer:
		return ModeNone, true
	default:
		return ModeNone, false
	}
}

func (m Mode) String() string { return string(m) }

// Config is the decryption configuration handed to the media engine.
type Config struct {
	Mode          Mode              `json:"mode"`
	ClearKeys     map[string]string `json:"clearKeys,omitempty"`
	LicenseServer string            `json:"licenseServer,omitempty"`
}

// Enabled reports whether the engine should be configured for decryption at all.
func (c Config) Enabled() bool {
	return len(c.ClearKeys) > 0 || c.LicenseServer != ""
}

// LicenseKey is one JWK entry of a clear-key license document.
type LicenseKey struct {
	Kty string `json:"kty"`
	KID string `json:"kid"`
	K   string `json:"k"`
}

// LicenseDocument is the W3C clear-key license response format.
type LicenseDocument struct {
	Keys []LicenseKey `json:"keys"`
	Type string       `json:"type"`
}

const dataURIPrefix = "data:application/json;base64,"

// Build produces the engine configuration for mode. licenseURL is the opaque
// license-server URL a playlist may carry instead of inline keys; it is used
// by ModeServer when no key pairs are present.
func Build(mode Mode, pairs []KeyPair, licenseURL string) (Config, error) {
	switch mode {
	case ModeNone:
		return Config{Mode: ModeNone}, nil
	case ModeHex:
		if len(pairs) == 0 {
			return Config{}, fmt.Errorf("%s: %w", mode, ErrNoKeyMaterial)
		}
		keys := make(map[string]string, len(pairs))
		for i, p := range pairs {
			kid, key, err := p.HexPair()
			if err != nil {
				return Config{}, fmt.Errorf("key pair %d: %w", i, err)
			}
			keys[kid] = key
		}
		return Config{Mode: ModeHex, ClearKeys: keys}, nil
	case ModeServer:
		if len(pairs) == 0 {
			if licenseURL == "" {
				return Config{}, fmt.Errorf("%s: %w", mode, ErrNoKeyMaterial)
			}
			return Config{Mode: ModeServer, LicenseServer: licenseURL}, nil
		}
		doc, err := NewLicenseDocument(pairs)
		if err != nil {
			return Config{}, err
		}
		uri, err := doc.DataURI()
		if err != nil {
			return Config{}, err
		}
		return Config{Mode: ModeServer, LicenseServer: uri}, nil
	default:
		return Config{}, fmt.Errorf("unknown DRM mode %q", mode)
	}
}

// NewLicenseDocument converts key pairs into a license document with base64url material.
func NewLicenseDocument(pairs []KeyPair) (LicenseDocument, error) {
	doc := LicenseDocument{Type: "temporary", Keys: make([]LicenseKey, 0, len(pairs))}
	for i, p := range pairs {
		kid, key, err := p.Base64URLPair()
		if err != nil {
			return LicenseDocument{}, fmt.Errorf("key pair %d: %w", i, err)
		}
		doc.Keys = append(doc.Keys, LicenseKey{Kty: "oct", KID: kid, K: key})
	}
	return doc, nil
}

// DataURI embeds the document in a data: URI usable as a license-server URL.
func (d LicenseDocument) DataURI() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal license document: %w", err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// KeyIDsHex returns the document's key ids as lowercase hex.
func (d LicenseDocument) KeyIDsHex() []string {
	out := make([]string, 0, len(d.Keys))
	for _, k := range d.Keys {
		if h, err := Base64URLToHex(k.KID); err == nil && h != "" {
			out = append(out, h)
		}
	}
	return out
}

// ParseDataURI decodes a license document embedded by DataURI.
// ok is false when uri is not an inline license document.
func ParseDataURI(uri string) (doc LicenseDocument, ok bool, err error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return LicenseDocument{}, false, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, dataURIPrefix))
	if err != nil {
		return LicenseDocument{}, true, fmt.Errorf("decode license data uri: %w", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return LicenseDocument{}, true, fmt.Errorf("parse license document: %w", err)
	}
	return doc, true, nil
}
