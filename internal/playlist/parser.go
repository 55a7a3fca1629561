// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playlist fetches extended M3U feeds and turns them into channel groups.
package playlist

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/drm"
	xlog "github.com/ManuGH/xemtv/internal/log"
)

const (
	headerDirective = "#EXTM3U"
	entryDirective  = "#EXTINF"
	vlcOptDirective = "#EXTVLCOPT:"
	kodiDirective   = "#KODIPROP:"
)

// DefaultGroup is used for entries without a group-title.
const DefaultGroup = "Khác"

// attrPattern matches key="value" pairs on an #EXTINF line.
var attrPattern = regexp.MustCompile(`([A-Za-z0-9_-]+)="([^"]*)"`)

// entryAttributes maps #EXTINF attribute names to the metadata field they fill.
var entryAttributes = map[string]func(*Entry, string){
	"tvg-id":      func(e *Entry, v string) { e.StableID = v },
	"tvg-logo":    func(e *Entry, v string) { e.Logo = v },
	"group-title": func(e *Entry, v string) { e.Group = v },
}

// optionKeys maps #EXTVLCOPT keys to the source header hint they set.
var optionKeys = map[string]func(*channel.Source, string){
	"http-referrer":   func(s *channel.Source, v string) { s.Referrer = v },
	"http-referer":    func(s *channel.Source, v string) { s.Referrer = v },
	"http-user-agent": func(s *channel.Source, v string) { s.UserAgent = v },
}

// Entry is the metadata of one playable #EXTINF block.
type Entry struct {
	Title    string
	Name     string
	Logo     string
	StableID string
	Group    string
	Source   channel.Source
}

// Options configures a Parser.
type Options struct {
	// DefaultGroup names the group for entries without group-title.
	DefaultGroup string
	// ImageProxy is prefixed to logo URLs; empty disables rewriting.
	ImageProxy string
	// FilterFeed selects, by URL substring, the one feed that is filtered.
	FilterFeed string
	// FilterGroup is the group-title kept from the filtered feed.
	FilterGroup string
}

// Parser turns playlist text into channel groups. It is stateless and safe
// for concurrent use.
type Parser struct {
	opts   Options
	logger zerolog.Logger
}

// NewParser returns a parser using opts.
func NewParser(opts Options) *Parser {
	if opts.DefaultGroup == "" {
		opts.DefaultGroup = DefaultGroup
	}
	return &Parser{opts: opts, logger: xlog.WithComponent("playlist")}
}

// Parse builds groups from a single playlist text. No feed filter applies.
func (p *Parser) Parse(text string) []channel.Group {
	return p.build(p.Entries(SplitLines(text)))
}

// ParseDocuments filters the designated feed, concatenates every document in
// order and builds the merged groups. Channel ids start at 1 on every call.
func (p *Parser) ParseDocuments(docs []Document) []channel.Group {
	var lines []string
	for _, doc := range docs {
		docLines := SplitLines(doc.Text)
		if p.opts.FilterFeed != "" && p.opts.FilterGroup != "" && strings.Contains(doc.URL, p.opts.FilterFeed) {
			docLines = FilterGroup(docLines, p.opts.FilterGroup)
		}
		lines = append(lines, docLines...)
	}
	return p.build(p.Entries(lines))
}

func (p *Parser) build(entries []Entry) []channel.Group {
	b := NewBuilder()
	for _, e := range entries {
		b.Add(e)
	}
	return b.Groups()
}

// SplitLines splits text into trimmed lines, tolerating CRLF input and a
// leading byte order mark.
func SplitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	raw := strings.Split(text, "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimSpace(l)
	}
	return out
}

// Entries extracts every playable entry in line order. Entries without a
// stream URL are dropped.
func (p *Parser) Entries(lines []string) []Entry {
	var entries []Entry
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], entryDirective) {
			continue
		}
		entry, next, ok := p.parseEntry(lines, i)
		if ok {
			entries = append(entries, entry)
		} else {
			p.logger.Debug().
				Str(xlog.FieldEvent, "playlist.entry_skipped").
				Str(xlog.FieldChannelName, entry.Title).
				Msg("entry has no stream URL")
		}
		i = next
	}
	return entries
}

// parseEntry reads the block starting at lines[start]. next is the index of
// the last line consumed.
func (p *Parser) parseEntry(lines []string, start int) (e Entry, next int, ok bool) {
	p.parseInfo(&e, lines[start])

	for j := start + 1; j < len(lines); j++ {
		line := lines[j]
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, entryDirective):
			return e, j - 1, false
		case strings.HasPrefix(line, vlcOptDirective):
			applyOption(&e.Source, strings.TrimPrefix(line, vlcOptDirective))
		case strings.HasPrefix(line, kodiDirective):
			p.applyKodiProp(&e, strings.TrimPrefix(line, kodiDirective))
		case strings.HasPrefix(line, "#"):
			continue
		default:
			p.finish(&e, line)
			return e, j, true
		}
	}
	return e, len(lines), false
}

func (p *Parser) parseInfo(e *Entry, line string) {
	for _, m := range attrPattern.FindAllStringSubmatch(line, -1) {
		if set, ok := entryAttributes[strings.ToLower(m[1])]; ok {
			set(e, strings.TrimSpace(m[2]))
		}
	}
	if idx := strings.LastIndex(line, ","); idx != -1 {
		e.Title = strings.TrimSpace(line[idx+1:])
	}
	if e.Group == "" {
		e.Group = p.opts.DefaultGroup
	}
}

func applyOption(s *channel.Source, opt string) {
	key, value, ok := strings.Cut(opt, "=")
	if !ok {
		return
	}
	if set, ok := optionKeys[strings.ToLower(strings.TrimSpace(key))]; ok {
		set(s, strings.TrimSpace(value))
	}
}

func (p *Parser) applyKodiProp(e *Entry, prop string) {
	key, value, ok := strings.Cut(prop, "=")
	if !ok {
		return
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	switch {
	case strings.HasSuffix(key, "license_type"):
		e.Source.LicenseType = strings.ToLower(value)
	case strings.HasSuffix(key, "license_key"):
		raw := unquote(value)
		e.Source.LicenseKey = raw
		keys, err := ParseLicenseKey(raw)
		if err != nil {
			p.logger.Debug().Err(err).
				Str(xlog.FieldEvent, "playlist.license_key_invalid").
				Str(xlog.FieldChannelName, e.Title).
				Msg("ignoring malformed license key document")
		}
		e.Source.Keys = append(e.Source.Keys, keys...)
	}
}

func (p *Parser) finish(e *Entry, streamURL string) {
	e.Name, e.Source.Label = channel.SplitQuality(e.Title)
	e.Source.URL = streamURL
	e.Source.Type = channel.StreamTypeFor(streamURL)
	e.Logo = ProxyLogo(p.opts.ImageProxy, e.Logo)
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

type licenseKeyDocument struct {
	Keys []struct {
		KID string `json:"kid"`
		K   string `json:"k"`
	} `json:"keys"`
}

// ParseLicenseKey extracts key pairs from a license_key value. It accepts a
// comma separated list of hex "kid:key" pairs or a JSON clear-key document
// with base64url material. Anything else, a license URL included, yields no
// pairs. A malformed JSON document yields no pairs and an error.
func ParseLicenseKey(raw string) ([]drm.KeyPair, error) {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(raw, ":") && !strings.HasPrefix(lower, "http") && !strings.HasPrefix(raw, "{"):
		var pairs []drm.KeyPair
		for _, part := range strings.Split(raw, ",") {
			kid, key, ok := strings.Cut(part, ":")
			if !ok {
				continue
			}
			p := drm.KeyPair{KID: strings.TrimSpace(kid), Key: strings.TrimSpace(key)}
			if p.Valid() {
				pairs = append(pairs, p)
			}
		}
		return pairs, nil
	case strings.HasPrefix(raw, "{"):
		var doc licenseKeyDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, err
		}
		var pairs []drm.KeyPair
		for _, k := range doc.Keys {
			p := drm.KeyPair{KID: k.KID, Key: k.K, IsBase64: true}
			if p.Valid() {
				pairs = append(pairs, p)
			}
		}
		return pairs, nil
	default:
		return nil, nil
	}
}

// ProxyLogo rewrites a logo URL through the image proxy prefix. Logos that
// already point at the proxy are returned unchanged.
func ProxyLogo(proxy, logo string) string {
	if logo == "" || proxy == "" || strings.HasPrefix(logo, proxy) {
		return logo
	}
	return proxy + url.QueryEscape(logo)
}
