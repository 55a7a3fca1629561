// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/xemtv/internal/channel"
)

// Builder merges entries into channels and groups. Entries that share a
// tvg-id, or lacking one share a base name, become sources of one channel.
// A Builder is not safe for concurrent use.
type Builder struct {
	groups  []*channel.Group
	byGroup map[string]*channel.Group
	byKey   map[string]*channel.Channel
	nextID  int
	fold    cases.Caser
}

// NewBuilder returns an empty builder whose first channel gets id 1.
func NewBuilder() *Builder {
	return &Builder{
		byGroup: make(map[string]*channel.Group),
		byKey:   make(map[string]*channel.Channel),
		nextID:  1,
		fold:    cases.Fold(),
	}
}

// MergeKey returns the identity used to detect duplicate entries.
func (b *Builder) MergeKey(e Entry) string {
	if id := strings.TrimSpace(e.StableID); id != "" {
		return "id:" + id
	}
	name := norm.NFC.String(strings.Join(strings.Fields(e.Name), " "))
	return "name:" + b.fold.String(name)
}

// Add folds one entry into the catalog being built.
func (b *Builder) Add(e Entry) {
	key := b.MergeKey(e)
	if ch, ok := b.byKey[key]; ok {
		ch.Sources = append(ch.Sources, e.Source)
		return
	}

	ch := &channel.Channel{
		ID:       b.nextID,
		Name:     e.Name,
		URL:      e.Source.URL,
		Logo:     e.Logo,
		StableID: e.StableID,
		Group:    e.Group,
		Sources:  []channel.Source{e.Source},
	}
	b.nextID++
	b.byKey[key] = ch

	g, ok := b.byGroup[e.Group]
	if !ok {
		g = &channel.Group{Name: e.Group}
		b.byGroup[e.Group] = g
		b.groups = append(b.groups, g)
	}
	g.Channels = append(g.Channels, ch)
}

// Groups returns the groups in first-encounter order.
func (b *Builder) Groups() []channel.Group {
	out := make([]channel.Group, len(b.groups))
	for i, g := range b.groups {
		out[i] = *g
	}
	return out
}
