// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"time"

	"github.com/ManuGH/xemtv/internal/channel"
)

// Snapshot is one immutable build of the catalog. Callers must not mutate
// the groups or channels it exposes.
type Snapshot struct {
	Groups  []channel.Group `json:"groups"`
	BuiltAt time.Time       `json:"builtAt"`
	Feeds   int             `json:"feeds"`

	byID       map[int]*channel.Channel
	byStableID map[string]*channel.Channel
	channels   int
}

// NewSnapshot indexes groups into an immutable snapshot.
func NewSnapshot(groups []channel.Group, feeds int, builtAt time.Time) *Snapshot {
	s := &Snapshot{
		Groups:     groups,
		BuiltAt:    builtAt,
		Feeds:      feeds,
		byID:       make(map[int]*channel.Channel),
		byStableID: make(map[string]*channel.Channel),
	}
	if s.Groups == nil {
		s.Groups = []channel.Group{}
	}
	for _, g := range groups {
		for _, ch := range g.Channels {
			s.channels++
			s.byID[ch.ID] = ch
			if ch.StableID != "" {
				if _, dup := s.byStableID[ch.StableID]; !dup {
					s.byStableID[ch.StableID] = ch
				}
			}
		}
	}
	return s
}

// ChannelCount returns the number of channels across all groups.
func (s *Snapshot) ChannelCount() int { return s.channels }

// First returns the first channel of the first non-empty group, or nil.
func (s *Snapshot) First() *channel.Channel {
	for _, g := range s.Groups {
		if len(g.Channels) > 0 {
			return g.Channels[0]
		}
	}
	return nil
}

// Channels returns every channel in group order.
func (s *Snapshot) Channels() []*channel.Channel {
	out := make([]*channel.Channel, 0, s.channels)
	for _, g := range s.Groups {
		out = append(out, g.Channels...)
	}
	return out
}
