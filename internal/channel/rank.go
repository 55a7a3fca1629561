// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package channel

import (
	"errors"
	"fmt"
	"sort"
)

var ErrNoPlayableSources = errors.New("no playable sources")

// Rank returns the playable sources of a channel in preference order. Flash
// Video sources are dropped. The input slice is not modified.
func Rank(sources []Source) ([]Source, error) {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.IsFlash() {
			continue
		}
		out = append(out, s.clone())
	}
	if len(out) == 0 {
		if len(sources) == 0 {
			return nil, ErrNoPlayableSources
		}
		return nil, fmt.Errorf("%w: %d source(s) use Flash Video, which is not supported", ErrNoPlayableSources, len(sources))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rankBefore(out[i], out[j])
	})
	return out, nil
}

// rankBefore orders a before b. Between two DASH sources a clear-key rendition
// with inline keys wins regardless of quality; otherwise higher quality wins.
func rankBefore(a, b Source) bool {
	if a.Type == DASH && b.Type == DASH {
		if va, vb := a.HasVerifiedKeys(), b.HasVerifiedKeys(); va != vb {
			return va
		}
	}
	return QualityRank(a.Label) > QualityRank(b.Label)
}
