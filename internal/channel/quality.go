// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package channel

import (
	"regexp"
	"strings"
)

// qualityTier is one entry of the recognised quality vocabulary.
type qualityTier struct {
	pattern string
	rank    int
}

// Order matters: longer tokens must precede their prefixes in the alternation.
var qualityTiers = []qualityTier{
	{pattern: `HD Nhanh`, rank: 3},
	{pattern: `FullHD`, rank: 4},
	{pattern: `Full HD`, rank: 4},
	{pattern: `FHD`, rank: 4},
	{pattern: `HD\d+`, rank: 3},
	{pattern: `HD`, rank: 3},
	{pattern: `SD`, rank: 2},
	{pattern: `4K`, rank: 5},
	{pattern: `UHD`, rank: 5},
}

const defaultRank = 1

var (
	qualitySuffix *regexp.Regexp
	tierMatchers  []*regexp.Regexp
)

func init() {
	alts := make([]string, len(qualityTiers))
	tierMatchers = make([]*regexp.Regexp, len(qualityTiers))
	for i, t := range qualityTiers {
		alts[i] = t.pattern
		tierMatchers[i] = regexp.MustCompile(`(?i)^` + t.pattern + `$`)
	}
	qualitySuffix = regexp.MustCompile(`(?i)\s*\b(` + strings.Join(alts, "|") + `)\b\s*(?:\(\d+\))?\s*$`)
}

// SplitQuality separates a trailing quality token (optionally followed by a
// parenthesised counter such as "(2)") from a display name.
func SplitQuality(name string) (base, label string) {
	name = strings.TrimSpace(name)
	m := qualitySuffix.FindStringSubmatchIndex(name)
	if m == nil {
		return name, DefaultQuality
	}
	label = strings.TrimSpace(name[m[2]:m[3]])
	base = strings.TrimSpace(name[:m[0]])
	if base == "" {
		base = name
	}
	return base, label
}

// QualityRank maps a label to its preference rank; higher is better.
// The default label ranks 1 and anything unrecognised ranks 0.
func QualityRank(label string) int {
	label = strings.TrimSpace(label)
	if strings.EqualFold(label, DefaultQuality) {
		return defaultRank
	}
	for i, m := range tierMatchers {
		if m.MatchString(label) {
			return qualityTiers[i].rank
		}
	}
	return 0
}
