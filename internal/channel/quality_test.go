// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package channel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitQuality(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantBase  string
		wantLabel string
	}{
		{name: "plain hd", in: "Channel One HD", wantBase: "Channel One", wantLabel: "HD"},
		{name: "no token", in: "VTV1", wantBase: "VTV1", wantLabel: DefaultQuality},
		{name: "numbered hd", in: "VTV3 HD2", wantBase: "VTV3", wantLabel: "HD2"},
		{name: "hd nhanh", in: "K+ Sport HD Nhanh", wantBase: "K+ Sport", wantLabel: "HD Nhanh"},
		{name: "full hd with space", in: "HTV7 Full HD", wantBase: "HTV7", wantLabel: "Full HD"},
		{name: "disambiguator counter", in: "VTV1 HD (2)", wantBase: "VTV1", wantLabel: "HD"},
		{name: "case insensitive", in: "Kênh Sport fhd", wantBase: "Kênh Sport", wantLabel: "fhd"},
		{name: "token glued to word is not a suffix", in: "VTV1HD", wantBase: "VTV1HD", wantLabel: DefaultQuality},
		{name: "token alone keeps name", in: "HD", wantBase: "HD", wantLabel: "HD"},
		{name: "4k", in: "Nat Geo 4K", wantBase: "Nat Geo", wantLabel: "4K"},
		{name: "surrounding whitespace", in: "  SCTV SD  ", wantBase: "SCTV", wantLabel: "SD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, label := SplitQuality(tt.in)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestSplitQuality_RoundTripOverVocabulary(t *testing.T) {
	bases := []string{"Channel One", "VTV1", "Thể Thao TV", "K+ Sport 1", "HTV Key (HCM)", "Movie HD"}
	tokens := []string{"HD Nhanh", "FullHD", "Full HD", "FHD", "HD1", "HD12", "HD", "SD", "4K", "UHD", "uhd", "Hd"}
	for _, base := range bases {
		for _, tok := range tokens {
			gotBase, gotLabel := SplitQuality(base + " " + tok)
			assert.Equal(t, base, gotBase, "base of %q", base+" "+tok)
			assert.Equal(t, tok, gotLabel, "label of %q", base+" "+tok)
		}
	}
}

func TestQualityRank(t *testing.T) {
	tests := map[string]int{
		"4K":       5,
		"UHD":      5,
		"FullHD":   4,
		"Full HD":  4,
		"fhd":      4,
		"HD":       3,
		"HD1":      3,
		"HD Nhanh": 3,
		"SD":       2,
		"Default":  1,
		"Mobile":   0,
		"":         0,
	}
	for label, want := range tests {
		assert.Equal(t, want, QualityRank(label), "rank of %q", label)
	}
}

func FuzzSplitQuality(f *testing.F) {
	for _, seed := range []string{"VTV1 HD", "HTV7 Full HD (3)", "HD", "", "  SCTV sd ", "K+ HD Nhanh"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, name string) {
		base, label := SplitQuality(name)
		trimmed := strings.TrimSpace(name)
		if !strings.HasPrefix(trimmed, base) {
			t.Fatalf("base %q is not a prefix of %q", base, trimmed)
		}
		if trimmed != "" && base == "" {
			t.Fatalf("empty base for %q", name)
		}
		if label != DefaultQuality && QualityRank(label) == 0 {
			t.Fatalf("extracted label %q is not in the vocabulary", label)
		}
	})
}
