// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	assert.Equal(t, "default", ParseString("XEMTV_TEST_UNSET", "default"))

	t.Setenv("XEMTV_TEST_STRING", "from-env")
	assert.Equal(t, "from-env", ParseString("XEMTV_TEST_STRING", "default"))

	t.Setenv("XEMTV_TEST_EMPTY", "")
	assert.Equal(t, "default", ParseString("XEMTV_TEST_EMPTY", "default"))

	t.Setenv("XEMTV_TEST_PASSWORD", "secret123")
	assert.Equal(t, "secret123", ParseString("XEMTV_TEST_PASSWORD", ""))
}

func TestParseInt(t *testing.T) {
	t.Setenv("XEMTV_TEST_INT", " 42 ")
	assert.Equal(t, 42, ParseInt("XEMTV_TEST_INT", 1))

	t.Setenv("XEMTV_TEST_INT", "forty")
	assert.Equal(t, 1, ParseInt("XEMTV_TEST_INT", 1))
}

func TestParseBool(t *testing.T) {
	tests := map[string]bool{
		"true": true, "1": true, "YES": true,
		"false": false, "0": false, "No": false,
	}
	for in, want := range tests {
		t.Setenv("XEMTV_TEST_BOOL", in)
		assert.Equal(t, want, ParseBool("XEMTV_TEST_BOOL", !want), in)
	}

	t.Setenv("XEMTV_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("XEMTV_TEST_BOOL", true))
}

func TestParseDuration(t *testing.T) {
	t.Setenv("XEMTV_TEST_DUR", "250ms")
	assert.Equal(t, 250*time.Millisecond, ParseDuration("XEMTV_TEST_DUR", time.Second))

	t.Setenv("XEMTV_TEST_DUR", "250")
	assert.Equal(t, time.Second, ParseDuration("XEMTV_TEST_DUR", time.Second))
}

func TestParseFloat(t *testing.T) {
	t.Setenv("XEMTV_TEST_FLOAT", "0.5")
	assert.InDelta(t, 0.5, ParseFloat("XEMTV_TEST_FLOAT", 1), 1e-9)

	t.Setenv("XEMTV_TEST_FLOAT", "half")
	assert.InDelta(t, 1.0, ParseFloat("XEMTV_TEST_FLOAT", 1), 1e-9)
}

func TestParseList(t *testing.T) {
	def := []string{"x"}
	assert.Equal(t, def, ParseList("XEMTV_TEST_LIST_UNSET", def))

	t.Setenv("XEMTV_TEST_LIST", " a, ,b ,")
	assert.Equal(t, []string{"a", "b"}, ParseList("XEMTV_TEST_LIST", def))

	t.Setenv("XEMTV_TEST_LIST", " , ")
	assert.Equal(t, def, ParseList("XEMTV_TEST_LIST", def))
}
