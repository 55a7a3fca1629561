// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigValidate(t *testing.T) {
	dataDir := t.TempDir()
	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", "dataDir: " + dataDir + "\nplaylist:\n  urls: [https://iptv.example/a.m3u]\n", 0},
		{"unknown field", "dataDir: " + dataDir + "\nbogus: 1\n", 1},
		{"bad url", "dataDir: " + dataDir + "\nplaylist:\n  urls: [ftp://iptv.example/a.m3u]\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := configCLI([]string{"validate", "-f", writeConfigFile(t, tt.body)}, &stdout, &stderr)
			assert.Equal(t, tt.want, code, stderr.String())
		})
	}
}

func TestConfigDump_RedactsSecrets(t *testing.T) {
	path := writeConfigFile(t, "dataDir: "+t.TempDir()+"\nprefs:\n  redisAddr: localhost:6379\n  redisPassword: hunter2\n")

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, configCLI([]string{"dump", "--file", path}, &stdout, &stderr), stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "redisAddr: localhost:6379")
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "hunter2")
}

func TestConfigCLI_UnknownSubcommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, configCLI([]string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Unknown subcommand")
}

func TestHealthcheckCLI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.Equal(t, 0, runHealthcheckCLI([]string{"-mode", "live", "-addr", srv.URL}))
	assert.Equal(t, 1, runHealthcheckCLI([]string{"-addr", srv.URL}))
}

func TestResolveDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XEMTV_DATA", dir)
	assert.Empty(t, resolveDefaultConfigPath())

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\n"), 0o600))
	assert.Equal(t, path, resolveDefaultConfigPath())
}
