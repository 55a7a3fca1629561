// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/xemtv/internal/catalog"
	"github.com/ManuGH/xemtv/internal/channel"
	"github.com/ManuGH/xemtv/internal/prefs"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestManager_Health(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "ok", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "slow", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	m := NewManager("v1.0.0")
	assert.True(t, m.Ready(context.Background()).Ready, "no checkers means ready")

	m.RegisterChecker(&mockChecker{name: "slow", status: StatusDegraded})
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)

	m.RegisterChecker(&mockChecker{name: "down", status: StatusUnhealthy})
	m.RegisterChecker(&mockChecker{name: "also-slow", status: StatusDegraded})
	resp = m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestManager_ServeReady(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "down", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Ready)
	assert.Equal(t, StatusUnhealthy, body.Checks["down"].Status)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores components")
}

type stubCatalog struct {
	ready bool
	snap  *catalog.Snapshot
}

func (s stubCatalog) Ready() bool                 { return s.ready }
func (s stubCatalog) Snapshot() *catalog.Snapshot { return s.snap }

func TestCatalogChecker(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	groups := []channel.Group{{Name: "News", Channels: []*channel.Channel{{ID: 0, Name: "VTV1"}}}}

	tests := []struct {
		name string
		cat  stubCatalog
		want Status
	}{
		{"not built", stubCatalog{snap: catalog.NewSnapshot(nil, 0, time.Time{})}, StatusUnhealthy},
		{"empty", stubCatalog{ready: true, snap: catalog.NewSnapshot(nil, 1, now)}, StatusDegraded},
		{"stale", stubCatalog{ready: true, snap: catalog.NewSnapshot(groups, 1, now.Add(-3*time.Hour))}, StatusDegraded},
		{"fresh", stubCatalog{ready: true, snap: catalog.NewSnapshot(groups, 1, now.Add(-time.Minute))}, StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCatalogChecker(tt.cat, time.Hour)
			c.now = func() time.Time { return now }
			assert.Equal(t, tt.want, c.Check(context.Background()).Status)
		})
	}
}

type pingStore struct {
	prefs.Store
	err error
}

func (p pingStore) Ping(context.Context) error { return p.err }

func TestPrefsChecker(t *testing.T) {
	assert.Equal(t, StatusHealthy, NewPrefsChecker(pingStore{}).Check(context.Background()).Status)

	degraded := pingStore{err: errors.Join(prefs.ErrDegraded, errors.New("dial tcp: refused"))}
	assert.Equal(t, StatusDegraded, NewPrefsChecker(degraded).Check(context.Background()).Status)

	down := pingStore{err: errors.New("disk gone")}
	res := NewPrefsChecker(down).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "disk gone", res.Error)
}
