// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/xemtv/internal/catalog"
	"github.com/ManuGH/xemtv/internal/prefs"
)

// CatalogSource is the part of the catalog the checker reads.
type CatalogSource interface {
	Ready() bool
	Snapshot() *catalog.Snapshot
}

// CatalogChecker reports unhealthy until the first catalog build and
// degraded while the catalog is empty or stale.
type CatalogChecker struct {
	catalog CatalogSource
	maxAge  time.Duration
	now     func() time.Time
}

// NewCatalogChecker returns a checker. maxAge <= 0 disables the staleness check.
func NewCatalogChecker(c CatalogSource, maxAge time.Duration) *CatalogChecker {
	return &CatalogChecker{catalog: c, maxAge: maxAge, now: time.Now}
}

func (c *CatalogChecker) Name() string { return "catalog" }

func (c *CatalogChecker) Check(context.Context) CheckResult {
	if !c.catalog.Ready() {
		return CheckResult{Status: StatusUnhealthy, Message: "catalog not built yet"}
	}
	snap := c.catalog.Snapshot()
	if snap.ChannelCount() == 0 {
		return CheckResult{Status: StatusDegraded, Message: "catalog is empty"}
	}
	if c.maxAge > 0 {
		if age := c.now().Sub(snap.BuiltAt); age > c.maxAge {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("catalog built %s ago", age.Round(time.Second)),
			}
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d channels in %d groups", snap.ChannelCount(), len(snap.Groups)),
	}
}

// PrefsChecker pings the preference store. A store running on its local
// fallback is degraded, not unhealthy.
type PrefsChecker struct {
	store   prefs.Store
	timeout time.Duration
}

// NewPrefsChecker returns a checker with a 2s ping timeout.
func NewPrefsChecker(store prefs.Store) *PrefsChecker {
	return &PrefsChecker{store: store, timeout: 2 * time.Second}
}

func (c *PrefsChecker) Name() string { return "prefs" }

func (c *PrefsChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.store.Ping(ctx)
	switch {
	case err == nil:
		return CheckResult{Status: StatusHealthy}
	case errors.Is(err, prefs.ErrDegraded):
		return CheckResult{Status: StatusDegraded, Message: "using local fallback", Error: err.Error()}
	default:
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
}
