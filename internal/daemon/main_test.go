// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "XEMTV_") {
			key, _, _ := strings.Cut(e, "=")
			_ = os.Unsetenv(key)
		}
	}
	os.Exit(m.Run())
}
