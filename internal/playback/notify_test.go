// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox_DrainEmpties(t *testing.T) {
	in := NewInbox(4)
	in.Notify(LevelInfo, "a")
	in.Notify(LevelError, "b")

	got := in.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, int64(3000), got[0].DurationMS)
	assert.Equal(t, int64(6000), got[1].DurationMS)
	assert.Empty(t, in.Drain())
}

func TestInbox_DropsOldestWhenFull(t *testing.T) {
	in := NewInbox(3)
	for i := 0; i < 5; i++ {
		in.Notify(LevelWarn, fmt.Sprintf("m%d", i))
	}
	got := in.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, "m2", got[0].Message)
	assert.Equal(t, uint64(5), got[2].Seq)
	assert.Equal(t, int64(4000), got[2].DurationMS)
}

func TestNewInbox_DefaultCapacity(t *testing.T) {
	in := NewInbox(0)
	for i := 0; i < defaultInboxCapacity+1; i++ {
		in.Notify(LevelInfo, "x")
	}
	assert.Len(t, in.Drain(), defaultInboxCapacity)
}
