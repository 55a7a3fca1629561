// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time { return m.now }

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("feed-a", 2, time.Minute, WithClock(clock))

	require.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	require.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("feed-b", 1, 10*time.Second, WithClock(clock))

	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	clock.now = clock.now.Add(11 * time.Second)
	require.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State(), "failed probe reopens")

	clock.now = clock.now.Add(11 * time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("feed-c", 2, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
}

func TestSet_ReturnsSameBreakerPerKey(t *testing.T) {
	s := NewSet(1, time.Minute)
	a := s.For("a")
	assert.Same(t, a, s.For("a"))
	assert.NotSame(t, a, s.For("b"))

	a.RecordFailure()
	assert.Equal(t, StateOpen, s.For("a").State())
	assert.Equal(t, StateClosed, s.For("b").State())
}

func TestSet_ForLabeledKeysByKeyNotLabel(t *testing.T) {
	s := NewSet(1, time.Minute)
	bad := s.ForLabeled("http://host/get.php?user=bad", "http://host/get.php")
	good := s.ForLabeled("http://host/get.php?user=good", "http://host/get.php")
	require.NotSame(t, bad, good)

	bad.RecordFailure()
	assert.Equal(t, StateOpen, bad.State())
	assert.True(t, good.Allow())
}
