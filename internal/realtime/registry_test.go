package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AcquireReplacesPreviousSession(t *testing.T) {
	// Arrange
	registry := NewRegistry()
	firstRig := newTestRig(nil)
	first := connectedSession(t, firstRig)
	second := connectedSession(t, newTestRig(nil))
	registry.Acquire("user-1", first)

	// Act
	registry.Acquire("user-1", second)

	// Assert: у пользователя не бывает двух живых сессий
	assert.Equal(t, StateClosed, first.State())
	assert.Equal(t, StateConnected, second.State())
	got, ok := registry.Get("user-1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, firstRig.log.count("pc.close"))
}

func TestRegistry_ReleaseIgnoresStaleSession(t *testing.T) {
	registry := NewRegistry()
	stale := connectedSession(t, newTestRig(nil))
	current := connectedSession(t, newTestRig(nil))
	registry.Acquire("user-1", stale)
	registry.Acquire("user-1", current)

	require.NoError(t, registry.Release("user-1", stale))

	got, ok := registry.Get("user-1")
	require.True(t, ok)
	assert.Same(t, current, got)

	require.NoError(t, registry.Release("user-1", current))
	_, ok = registry.Get("user-1")
	assert.False(t, ok)
	assert.Equal(t, StateClosed, current.State())
}

func TestRegistry_CloseAll(t *testing.T) {
	registry := NewRegistry()
	a := connectedSession(t, newTestRig(nil))
	b := connectedSession(t, newTestRig(nil))
	registry.Acquire("a", a)
	registry.Acquire("b", b)

	require.NoError(t, registry.CloseAll())

	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, StateClosed, a.State())
	assert.Equal(t, StateClosed, b.State())
}
