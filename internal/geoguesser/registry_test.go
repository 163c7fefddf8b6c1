package geoguesser

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryConcurrentBeginOnlyOneWins(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, starting := 0, 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Begin("channel", "host", ModeCity)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrSessionStarting):
				starting++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 49, starting)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryReserveThenBegin(t *testing.T) {
	registry := NewRegistry()
	reserved, err := registry.Reserve("channel", "host")
	require.NoError(t, err)
	assert.Equal(t, StateSelectingMode, reserved.State())

	_, err = registry.Reserve("channel", "other")
	assert.ErrorIs(t, err, ErrSessionStarting)

	_, err = registry.Begin("channel", "other", ModeCity)
	assert.ErrorIs(t, err, ErrUnauthorized)

	started, err := registry.Begin("channel", "host", ModeCounty)
	require.NoError(t, err)
	assert.Same(t, reserved, started)
	assert.Equal(t, ModeCounty, started.Mode())
	assert.Equal(t, StateInitializing, started.State())
}

func TestRegistryActiveSessionBlocksStart(t *testing.T) {
	registry := NewRegistry()
	session, err := registry.Begin("channel", "host", ModeCity)
	require.NoError(t, err)
	session.Initialize(testLocations(1))
	session.openRound()

	_, err = registry.Begin("channel", "host", ModeCity)
	assert.ErrorIs(t, err, ErrSessionActive)
	_, err = registry.Reserve("channel", "host")
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestRegistryRemoveOnlySameSession(t *testing.T) {
	registry := NewRegistry()
	old, err := registry.Begin("channel", "host", ModeCity)
	require.NoError(t, err)
	require.True(t, registry.Remove(old))

	current, err := registry.Begin("channel", "host", ModeCity)
	require.NoError(t, err)
	assert.False(t, registry.Remove(old))

	got, ok := registry.Get("channel")
	require.True(t, ok)
	assert.Same(t, current, got)
	assert.Len(t, registry.Sessions(), 1)
}
