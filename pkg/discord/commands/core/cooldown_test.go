package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCooldownTrackerWindow(t *testing.T) {
	tracker := NewCooldownTracker(0)
	assert.Equal(t, DefaultCooldown, tracker.Window(0))
	assert.Equal(t, 10*time.Second, tracker.Window(10*time.Second))

	custom := NewCooldownTracker(5 * time.Second)
	assert.Equal(t, 5*time.Second, custom.Window(-time.Second))
}

func TestCooldownTrackerDisabledDefault(t *testing.T) {
	tracker := NewCooldownTracker(NoCooldown)
	window := tracker.Window(0)

	for range 3 {
		ok, _ := tracker.Acquire("ping", "u1", window)
		assert.True(t, ok)
	}
	assert.Zero(t, tracker.Len())

	ok, _ := tracker.Acquire("ping", "u1", tracker.Window(time.Minute))
	assert.True(t, ok)
	ok, _ = tracker.Acquire("ping", "u1", tracker.Window(time.Minute))
	assert.False(t, ok, "declared windows still apply")
}

func TestCooldownTrackerCheckRecord(t *testing.T) {
	tracker := NewCooldownTracker(time.Second)
	current := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	ok, remaining := tracker.Check("ping", "u1", 3*time.Second)
	require.True(t, ok)
	assert.Zero(t, remaining)

	tracker.Record("ping", "u1", 3*time.Second)

	current = current.Add(500 * time.Millisecond)
	ok, remaining = tracker.Check("ping", "u1", 3*time.Second)
	require.False(t, ok)
	assert.Equal(t, 2500*time.Millisecond, remaining)

	ok, _ = tracker.Check("ping", "u2", 3*time.Second)
	assert.True(t, ok, "other users are tracked separately")
	ok, _ = tracker.Check("pong", "u1", 3*time.Second)
	assert.True(t, ok, "other commands are tracked separately")

	current = current.Add(2500 * time.Millisecond)
	ok, _ = tracker.Check("ping", "u1", 3*time.Second)
	assert.True(t, ok, "window boundary is inclusive of expiry")
}

func TestCooldownTrackerAcquireIsAtomic(t *testing.T) {
	tracker := NewCooldownTracker(time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	passed := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := tracker.Acquire("ping", "u1", time.Minute); ok {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, tracker.Len())
}
