package core

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultCooldown applies to commands that do not declare their own window.
const DefaultCooldown = 3 * time.Second

// NoCooldown as the tracker default lets commands without a declared window run unthrottled.
const NoCooldown time.Duration = -1

// CooldownTracker remembers the last invocation per (command, user).
// Entries expire together with their window.
type CooldownTracker struct {
	mu            sync.Mutex
	entries       *cache.Cache
	defaultWindow time.Duration
	now           func() time.Time
}

func NewCooldownTracker(defaultWindow time.Duration) *CooldownTracker {
	if defaultWindow == 0 {
		defaultWindow = DefaultCooldown
	}
	return &CooldownTracker{
		entries:       cache.New(cache.NoExpiration, time.Minute),
		defaultWindow: defaultWindow,
		now:           time.Now,
	}
}

// Window resolves a command's declared window, substituting the default for zero.
func (t *CooldownTracker) Window(declared time.Duration) time.Duration {
	if declared <= 0 {
		return t.defaultWindow
	}
	return declared
}

// Check reports whether the user may invoke command now, and how long is left otherwise.
func (t *CooldownTracker) Check(command, userID string, window time.Duration) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.check(command, userID, window)
}

// Record stores now as the last invocation.
func (t *CooldownTracker) Record(command, userID string, window time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(command, userID, window)
}

// Acquire checks and records in one step so concurrent invocations cannot both pass.
func (t *CooldownTracker) Acquire(command, userID string, window time.Duration) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ok, remaining := t.check(command, userID, window)
	if ok {
		t.record(command, userID, window)
	}
	return ok, remaining
}

// Len returns the number of live entries.
func (t *CooldownTracker) Len() int {
	return t.entries.ItemCount()
}

func (t *CooldownTracker) check(command, userID string, window time.Duration) (bool, time.Duration) {
	if window <= 0 {
		return true, 0
	}
	key := cooldownKey(command, userID)
	v, ok := t.entries.Get(key)
	if !ok {
		return true, 0
	}
	remaining := v.(time.Time).Add(window).Sub(t.now())
	if remaining <= 0 {
		t.entries.Delete(key)
		return true, 0
	}
	return false, remaining
}

func (t *CooldownTracker) record(command, userID string, window time.Duration) {
	if window <= 0 {
		return
	}
	t.entries.Set(cooldownKey(command, userID), t.now(), window)
}

func cooldownKey(command, userID string) string {
	return command + "\x00" + userID
}
