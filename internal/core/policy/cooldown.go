package policy

import (
	"sync"
	"time"
)

// Cooldown suppresses repeat alerts for the same key inside Window.
// A nil Cooldown or a zero Window allows everything.
type Cooldown struct {
	Window time.Duration

	mu           sync.Mutex
	lastNotified map[string]time.Time
	now          func() time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		Window:       window,
		lastNotified: make(map[string]time.Time),
		now:          time.Now,
	}
}

// Reserve reports whether key may alert now and, if so, records the attempt.
func (c *Cooldown) Reserve(key string) bool {
	if c == nil || c.Window <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.lastNotified[key]; ok && now.Sub(last) < c.Window {
		return false
	}
	c.lastNotified[key] = now
	return true
}

// Release forgets key so a failed send does not hold the window.
func (c *Cooldown) Release(key string) {
	if c == nil || c.Window <= 0 {
		return
	}
	c.mu.Lock()
	delete(c.lastNotified, key)
	c.mu.Unlock()
}
