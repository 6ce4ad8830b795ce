package garden

import (
	"sync"
	"time"
)

// ActionLimiter debounces repeated identical actions: the same key within
// the cooldown window is rejected. Keys are action-plus-target strings, so
// watering plant A never blocks watering plant B.
type ActionLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	last     map[string]time.Time

	nowFunc func() time.Time // injectable for tests
}

// NewActionLimiter creates a limiter with the given cooldown. A zero or
// negative cooldown disables limiting.
func NewActionLimiter(cooldown time.Duration) *ActionLimiter {
	return &ActionLimiter{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
		nowFunc:  time.Now,
	}
}

// Allow reports whether the action may run now, recording the attempt time
// when it may.
func (l *ActionLimiter) Allow(key string) bool {
	if l.cooldown <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	if prev, ok := l.last[key]; ok && now.Sub(prev) < l.cooldown {
		return false
	}

	l.last[key] = now

	return true
}
