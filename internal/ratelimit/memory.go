package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is an in-process sliding window. The map lock only guards
// key lookup; pruning, counting and recording happen under the key's own
// lock so unrelated keys never contend.
type MemoryLimiter struct {
	cfg Config

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	mu      sync.Mutex
	stamps  []time.Time
	evicted bool
}

// NewMemoryLimiter builds an in-memory limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:     cfg.withDefaults(),
		windows: make(map[string]*window),
	}
}

// Allow implements Limiter. It never returns an error.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	for {
		w := m.window(key)

		w.mu.Lock()
		if w.evicted {
			// Lost a race with EvictIdle; the key has a fresh window now.
			w.mu.Unlock()
			continue
		}
		now := m.cfg.Now()
		w.prune(now.Add(-m.cfg.Window))
		if len(w.stamps) >= m.cfg.MaxAttempts {
			w.mu.Unlock()
			return false, nil
		}
		w.stamps = append(w.stamps, now)
		w.mu.Unlock()
		return true, nil
	}
}

func (m *MemoryLimiter) window(key string) *window {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[key]
	if !ok {
		w = &window{}
		m.windows[key] = w
	}
	return w
}

// prune drops stamps strictly before cutoff. Stamps are appended in call
// order, so the slice is sorted.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.stamps) && w.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// EvictIdle removes keys with no attempts inside the window and returns how
// many were removed.
func (m *MemoryLimiter) EvictIdle() int {
	cutoff := m.cfg.Now().Add(-m.cfg.Window)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		w.mu.Lock()
		w.prune(cutoff)
		if len(w.stamps) == 0 {
			w.evicted = true
			delete(m.windows, key)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (m *MemoryLimiter) RunEviction(ctx context.Context, interval time.Duration, onEvict func(removed int)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.EvictIdle(); removed > 0 && onEvict != nil {
				onEvict(removed)
			}
		}
	}
}

// Len reports the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
