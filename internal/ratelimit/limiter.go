// Package ratelimit provides sliding-window attempt limiters keyed by an
// arbitrary identifier such as a login email.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxAttempts = 5
)

// Limiter gates attempts per key. Allow prunes attempts older than the
// window, denies without recording when the remaining count has reached
// the maximum, and otherwise records the attempt.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config holds limiter parameters shared by all backends.
type Config struct {
	Window      time.Duration
	MaxAttempts int
	Now         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
