package ratelimit

import (
    "sync"
    "time"

    "marketwatch/internal/clock"
)

// Cooldown is the process-wide "upstream told us to back off" flag. One
// rate-limit event suppresses every upstream call until the deadline passes,
// whichever cache key triggered it.
type Cooldown struct {
    clock clock.Clock

    mu      sync.Mutex
    limited bool
    resetAt time.Time
}

// State is a point-in-time copy of the cooldown. RetryAfterSec rounds the
// time left up to whole seconds.
type State struct {
    Limited       bool      `json:"isLimited"`
    ResetAt       time.Time `json:"resetAt"`
    RetryAfterSec int       `json:"retryAfterSec"`
}

func NewCooldown(c clock.Clock) *Cooldown {
    return &Cooldown{clock: clock.OrSystem(c)}
}

// Arm starts (or extends) the cooldown for d. An active cooldown is never
// shortened by a smaller hint.
func (c *Cooldown) Arm(d time.Duration) time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    until := c.clock.Now().Add(d)
    if !c.limited || until.After(c.resetAt) {
        c.resetAt = until
    }
    c.limited = true
    return c.resetAt
}

// Active reports whether upstream calls are currently forbidden. An expired
// cooldown is cleared here.
func (c *Cooldown) Active() bool {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.activeLocked()
}

func (c *Cooldown) activeLocked() bool {
    if !c.limited { return false }
    if c.clock.Now().Before(c.resetAt) { return true }
    c.limited = false
    c.resetAt = time.Time{}
    return false
}

// State returns the current cooldown, clearing it first if expired.
func (c *Cooldown) State() State {
    c.mu.Lock()
    defer c.mu.Unlock()
    if !c.activeLocked() { return State{} }
    left := c.resetAt.Sub(c.clock.Now())
    return State{Limited: true, ResetAt: c.resetAt, RetryAfterSec: int((left + time.Second - 1) / time.Second)}
}
