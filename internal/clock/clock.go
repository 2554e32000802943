package clock

import (
    "sync"
    "time"
)

// Clock reports the current time. Cache expiry and rate-limit cooldowns read
// time through it so tests can move time forward deterministically.
type Clock interface {
    Now() time.Time
}

type system struct{}

func (system) Now() time.Time { return time.Now() }

// System returns the wall clock.
func System() Clock { return system{} }

// Fake is a manually advanced clock.
type Fake struct {
    mu  sync.Mutex
    now time.Time
}

func NewFake(start time.Time) *Fake { return &Fake{now: start} }

func (f *Fake) Now() time.Time {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
    f.mu.Lock()
    f.now = f.now.Add(d)
    f.mu.Unlock()
}

// OrSystem returns c, or the wall clock when c is nil.
func OrSystem(c Clock) Clock {
    if c == nil { return System() }
    return c
}
