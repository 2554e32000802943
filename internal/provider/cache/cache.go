package cache

import (
    "sync"
    "time"

    "marketwatch/internal/clock"
)

// entry stores one cached value with its expiry.
type entry[V any] struct {
    expiresAt time.Time
    value     V
}

// Store is a TTL map safe for concurrent use. Expired entries are ignored on
// read. Once the store grows past MaxItems, expired entries are dropped, then
// the entries closest to expiry. Pinned keys are never evicted.
type Store[V any] struct {
    TTL      time.Duration
    MaxItems int
    Clock    clock.Clock

    mu     sync.RWMutex
    items  map[string]entry[V]
    pinned map[string]struct{}
}

func NewStore[V any](ttl time.Duration, maxItems int, c clock.Clock) *Store[V] {
    return &Store[V]{TTL: ttl, MaxItems: maxItems, Clock: clock.OrSystem(c), items: make(map[string]entry[V])}
}

func (s *Store[V]) now() time.Time {
    if s.Clock == nil { return time.Now() }
    return s.Clock.Now()
}

// Pin exempts keys from MaxItems eviction. Pinned entries still expire.
func (s *Store[V]) Pin(keys ...string) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.pinned == nil { s.pinned = make(map[string]struct{}, len(keys)) }
    for _, k := range keys {
        s.pinned[k] = struct{}{}
    }
}

// Get returns the value for key if present and not expired.
func (s *Store[V]) Get(key string) (V, bool) {
    now := s.now()
    s.mu.RLock()
    e, ok := s.items[key]
    s.mu.RUnlock()
    if !ok || !now.Before(e.expiresAt) {
        var zero V
        return zero, false
    }
    return e.value, true
}

// Set stores value under key for the store TTL. A non-positive TTL disables
// the store.
func (s *Store[V]) Set(key string, value V) {
    if s.TTL <= 0 { return }
    now := s.now()
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.items == nil { s.items = make(map[string]entry[V]) }
    s.items[key] = entry[V]{expiresAt: now.Add(s.TTL), value: value}
    if s.MaxItems > 0 && len(s.items) > s.MaxItems {
        s.evictLocked(key, now)
    }
}

// evictLocked shrinks the store to MaxItems, sparing keep and pinned keys.
func (s *Store[V]) evictLocked(keep string, now time.Time) {
    for k, e := range s.items {
        if k != keep && !now.Before(e.expiresAt) {
            delete(s.items, k)
        }
    }
    for len(s.items) > s.MaxItems {
        victim, found := "", false
        var oldest time.Time
        for k, e := range s.items {
            if k == keep { continue }
            if _, ok := s.pinned[k]; ok { continue }
            if !found || e.expiresAt.Before(oldest) {
                victim, oldest, found = k, e.expiresAt, true
            }
        }
        if !found { return }
        delete(s.items, victim)
    }
}

// expiry returns the expiry of key, whether or not it already passed.
func (s *Store[V]) expiry(key string) (time.Time, bool) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    e, ok := s.items[key]
    return e.expiresAt, ok
}

// size counts stored entries, including expired ones not yet dropped.
func (s *Store[V]) size() int {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return len(s.items)
}

// Flush drops every entry.
func (s *Store[V]) Flush() {
    s.mu.Lock()
    s.items = make(map[string]entry[V])
    s.mu.Unlock()
}
