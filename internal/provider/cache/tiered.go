package cache

import (
    "time"

    "marketwatch/internal/clock"
)

// Tiered pairs a short-lived primary store with a long-lived backup store.
// Every write lands in both; the backup is only read when the upstream is
// unavailable.
type Tiered[V any] struct {
    primary *Store[V]
    backup  *Store[V]
}

func NewTiered[V any](primaryTTL, backupTTL time.Duration, maxItems int, c clock.Clock) *Tiered[V] {
    c = clock.OrSystem(c)
    return &Tiered[V]{
        primary: NewStore[V](primaryTTL, maxItems, c),
        backup:  NewStore[V](backupTTL, maxItems, c),
    }
}

// Pin exempts keys from MaxItems eviction in both tiers.
func (t *Tiered[V]) Pin(keys ...string) {
    t.primary.Pin(keys...)
    t.backup.Pin(keys...)
}

// Put writes value to both tiers.
func (t *Tiered[V]) Put(key string, value V) {
    t.primary.Set(key, value)
    t.backup.Set(key, value)
}

// Fresh reads the primary tier.
func (t *Tiered[V]) Fresh(key string) (V, bool) { return t.primary.Get(key) }

// Backup reads the backup tier.
func (t *Tiered[V]) Backup(key string) (V, bool) { return t.backup.Get(key) }

// Flush clears both tiers.
func (t *Tiered[V]) Flush() {
    t.primary.Flush()
    t.backup.Flush()
}
