package favorites

import (
    "context"
    "errors"
    "strings"
    "sync"
)

// ErrInvalidID is returned for a blank instrument id.
var ErrInvalidID = errors.New("favorites: instrument id required")

// Store keeps each user's favorite instrument ids in insertion order.
// Ids are stored lower-cased.
type Store interface {
    List(ctx context.Context, userID int64) ([]string, error)
    // Add is idempotent.
    Add(ctx context.Context, userID int64, id string) error
    // Remove reports whether id was a favorite.
    Remove(ctx context.Context, userID int64, id string) (bool, error)
    Close() error
}

func normalizeID(id string) (string, error) {
    id = strings.ToLower(strings.TrimSpace(id))
    if id == "" { return "", ErrInvalidID }
    return id, nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
    mu    sync.RWMutex
    users map[int64][]string
}

func NewMemoryStore() *MemoryStore {
    return &MemoryStore{users: make(map[int64][]string)}
}

func (s *MemoryStore) List(_ context.Context, userID int64) ([]string, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return append([]string{}, s.users[userID]...), nil
}

func (s *MemoryStore) Add(_ context.Context, userID int64, id string) error {
    id, err := normalizeID(id)
    if err != nil { return err }
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, have := range s.users[userID] {
        if have == id { return nil }
    }
    s.users[userID] = append(s.users[userID], id)
    return nil
}

func (s *MemoryStore) Remove(_ context.Context, userID int64, id string) (bool, error) {
    id, err := normalizeID(id)
    if err != nil { return false, err }
    s.mu.Lock()
    defer s.mu.Unlock()
    ids := s.users[userID]
    for i, have := range ids {
        if have != id { continue }
        s.users[userID] = append(ids[:i:i], ids[i+1:]...)
        return true, nil
    }
    return false, nil
}

func (s *MemoryStore) Close() error { return nil }
