package apikey

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu   sync.RWMutex
	keys map[string]Key
}

// NewMemoryRepository builds an in-memory key store for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{keys: make(map[string]Key)}
}

func (r *memoryRepository) Create(_ context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.keys[key.KeyID]; exists {
		return errors.New("key exists")
	}
	r.keys[key.KeyID] = key
	return nil
}

func (r *memoryRepository) FindByKeyID(_ context.Context, keyID string) (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[keyID]
	if !ok {
		return Key{}, ErrNotFound
	}
	return key, nil
}

func (r *memoryRepository) GetForUser(_ context.Context, userID, keyID string) (Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[keyID]
	if !ok || key.UserID != userID {
		return Key{}, ErrNotFound
	}
	return key, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []Key
	for _, key := range r.keys {
		if key.UserID == userID {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (r *memoryRepository) Delete(_ context.Context, userID, keyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[keyID]
	if !ok || key.UserID != userID {
		return ErrNotFound
	}
	delete(r.keys, keyID)
	return nil
}

func (r *memoryRepository) TouchUsage(_ context.Context, keyID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keys[keyID]
	if !ok {
		return ErrNotFound
	}
	key.CallCount++
	ts := at.UTC()
	key.LastUsedAt = &ts
	r.keys[keyID] = key
	return nil
}
