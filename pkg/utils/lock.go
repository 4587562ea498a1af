package utils

import (
	"sync"
)

// KeyedMutex serializes operations that share a key while letting unrelated
// keys proceed in parallel. Entries are reference counted and removed once
// the last holder unlocks, so the map does not grow with the key space.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*keyedLock),
	}
}

// Lock acquires the mutex for key, blocking while another holder owns it
func (km *KeyedMutex) Lock(key string) {
	km.mu.Lock()
	entry, ok := km.locks[key]
	if !ok {
		entry = &keyedLock{}
		km.locks[key] = entry
	}
	entry.refs++
	km.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the mutex for key
func (km *KeyedMutex) Unlock(key string) {
	km.mu.Lock()
	entry, ok := km.locks[key]
	if !ok {
		km.mu.Unlock()
		panic("utils: unlock of unlocked key " + key)
	}
	entry.refs--
	if entry.refs == 0 {
		delete(km.locks, key)
	}
	km.mu.Unlock()

	entry.mu.Unlock()
}
