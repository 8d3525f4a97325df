package lib

import "sync"

// KeyLock provides a dedicated mutex per key, so writers for different keys
// proceed in parallel while writers for the same key are serialized.
// Locks are created lazily and never removed: the key space (job IDs) is
// bounded by the number of jobs this instance mirrors.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyLock() *KeyLock {
	return &KeyLock{
		locks: make(map[string]*sync.Mutex),
	}
}

func (k *KeyLock) Lock(key string) {
	k.get(key).Lock()
}

func (k *KeyLock) Unlock(key string) {
	k.get(key).Unlock()
}

func (k *KeyLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
