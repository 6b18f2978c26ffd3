package support

import "sync"

// KeyLock serializes work per string key. The change monitor uses it so that
// concurrent checks for the same (domain, include) pair never interleave their
// baseline read-modify-write.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyLockEntry)}
}

// Lock blocks until the lock for key is held. Every Lock must be paired with
// an Unlock for the same key.
func (kl *KeyLock) Lock(key string) {
	kl.mu.Lock()
	entry, ok := kl.locks[key]
	if !ok {
		entry = &keyLockEntry{}
		kl.locks[key] = entry
	}
	entry.refs++
	kl.mu.Unlock()

	entry.mu.Lock()
}

func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	entry, ok := kl.locks[key]
	if ok {
		entry.refs--
		if entry.refs <= 0 {
			delete(kl.locks, key)
		}
	}
	kl.mu.Unlock()

	if ok {
		entry.mu.Unlock()
	}
}

// KeyTracker marks keys with work in flight, so schedulers can skip instead
// of queueing overlapping runs. The zero value is ready to use.
type KeyTracker struct {
	mu   sync.Mutex
	keys map[string]bool
}

// TryAcquire claims the key. It returns false when the key is already held.
func (t *KeyTracker) TryAcquire(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.keys == nil {
		t.keys = make(map[string]bool)
	}
	if t.keys[key] {
		return false
	}
	t.keys[key] = true
	return true
}

func (t *KeyTracker) Release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.keys, key)
}
