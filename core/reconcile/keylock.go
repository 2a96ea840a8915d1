package reconcile

import (
	"slices"
	"sync"
)

// KeyLocks serializes writes per key. Entries are reference counted and
// removed once no writer holds or waits on them.
type KeyLocks struct {
	mu    sync.Mutex
	locks map[Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLocks returns an empty lock table.
func NewKeyLocks() *KeyLocks {
	return &KeyLocks{locks: make(map[Key]*keyLock)}
}

// Lock acquires every key, in key order, and returns the release function.
func (l *KeyLocks) Lock(keys ...Key) func() {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, func(a, b Key) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	sorted = slices.Compact(sorted)

	held := make([]*keyLock, len(sorted))
	for i, k := range sorted {
		held[i] = l.acquire(k)
	}
	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			l.release(sorted[i], held[i])
		}
	}
}

func (l *KeyLocks) acquire(k Key) *keyLock {
	l.mu.Lock()
	kl, ok := l.locks[k]
	if !ok {
		kl = &keyLock{}
		l.locks[k] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
	return kl
}

func (l *KeyLocks) release(k Key, kl *keyLock) {
	kl.mu.Unlock()

	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, k)
	}
	l.mu.Unlock()
}

// Len reports how many keys are currently held or awaited.
func (l *KeyLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
