package store

import "sync"

// Locker serializes work per key. Whole-collection operations take the
// global lock, which excludes every keyed holder.
type Locker struct {
	all  sync.RWMutex
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock func.
func (l *Locker) Lock(key string) func() {
	l.all.RLock()

	l.mu.Lock()
	if l.keys == nil {
		l.keys = make(map[string]*keyLock)
	}
	k, ok := l.keys[key]
	if !ok {
		k = &keyLock{}
		l.keys[key] = k
	}
	k.refs++
	l.mu.Unlock()

	k.mu.Lock()
	return func() {
		k.mu.Unlock()

		l.mu.Lock()
		k.refs--
		if k.refs == 0 {
			delete(l.keys, key)
		}
		l.mu.Unlock()

		l.all.RUnlock()
	}
}

// LockAll blocks until no key is held.
func (l *Locker) LockAll() func() {
	l.all.Lock()
	return l.all.Unlock
}
