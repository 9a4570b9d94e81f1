package infra

import "sync"

// KeyedMutex serialises work per key. Entries are reference counted and dropped
// once nobody holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (km *KeyedMutex) Lock(key int64) {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[int64]*keyedEntry)
	}
	e, ok := km.locks[key]
	if !ok {
		e = &keyedEntry{}
		km.locks[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
}

func (km *KeyedMutex) Unlock(key int64) {
	km.mu.Lock()
	defer km.mu.Unlock()

	e, ok := km.locks[key]
	if !ok {
		return
	}
	e.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(km.locks, key)
	}
}

func (km *KeyedMutex) size() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}
