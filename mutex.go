package httpcache

import "sync"

// keyedMutex is a reference-counted per-key lock table (spec §4.9, §9): the
// entry for a key exists iff its waiter count is positive. A naive global
// map of locks risks unbounded growth, so entries are created on first
// acquisition and removed when the last waiter releases.
//
// This has no suitable third-party replacement in the retrieval pack: the
// closest candidate, golang.org/x/sync/singleflight, deduplicates identical
// concurrent calls rather than providing general mutual exclusion across a
// whole critical section keyed by URI with an explicit waiter count, which
// is what spec §4.9's data model specifically requires — so this stays a
// small stdlib primitive.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu      sync.Mutex
	waiters int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

// lease is a scoped hold on a single key, released exactly once via
// Release.
type lease struct {
	km      *keyedMutex
	key     string
	entry   *lockEntry
	release sync.Once
}

// Acquire blocks until the exclusive lock for key is held and returns a
// lease that must be released by the caller.
func (km *keyedMutex) Acquire(key string) *lease {
	km.mu.Lock()
	e, ok := km.entries[key]
	if !ok {
		e = &lockEntry{}
		km.entries[key] = e
	}
	e.waiters++
	km.mu.Unlock()

	e.mu.Lock()

	return &lease{km: km, key: key, entry: e}
}

// Release unlocks the key and, if no other goroutine is waiting on it,
// removes the table entry.
func (l *lease) Release() {
	l.release.Do(func() {
		km, key, e := l.km, l.key, l.entry
		e.mu.Unlock()

		km.mu.Lock()
		e.waiters--
		if e.waiters <= 0 {
			delete(km.entries, key)
		}
		km.mu.Unlock()
	})
}
