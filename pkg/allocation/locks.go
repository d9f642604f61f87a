package allocation

import "sync"

// projectLocks serializes mutations per project so two near-simultaneous
// writes cannot both pass a scope check that only one should have passed.
// Entries are reference counted and removed once idle.
type projectLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newProjectLocks() *projectLocks {
	return &projectLocks{entries: make(map[string]*lockEntry)}
}

func (l *projectLocks) Lock(key string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
