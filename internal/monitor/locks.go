package monitor

import "sync"

// targetLocks hands out one mutex per target id. Entries are dropped once
// nobody holds or waits for them.
type targetLocks struct {
	mu    sync.Mutex
	locks map[string]*targetLock
}

type targetLock struct {
	mu   sync.Mutex
	refs int
}

func newTargetLocks() *targetLocks {
	return &targetLocks{locks: make(map[string]*targetLock)}
}

// lock blocks until id is free and returns the matching unlock.
func (l *targetLocks) lock(id string) func() {
	l.mu.Lock()
	tl := l.locks[id]
	if tl == nil {
		tl = &targetLock{}
		l.locks[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()

	return func() {
		tl.mu.Unlock()

		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
