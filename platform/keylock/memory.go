package keylock

import (
	"context"
	"sync"
)

// Memory is an in-process Locker. It only serialises callers sharing the
// same process.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*memoryEntry
}

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

func NewMemory() *Memory {
	return &Memory{locks: make(map[string]*memoryEntry)}
}

func (m *Memory) Acquire(ctx context.Context, key string) (context.Context, func(), error) {
	if holds(ctx, key) {
		return ctx, noop, nil
	}

	m.mu.Lock()
	entry, ok := m.locks[key]
	if !ok {
		entry = &memoryEntry{ch: make(chan struct{}, 1)}
		m.locks[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(key, entry)
		return ctx, noop, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-entry.ch
			m.unref(key, entry)
		})
	}
	return withHeld(ctx, key), release, nil
}

func (m *Memory) unref(key string, entry *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, key)
	}
}
