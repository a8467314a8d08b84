package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// Memory is an in-process Store backed by a mutex-guarded map. Expired
// entries are dropped lazily on Get and swept by a background janitor.
type Memory[T any] struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry[T]
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewMemory creates an in-memory session store with the given TTL.
func NewMemory[T any](ttl time.Duration) *Memory[T] {
	m := &Memory[T]{
		entries: make(map[int64]memoryEntry[T]),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory[T]) Get(_ context.Context, userID int64) (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[userID]
	if !ok {
		var zero T
		return zero, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, userID)
		var zero T
		return zero, false, nil
	}
	return entry.value, true, nil
}

func (m *Memory[T]) Put(_ context.Context, userID int64, value T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[userID] = memoryEntry[T]{
		value:     value,
		expiresAt: time.Now().Add(m.ttl),
	}
	return nil
}

func (m *Memory[T]) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, userID)
	return nil
}

// Close stops the janitor goroutine.
func (m *Memory[T]) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Memory[T]) sweep() {
	interval := m.ttl
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for id, entry := range m.entries {
				if now.After(entry.expiresAt) {
					delete(m.entries, id)
				}
			}
			m.mu.Unlock()
		}
	}
}
