package fontstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. Install records the source path without
// copying it.
type MemoryStore struct {
	mu            sync.Mutex
	entries       map[string]string
	notifications int

	// FailInstall, when set, is consulted before every install.
	FailInstall func(key string) error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Preinstall registers key as if it had been installed outside subforge.
func (m *MemoryStore) Preinstall(key, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = path
}

func (m *MemoryStore) Installed(context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{}, len(m.entries))
	for key := range m.entries {
		out[strings.ToLower(key)] = struct{}{}
	}
	return out, nil
}

func (m *MemoryStore) Install(_ context.Context, src, key string) (Entry, error) {
	if m.FailInstall != nil {
		if err := m.FailInstall(key); err != nil {
			return Entry{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = src
	return Entry{Key: key, Path: src}, nil
}

func (m *MemoryStore) Remove(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, entry.Key)
	return nil
}

func (m *MemoryStore) Notify(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications++
	return nil
}

// Keys returns the registered keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Notifications returns how many times Notify was called.
func (m *MemoryStore) Notifications() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifications
}
