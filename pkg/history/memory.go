package history

import (
	"sort"
	"strings"
	"sync"
)

type memoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemory() *memoryBackend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (m *memoryBackend) get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memoryBackend) putAll(kvs map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range kvs {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *memoryBackend) deleteAll(keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryBackend) scan(prefix string, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = append([]byte(nil), m.data[k]...)
	}
	m.mu.RUnlock()

	for i, k := range keys {
		if err := fn(k, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryBackend) close() error { return nil }
