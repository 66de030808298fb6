package local

import (
	"sync"
)

// MemoryBackend keeps everything in process memory. A positive quota
// bounds the total size of keys and values.
type MemoryBackend struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota int64
}

func NewMemoryBackend(quota int64) *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte), quota: quota}
}

func (m *MemoryBackend) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryBackend) Set(key string, value []byte) error {
	return m.SetMany(map[string][]byte{key: value})
}

func (m *MemoryBackend) SetMany(values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.quota > 0 {
		sizes := make(map[string]int, len(m.data))
		for k, v := range m.data {
			sizes[k] = len(v)
		}
		if projectedSize(sizes, values) > m.quota {
			return ErrQuotaExceeded
		}
	}
	for k, v := range values {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryBackend) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
