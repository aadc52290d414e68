package store

import (
	"context"
	"errors"
	"sync"
)

type memLocal struct {
	mu      sync.Mutex
	data    map[string][]byte
	failSet error
}

func newMemLocal() *memLocal {
	return &memLocal{data: make(map[string][]byte)}
}

func (m *memLocal) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memLocal) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memLocal) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

type memCloud struct {
	mu      sync.Mutex
	data    map[string][]byte
	writes  int
	failGet bool
	devices int
}

func newMemCloud() *memCloud {
	return &memCloud{data: make(map[string][]byte)}
}

func (m *memCloud) GetAll(context.Context) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet {
		return nil, errors.New("cloud unreachable")
	}
	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (m *memCloud) SetAll(_ context.Context, values map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.data[k] = append([]byte(nil), v...)
	}
	m.writes++
	return nil
}

func (m *memCloud) LiveDevices(context.Context) (int, error) {
	return m.devices, nil
}
