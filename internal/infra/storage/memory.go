package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

type object struct {
	data        []byte
	contentType string
}

// Memory is an in-process ImageStore for the CLI and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]object
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]object)}
}

func (m *Memory) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	buf := append([]byte(nil), data...)
	m.mu.Lock()
	m.objects[key] = object{data: buf, contentType: contentType}
	m.mu.Unlock()
	return "mem://" + key, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	o, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", reading.ErrImageNotFound, key)
	}
	return append([]byte(nil), o.data...), o.contentType, nil
}

// Delete is idempotent like S3 DeleteObject.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Len jumlah object, dipakai di test
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
