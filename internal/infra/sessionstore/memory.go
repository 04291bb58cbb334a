package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bryanwahyu/palm-oracle/internal/domain/session"
)

// Memory keeps sessions in process. Values are copied in and out so callers
// never share a *Session, same as with Redis.
type Memory struct {
	mu   sync.RWMutex
	data map[session.ID][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[session.ID][]byte)}
}

func (m *Memory) Get(_ context.Context, id session.ID) (*session.Session, error) {
	m.mu.RLock()
	raw, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, session.ErrNotFound
	}
	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (m *Memory) Save(_ context.Context, s *session.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.mu.Lock()
	m.data[s.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Update(_ context.Context, id session.ID, fn func(*session.Session) error) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if err := fn(&s); err != nil {
		return nil, err
	}
	out, err := json.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	m.data[id] = out
	return &s, nil
}

func (m *Memory) Delete(_ context.Context, id session.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return session.ErrNotFound
	}
	delete(m.data, id)
	return nil
}
