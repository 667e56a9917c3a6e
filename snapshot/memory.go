package snapshot

import (
	"context"
	"sync"
)

type Memory struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snap == nil {
		return nil, ErrNotFound
	}

	return m.snap.Clone(), nil
}

func (m *Memory) Save(_ context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = s.Clone()

	return nil
}

func (m *Memory) Close() error {
	return nil
}
