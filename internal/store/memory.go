package store

import (
	"context"
	"sync"

	"github.com/classmark/classmark/internal/registry"
)

// Memory is an in-memory student store, used by tests and ephemeral setups.
type Memory struct {
	mu      sync.RWMutex
	records map[string]registry.Student
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]registry.Student)}
}

func (m *Memory) Path() string {
	return ""
}

func (m *Memory) Get(ctx context.Context, rollNo string) (*registry.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.records[rollNo]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) Put(ctx context.Context, s *registry.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[s.RollNo] = *s
	return nil
}

func (m *Memory) Delete(ctx context.Context, rollNo string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rollNo]; !ok {
		return false, nil
	}
	delete(m.records, rollNo)
	return true, nil
}

func (m *Memory) List(ctx context.Context) ([]registry.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]registry.Student, 0, len(m.records))
	for _, s := range m.records {
		out = append(out, s)
	}
	return out, nil
}

// MemorySamples is an in-memory sample store for tests.
type MemorySamples struct {
	mu      sync.RWMutex
	samples map[string][][]byte
}

func NewMemorySamples() *MemorySamples {
	return &MemorySamples{samples: make(map[string][][]byte)}
}

func (m *MemorySamples) Save(ctx context.Context, rollNo string, image []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[rollNo] = append(m.samples[rollNo], image)
	return nil
}

func (m *MemorySamples) ListByRoll(ctx context.Context, rollNo string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.samples[rollNo]))
	copy(out, m.samples[rollNo])
	return out, nil
}

func (m *MemorySamples) All(ctx context.Context) (map[string][][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][][]byte, len(m.samples))
	for roll, imgs := range m.samples {
		cp := make([][]byte, len(imgs))
		copy(cp, imgs)
		out[roll] = cp
	}
	return out, nil
}

func (m *MemorySamples) DeleteByRoll(ctx context.Context, rollNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.samples, rollNo)
	return nil
}
