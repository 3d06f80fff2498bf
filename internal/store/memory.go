package store

import (
	"sync"

	"github.com/rjwilson47/AutostopAlarms/internal/alarm"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs tests and
// ephemeral runs where durability isn't wanted.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]alarm.Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]alarm.Record)}
}

func (m *MemoryStore) List() ([]alarm.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]alarm.Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out, nil
}

func (m *MemoryStore) Get(id string) (alarm.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return alarm.Record{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) Upsert(r alarm.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.records[r.ID] = r
	return nil
}

func (m *MemoryStore) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) SetEnabled(id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	r.Enabled = enabled
	m.records[id] = r
	return nil
}
