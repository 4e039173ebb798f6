package sink

import (
	"context"
	"sync"

	"farebridge/internal/domain"
)

// Memory keeps emitted records in process. With a positive capacity only the
// most recent records are kept.
type Memory struct {
	mu       sync.RWMutex
	records  []domain.MoneyRecord
	capacity int
}

// NewMemory creates a Memory sink. capacity <= 0 means unbounded.
func NewMemory(capacity int) *Memory {
	return &Memory{capacity: capacity}
}

func (m *Memory) Emit(rec domain.MoneyRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	// Compact only once the slice is twice the capacity.
	if m.capacity > 0 && len(m.records) >= 2*m.capacity {
		m.records = append(m.records[:0:0], m.view()...)
	}
}

// view returns the retained records. Callers hold mu.
func (m *Memory) view() []domain.MoneyRecord {
	if m.capacity > 0 && len(m.records) > m.capacity {
		return m.records[len(m.records)-m.capacity:]
	}
	return m.records
}

// List returns a copy of all records in emission order.
func (m *Memory) List() []domain.MoneyRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v := m.view()
	out := make([]domain.MoneyRecord, len(v))
	copy(out, v)
	return out
}

// ListByRider returns the rider's records in emission order, at most limit
// of them when limit > 0. It never fails.
func (m *Memory) ListByRider(_ context.Context, riderID domain.RiderID, limit int) ([]domain.MoneyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.MoneyRecord, 0)
	for _, rec := range m.view() {
		if rec.RiderID != riderID {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.view())
}

// Reset drops all stored records.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
}
