package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"farebridge/internal/domain"
	"farebridge/internal/repository"
	"farebridge/internal/service"
)

// ──────────────────────────────────────────────
// MOCK MONEY RECORD REPOSITORY
// ──────────────────────────────────────────────

// MockMoneyRecordRepository is an in-memory MoneyRecordRepository.
type MockMoneyRecordRepository struct {
	mu      sync.RWMutex
	records []domain.MoneyRecord

	// Counters for verification
	CreateBatchCallCount int32

	// Error injection
	CreateBatchError error
	ListError        error
}

// NewMockMoneyRecordRepository creates a new mock money record repository.
func NewMockMoneyRecordRepository() *MockMoneyRecordRepository {
	return &MockMoneyRecordRepository{}
}

func (m *MockMoneyRecordRepository) EnsureSchema(ctx context.Context) error {
	return nil
}

func (m *MockMoneyRecordRepository) CreateBatch(ctx context.Context, recs []domain.MoneyRecord) error {
	atomic.AddInt32(&m.CreateBatchCallCount, 1)
	if m.CreateBatchError != nil {
		return m.CreateBatchError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recs...)
	return nil
}

func (m *MockMoneyRecordRepository) ListByRider(ctx context.Context, riderID domain.RiderID, limit int) ([]domain.MoneyRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.MoneyRecord, 0)
	for _, rec := range m.records {
		if rec.RiderID == riderID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Iteration != out[j].Iteration {
			return out[i].Iteration < out[j].Iteration
		}
		return out[i].Time < out[j].Time
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every stored record.
func (m *MockMoneyRecordRepository) All() []domain.MoneyRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.MoneyRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Count returns the number of stored records.
func (m *MockMoneyRecordRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// ──────────────────────────────────────────────
// MOCK OBSERVER
// ──────────────────────────────────────────────

// MockObserver counts observer callbacks.
type MockObserver struct {
	mu        sync.Mutex
	outcomes  map[domain.Outcome]int
	anomalies map[service.AnomalyKind]int
	emitted   []domain.MoneyRecord
}

// NewMockObserver creates a new mock observer.
func NewMockObserver() *MockObserver {
	return &MockObserver{
		outcomes:  make(map[domain.Outcome]int),
		anomalies: make(map[service.AnomalyKind]int),
	}
}

func (m *MockObserver) EventHandled(kind domain.EventKind, outcome domain.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *MockObserver) RecordEmitted(rec domain.MoneyRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted = append(m.emitted, rec)
}

func (m *MockObserver) Anomaly(kind service.AnomalyKind, riderID domain.RiderID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies[kind]++
}

// Outcomes returns how many events ended with outcome.
func (m *MockObserver) Outcomes(outcome domain.Outcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[outcome]
}

// Anomalies returns how many anomalies of kind were reported.
func (m *MockObserver) Anomalies(kind service.AnomalyKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anomalies[kind]
}

// Emitted returns every record the observer saw.
func (m *MockObserver) Emitted() []domain.MoneyRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.MoneyRecord, len(m.emitted))
	copy(out, m.emitted)
	return out
}

// Ensure mocks implement interfaces.
var (
	_ repository.MoneyRecordRepository = (*MockMoneyRecordRepository)(nil)
	_ service.Observer                 = (*MockObserver)(nil)
)
