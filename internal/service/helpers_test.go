package service

import (
	"math"
	"sync"

	"farebridge/internal/domain"
)

// recordingEmitter keeps every emitted record.
type recordingEmitter struct {
	mu   sync.Mutex
	recs []domain.MoneyRecord
}

func (e *recordingEmitter) Emit(rec domain.MoneyRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recs = append(e.recs, rec)
}

func (e *recordingEmitter) records() []domain.MoneyRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.MoneyRecord, len(e.recs))
	copy(out, e.recs)
	return out
}

// countingObserver counts anomalies by kind.
type countingObserver struct {
	mu        sync.Mutex
	anomalies map[AnomalyKind]int
	handled   map[domain.Outcome]int
	emitted   int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		anomalies: make(map[AnomalyKind]int),
		handled:   make(map[domain.Outcome]int),
	}
}

func (o *countingObserver) EventHandled(_ domain.EventKind, outcome domain.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handled[outcome]++
}

func (o *countingObserver) RecordEmitted(domain.MoneyRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emitted++
}

func (o *countingObserver) Anomaly(kind AnomalyKind, _ domain.RiderID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.anomalies[kind]++
}

func (o *countingObserver) anomaly(kind AnomalyKind) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.anomalies[kind]
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
