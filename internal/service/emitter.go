package service

import (
	"sync/atomic"

	"github.com/google/uuid"

	"farebridge/internal/domain"
)

// Emitter accepts settlement records. Implementations must not block.
type Emitter interface {
	Emit(rec domain.MoneyRecord)
}

// RecordStamper assigns ids, the current iteration and the source label to
// records before forwarding them.
type RecordStamper struct {
	next      Emitter
	source    string
	observer  Observer
	iteration atomic.Int64
}

// NewRecordStamper creates a stamper that forwards to next.
func NewRecordStamper(next Emitter, source string, observer Observer) *RecordStamper {
	if observer == nil {
		observer = NopObserver{}
	}
	return &RecordStamper{next: next, source: source, observer: observer}
}

// SetIteration changes the iteration stamped on later records.
func (s *RecordStamper) SetIteration(iteration int) {
	s.iteration.Store(int64(iteration))
}

// Iteration returns the iteration currently being stamped.
func (s *RecordStamper) Iteration() int {
	return int(s.iteration.Load())
}

// Emit stamps and forwards rec.
func (s *RecordStamper) Emit(rec domain.MoneyRecord) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Iteration = s.Iteration()
	if rec.Source == "" {
		rec.Source = s.source
	}
	s.observer.RecordEmitted(rec)
	if s.next != nil {
		s.next.Emit(rec)
	}
}
