// Package sink moves settlement records out of the core. Emit never blocks
// and never fails; anything that does I/O sits behind a Buffered worker.
package sink

import (
	"context"
	"errors"

	"farebridge/internal/domain"
)

// Sink receives money records.
type Sink interface {
	Emit(rec domain.MoneyRecord)
}

// BatchWriter persists a batch of records.
type BatchWriter interface {
	WriteBatch(ctx context.Context, recs []domain.MoneyRecord) error
}

// BatchWriterFunc adapts a function to BatchWriter.
type BatchWriterFunc func(ctx context.Context, recs []domain.MoneyRecord) error

func (f BatchWriterFunc) WriteBatch(ctx context.Context, recs []domain.MoneyRecord) error {
	return f(ctx, recs)
}

type flusher interface {
	Flush(ctx context.Context) error
}

// Multi fans a record out to every sink in order.
type Multi []Sink

// Emit forwards rec to each sink.
func (m Multi) Emit(rec domain.MoneyRecord) {
	for _, s := range m {
		s.Emit(rec)
	}
}

// Flush flushes every sink that buffers.
func (m Multi) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if f, ok := s.(flusher); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
