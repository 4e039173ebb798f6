// Package report writes the compass-card log, one CSV row per settled fare
// or refund.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"farebridge/internal/domain"
)

var compassHeader = []string{"iteration", "person_id", "trip_end_time", "trip_type", "fare_paid"}

// CompassLog appends records to a CSV stream.
type CompassLog struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// NewCompassLog writes the header to w and returns a log on top of it.
func NewCompassLog(w io.Writer) (*CompassLog, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(compassHeader); err != nil {
		return nil, fmt.Errorf("write compass header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("write compass header: %w", err)
	}
	l := &CompassLog{w: cw}
	if c, ok := w.(io.Closer); ok {
		l.closer = c
	}
	return l, nil
}

// OpenCompassLog creates (or truncates) the file at path.
func OpenCompassLog(path string) (*CompassLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create compass log dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create compass log: %w", err)
	}
	l, err := NewCompassLog(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// WriteBatch appends one row per record and flushes.
func (l *CompassLog) WriteBatch(_ context.Context, recs []domain.MoneyRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, rec := range recs {
		if err := l.w.Write(compassRow(rec)); err != nil {
			return fmt.Errorf("write compass row: %w", err)
		}
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the underlying file, if any.
func (l *CompassLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.w.Flush()
	err := l.w.Error()
	if l.closer != nil {
		if cerr := l.closer.Close(); err == nil {
			err = cerr
		}
		l.closer = nil
	}
	return err
}

func compassRow(rec domain.MoneyRecord) []string {
	tripType := rec.TripType
	if tripType == "" {
		tripType = domain.TripTypeStandard
		if rec.Tag == domain.TagRefund {
			tripType = domain.TripTypeFirstMile
		}
	}
	paid := domain.RoundCents(-rec.Amount)
	if paid == 0 {
		paid = 0 // no "-0.00"
	}
	return []string{
		strconv.Itoa(rec.Iteration),
		string(rec.RiderID),
		strconv.FormatFloat(rec.Time, 'f', 2, 64),
		string(tripType),
		strconv.FormatFloat(paid, 'f', 2, 64),
	}
}
