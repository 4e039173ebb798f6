package redis

import (
	"context"

	"farebridge/internal/domain"
)

// RecordPublisherInterface defines the interface for publishing settlement records.
type RecordPublisherInterface interface {
	WriteBatch(ctx context.Context, recs []domain.MoneyRecord) error
	Len(ctx context.Context) (int64, error)
}

// Ensure concrete types implement interfaces.
var _ RecordPublisherInterface = (*RecordStream)(nil)
