package repository

import (
	"context"

	"farebridge/internal/domain"
)

// MoneyRecordRepository defines the persistence operations for settlement records.
type MoneyRecordRepository interface {
	// EnsureSchema creates the records table if it does not exist.
	EnsureSchema(ctx context.Context) error

	// CreateBatch persists records in a single transaction.
	CreateBatch(ctx context.Context, recs []domain.MoneyRecord) error

	// ListByRider returns a rider's records ordered by iteration and time.
	// A limit <= 0 returns all of them.
	ListByRider(ctx context.Context, riderID domain.RiderID, limit int) ([]domain.MoneyRecord, error)
}
