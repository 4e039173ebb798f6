package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"farebridge/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS money_records (
		id           UUID PRIMARY KEY,
		iteration    INTEGER NOT NULL,
		person_id    TEXT NOT NULL,
		event_time   DOUBLE PRECISION NOT NULL,
		amount       NUMERIC(12,2) NOT NULL,
		amount_exact DOUBLE PRECISION NOT NULL,
		tag          TEXT NOT NULL,
		source       TEXT NOT NULL,
		trip_type    TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS money_records_person_idx
		ON money_records (person_id, iteration, event_time);
`

// MoneyRecordRepository is a PostgreSQL implementation of repository.MoneyRecordRepository.
type MoneyRecordRepository struct {
	db *sql.DB
	q  Querier
}

// NewMoneyRecordRepository creates a new PostgreSQL money record repository.
func NewMoneyRecordRepository(db *sql.DB) *MoneyRecordRepository {
	return &MoneyRecordRepository{db: db, q: db}
}

// EnsureSchema creates the money_records table and its index.
func (r *MoneyRecordRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure money_records schema: %w", err)
	}
	return nil
}

// CreateBatch copies recs into money_records inside one transaction.
func (r *MoneyRecordRepository) CreateBatch(ctx context.Context, recs []domain.MoneyRecord) (err error) {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("money_records",
		"id", "iteration", "person_id", "event_time", "amount", "amount_exact", "tag", "source", "trip_type",
	))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for _, rec := range recs {
		if _, err = stmt.ExecContext(ctx,
			rec.ID,
			rec.Iteration,
			string(rec.RiderID),
			rec.Time,
			domain.RoundCents(rec.Amount),
			rec.Amount,
			string(rec.Tag),
			rec.Source,
			string(rec.TripType),
		); err != nil {
			stmt.Close()
			return fmt.Errorf("copy record %s: %w", rec.ID, err)
		}
	}

	if _, err = stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("finish copy: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListByRider returns a rider's records ordered by iteration and time.
func (r *MoneyRecordRepository) ListByRider(ctx context.Context, riderID domain.RiderID, limit int) ([]domain.MoneyRecord, error) {
	query := `
		SELECT id, iteration, person_id, event_time, amount_exact, tag, source, trip_type
		FROM money_records
		WHERE person_id = $1
		ORDER BY iteration, event_time, created_at
	`
	args := []any{string(riderID)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := make([]domain.MoneyRecord, 0)
	for rows.Next() {
		var (
			rec      domain.MoneyRecord
			rider    string
			tag      string
			tripType string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Iteration,
			&rider,
			&rec.Time,
			&rec.Amount,
			&tag,
			&rec.Source,
			&tripType,
		); err != nil {
			return nil, err
		}
		rec.RiderID = domain.RiderID(rider)
		rec.Tag = domain.MoneyTag(tag)
		rec.TripType = domain.TripType(tripType)
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}
