package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"farebridge/internal/domain"
)

// DefaultStreamMaxLen caps the stream when no length is configured.
const DefaultStreamMaxLen = 100_000

// RecordStream publishes settlement records to a Redis stream.
type RecordStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRecordStream creates a new RecordStream. Entries beyond maxLen are
// trimmed approximately.
func NewRecordStream(client *redis.Client, stream string, maxLen int64) *RecordStream {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &RecordStream{client: client, stream: stream, maxLen: maxLen}
}

// WriteBatch appends recs to the stream in one pipeline.
func (s *RecordStream) WriteBatch(ctx context.Context, recs []domain.MoneyRecord) error {
	if len(recs) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, rec := range recs {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Approx: true,
			ID:     "*",
			Values: streamValues(rec),
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("xadd %d records to %s: %w", len(recs), s.stream, err)
	}
	return nil
}

// Len returns the current stream length.
func (s *RecordStream) Len(ctx context.Context) (int64, error) {
	return s.client.XLen(ctx, s.stream).Result()
}

func streamValues(rec domain.MoneyRecord) map[string]any {
	return map[string]any{
		"id":        rec.ID,
		"iteration": strconv.Itoa(rec.Iteration),
		"person_id": string(rec.RiderID),
		"time":      strconv.FormatFloat(rec.Time, 'f', -1, 64),
		"amount":    strconv.FormatFloat(domain.RoundCents(rec.Amount), 'f', 2, 64),
		"tag":       string(rec.Tag),
		"source":    rec.Source,
		"trip_type": string(rec.TripType),
	}
}
