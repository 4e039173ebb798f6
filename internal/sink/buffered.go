package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"farebridge/internal/domain"
)

const (
	defaultBufferSize    = 4096
	defaultBatchSize     = 256
	defaultFlushInterval = time.Second
)

// BufferedConfig tunes a Buffered sink.
type BufferedConfig struct {
	Name          string
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Buffered queues records on a bounded channel and writes them in batches
// from a single worker goroutine. When the queue is full the record is
// dropped and counted.
type Buffered struct {
	name    string
	writer  BatchWriter
	logger  *zap.Logger
	buffer  chan domain.MoneyRecord
	flushCh chan chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup

	batchSize     int
	flushInterval time.Duration

	closeOnce sync.Once
	dropped   atomic.Int64
	written   atomic.Int64
	failed    atomic.Int64
}

// NewBuffered starts a worker that writes to w.
func NewBuffered(cfg BufferedConfig, w BatchWriter, logger *zap.Logger) *Buffered {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Buffered{
		name:          cfg.Name,
		writer:        w,
		logger:        logger.With(zap.String("sink", cfg.Name)),
		buffer:        make(chan domain.MoneyRecord, cfg.BufferSize),
		flushCh:       make(chan chan struct{}),
		stopCh:        make(chan struct{}),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Emit enqueues rec without blocking.
func (b *Buffered) Emit(rec domain.MoneyRecord) {
	select {
	case <-b.stopCh:
		b.dropped.Add(1)
		return
	default:
	}
	select {
	case b.buffer <- rec:
	default:
		if b.dropped.Add(1) == 1 {
			b.logger.Warn("record buffer full, dropping records")
		}
	}
}

// Flush blocks until every record queued before the call has been handed to
// the writer, or ctx is done.
func (b *Buffered) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case b.flushCh <- done:
	case <-b.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after a final flush.
func (b *Buffered) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		b.wg.Wait()
	})
	return nil
}

// Name returns the configured writer name.
func (b *Buffered) Name() string { return b.name }

// Dropped returns how many records were discarded because the queue was full.
func (b *Buffered) Dropped() int64 { return b.dropped.Load() }

// Written returns how many records the writer accepted.
func (b *Buffered) Written() int64 { return b.written.Load() }

// Failed returns how many records were lost to writer errors.
func (b *Buffered) Failed() int64 { return b.failed.Load() }

func (b *Buffered) run() {
	defer b.wg.Done()

	batch := make([]domain.MoneyRecord, 0, b.batchSize)
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	drain := func() {
		for {
			select {
			case rec := <-b.buffer:
				batch = append(batch, rec)
			default:
				return
			}
		}
	}
	flush := func() {
		if len(batch) == 0 {
			return
		}
		b.write(batch)
		batch = make([]domain.MoneyRecord, 0, b.batchSize)
	}

	for {
		select {
		case <-b.stopCh:
			// Final flush
			drain()
			flush()
			return

		case done := <-b.flushCh:
			drain()
			flush()
			close(done)

		case rec := <-b.buffer:
			batch = append(batch, rec)
			if len(batch) >= b.batchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

func (b *Buffered) write(batch []domain.MoneyRecord) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.writer.WriteBatch(ctx, batch); err != nil {
		b.failed.Add(int64(len(batch)))
		b.logger.Error("failed to write record batch",
			zap.Error(err),
			zap.Int("batch_size", len(batch)),
		)
		return
	}
	b.written.Add(int64(len(batch)))
	b.logger.Debug("wrote record batch",
		zap.Int("batch_size", len(batch)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
}
