package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"farebridge/internal/config"
	"farebridge/internal/report"
	"farebridge/internal/service"
	"farebridge/internal/sink"
)

// PipelineDeps are the optional downstream writers. Nil writers are skipped.
type PipelineDeps struct {
	Postgres sink.BatchWriter
	Stream   sink.BatchWriter
	Logger   *zap.Logger
}

// Pipeline is the record path from the settlement core to every writer:
// classifier, then fan-out to memory and buffered writers.
type Pipeline struct {
	Audit  *service.TransferAudit
	Memory *sink.Memory
	Head   sink.Sink

	fanout   sink.Multi
	buffered []*sink.Buffered
	closers  []io.Closer
}

// NewPipeline builds the record pipeline from cfg and deps.
func NewPipeline(cfg config.SinkConfig, deps PipelineDeps) (*Pipeline, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		Audit:  service.NewTransferAudit(),
		Memory: sink.NewMemory(cfg.MemoryCapacity),
	}
	p.fanout = sink.Multi{p.Memory}

	add := func(name string, w sink.BatchWriter) {
		b := sink.NewBuffered(sink.BufferedConfig{
			Name:          name,
			BufferSize:    cfg.BufferSize,
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.FlushInterval,
		}, w, logger)
		p.buffered = append(p.buffered, b)
		p.fanout = append(p.fanout, b)
	}

	if deps.Postgres != nil {
		add("postgres", deps.Postgres)
	}
	if deps.Stream != nil {
		add("redis-stream", deps.Stream)
	}
	if cfg.CompassLogPath != "" {
		compass, err := report.OpenCompassLog(cfg.CompassLogPath)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("open compass log: %w", err)
		}
		p.closers = append(p.closers, compass)
		add("compass-log", compass)
	}

	p.Head = sink.NewClassifier(p.Audit, p.fanout)
	return p, nil
}

// Flush drains every buffered writer.
func (p *Pipeline) Flush(ctx context.Context) error {
	return p.fanout.Flush(ctx)
}

// Dropped returns records discarded by full buffers, per writer.
func (p *Pipeline) Dropped() map[string]int64 {
	out := make(map[string]int64, len(p.buffered))
	for _, b := range p.buffered {
		out[b.Name()] = b.Dropped()
	}
	return out
}

// Close stops the workers after a final flush and closes files.
func (p *Pipeline) Close() error {
	var errs []error
	for _, b := range p.buffered {
		errs = append(errs, b.Close())
	}
	for _, c := range p.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
