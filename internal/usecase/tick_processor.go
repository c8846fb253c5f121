package usecase

import (
	"context"
	"fmt"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
)

// TickProcessor routes feed ticks to the configured backend: "kafka"
// publishes for the consumer group to persist, "clickhouse" writes
// directly.
type TickProcessor struct {
	pub     domrepo.Publisher
	store   domrepo.TickStore
	metrics domrepo.Metrics
	backend string
}

func NewTickProcessor(pub domrepo.Publisher, store domrepo.TickStore, metrics domrepo.Metrics, backend string) *TickProcessor {
	return &TickProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Process routes a single tick.
func (p *TickProcessor) Process(ctx context.Context, t *models.PriceTick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishTick(ctx, t)
	case "clickhouse":
		err = p.store.Store(ctx, t)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_tick")
		return fmt.Errorf("process tick: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, t.ProductID)
	p.metrics.RecordLatency("process_tick", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes a batch of ticks.
func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishTickBatch(ctx, ticks)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, ticks)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_tick_batch")
		return fmt.Errorf("process tick batch: %w", err)
	}

	for _, t := range ticks {
		p.metrics.RecordMessageSent(p.backend, t.ProductID)
	}
	p.metrics.RecordLatency("process_tick_batch", time.Since(start).Seconds())
	return nil
}

// Close releases underlying resources.
func (p *TickProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
