package usecase

import (
	"context"
	"encoding/json"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
	pkgkafka "AgriPulse/pkg/kafka"
)

// KafkaTicksHandler consumes tick messages, persists them to the tick
// store, and refreshes the catalog's current price so pricing requests
// see fresh market data.
type KafkaTicksHandler struct {
	topic   string
	ticks   domrepo.TickStore
	catalog domrepo.Catalog
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, ticks domrepo.TickStore, catalog domrepo.Catalog, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, ticks: ticks, catalog: catalog, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var t models.PriceTick
	if err := json.Unmarshal(b, &t); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if t.Timestamp > 1e11 { // ms
		t.Timestamp = t.Timestamp / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(t.Timestamp, 0)).Seconds())

	start := time.Now()
	if err := h.ticks.Store(ctx, &t); err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	h.metrics.RecordMessageSent("clickhouse", t.ProductID)

	// Price refresh is best-effort; the tick is already durable.
	if h.catalog != nil && t.Price > 0 {
		if err := h.catalog.SetCurrentPrice(ctx, t.ProductID, t.Price, time.Unix(t.Timestamp, 0)); err != nil {
			h.metrics.RecordError("consumer_price_refresh")
		}
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
