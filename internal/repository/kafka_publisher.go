package repository

import (
	"context"

	"AgriPulse/internal/domain/models"
	"AgriPulse/internal/domain/repository"
	pkgkafka "AgriPulse/pkg/kafka"
)

// KafkaPublisher emits domain events to Kafka. Ticks are keyed by
// product id so per-product ordering survives partitioning.
type KafkaPublisher struct {
	producer  *pkgkafka.Producer
	tickTopic string
	recTopic  string
	fcTopic   string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, tickTopic, recTopic, fcTopic string) repository.Publisher {
	return &KafkaPublisher{
		producer:  producer,
		tickTopic: tickTopic,
		recTopic:  recTopic,
		fcTopic:   fcTopic,
	}
}

func (p *KafkaPublisher) PublishTick(ctx context.Context, t *models.PriceTick) error {
	return p.producer.Publish(ctx, p.tickTopic, []byte(t.ProductID), t)
}

func (p *KafkaPublisher) PublishTickBatch(ctx context.Context, ticks []*models.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{Key: []byte(t.ProductID), Value: t}
	}
	return p.producer.PublishBatch(ctx, p.tickTopic, msgs)
}

func (p *KafkaPublisher) PublishRecommendations(ctx context.Context, recs []models.PriceRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, r := range recs {
		msgs[i] = pkgkafka.Message{Key: []byte(r.ProductID), Value: r}
	}
	return p.producer.PublishBatch(ctx, p.recTopic, msgs)
}

func (p *KafkaPublisher) PublishForecasts(ctx context.Context, fcs []models.DemandForecast) error {
	if len(fcs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(fcs))
	for i, f := range fcs {
		msgs[i] = pkgkafka.Message{Key: []byte(f.ProductID), Value: f}
	}
	return p.producer.PublishBatch(ctx, p.fcTopic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
