package repository

import (
	"context"
	"time"

	"ThetaHarvest/internal/domain/models"
	pkgkafka "ThetaHarvest/pkg/kafka"
	"ThetaHarvest/pkg/logger"
)

// scanEvent is the wire shape pushed to the event topic after each scan: the
// regime roll-up plus the scored tickers, without the per-ticker historical
// series (consumers that want history read the store).
type scanEvent struct {
	ScannedAt string                 `json:"scanned_at"`
	Regime    *models.RegimeSummary  `json:"regime"`
	Tickers   []models.ScoringResult `json:"tickers"`
}

// KafkaScanPublisher implements repository.ScanPublisher on a Kafka topic.
type KafkaScanPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	log      *logger.Logger
}

func NewKafkaScanPublisher(producer *pkgkafka.Producer, topic string, log *logger.Logger) *KafkaScanPublisher {
	return &KafkaScanPublisher{producer: producer, topic: topic, log: log}
}

func (p *KafkaScanPublisher) PublishScan(ctx context.Context, res *models.ScanResult) error {
	event := scanEvent{
		ScannedAt: res.ScannedAt.UTC().Format(time.RFC3339),
		Regime:    res.Regime,
		Tickers:   res.Tickers,
	}
	key := []byte(res.ScannedAt.UTC().Format("2006-01-02"))
	if err := p.producer.Publish(ctx, p.topic, key, event); err != nil {
		return err
	}
	p.log.Debug("scan event published",
		logger.String("topic", p.topic),
		logger.Int("tickers", len(res.Tickers)))
	return nil
}

func (p *KafkaScanPublisher) Close() error {
	return p.producer.Close()
}
