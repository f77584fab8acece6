package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// Producer writes JSON values to one topic. The writer itself makes a single
// attempt; Publish retries through resilience.Retry.
type Producer struct {
	writer *kafka.Writer
	retry  resilience.RetryConfig
	logger *slog.Logger
}

var publishRetry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            1,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		retry:  publishRetry,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish encodes value as JSON and writes it under key. Events for one table
// share a key and therefore a partition, which keeps them ordered.
func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %T: %w", value, err)
	}

	write := func() error {
		return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data})
	}
	if err := resilience.Retry(ctx, "kafka-publish", p.retry, write); err != nil {
		p.logger.Error("publish failed", "key", key, "error", err)
		return fmt.Errorf("publishing %s: %w", key, err)
	}
	p.logger.Debug("published", "key", key, "bytes", len(data))
	return nil
}

// Close flushes buffered messages.
func (p *Producer) Close() error {
	return p.writer.Close()
}
