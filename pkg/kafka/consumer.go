// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Values travel as JSON; consumers decode them through
// JSONHandler.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one record. Offsets are committed only after it
// returns nil.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
}

// fetchBackoff is the pause after a failed fetch before the next attempt.
const fetchBackoff = time.Second

// NewConsumer reads topic as a member of group. An empty group falls back to
// cfg.ConsumerGroup; completer replicas pass a group of their own so each one
// sees every invalidation.
func NewConsumer(cfg config.KafkaConfig, topic, group string, handler MessageHandler) *Consumer {
	if group == "" {
		group = cfg.ConsumerGroup
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     group,
			MinBytes:    1,
			MaxBytes:    1 << 20,
			StartOffset: kafka.LastOffset,
		}),
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", group),
		handler: handler,
	}
}

// Start blocks until ctx is cancelled, which is a clean stop and returns nil.
func (c *Consumer) Start(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consuming")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil:
			c.logger.Info("consumer stopped", "reason", ctx.Err())
			return nil
		case err != nil:
			c.logger.Error("fetch failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(fetchBackoff):
			}
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
	log.Debug("record received", "key", string(msg.Key))

	if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
		log.Error("handler failed, offset left uncommitted", "error", err)
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit failed", "error", err)
	}
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}

// JSONHandler adapts a typed callback to a MessageHandler. Values that do not
// decode are logged and committed so they are not redelivered.
func JSONHandler[T any](fn func(ctx context.Context, msg T) error) MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		msg, err := DecodeJSON[T](value)
		if err != nil {
			slog.Warn("dropping undecodable message", "key", string(key), "error", err)
			return nil
		}
		return fn(ctx, msg)
	}
}
