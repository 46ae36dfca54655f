package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

// NewConsumer reads the given topics as one consumer group.
func NewConsumer(brokers []string, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{Reader: reader, Logger: log}
}

// Run hands every event to handler and commits it once handled. Messages that
// fail to decode are logged and committed so they do not block the partition.
// Run returns nil when ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handler func(ctx context.Context, event models.LedgerEvent) error) error {
	c.Logger.Info("KAFKA", "Ledger event consumer started")

	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		var event models.LedgerEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Skipping undecodable message at %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err))
		} else if err := handler(ctx, event); err != nil {
			return fmt.Errorf("handle %s: %w", event.Type, err)
		}

		if err := c.Reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.Reader.Close()
}
