package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-attractions/internal/config"
	"ms-attractions/internal/logger"
	"ms-attractions/internal/models"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes ledger events. Inventory and reservation events share one
// topic, engagement events go to another. Messages are keyed by attraction id.
type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// TopicFor picks the topic an event type is published to.
func (p *Producer) TopicFor(eventType string) string {
	if strings.HasPrefix(eventType, "engagement.") {
		return p.Topics.Engagement
	}
	return p.Topics.Inventory
}

// Publish implements events.Publisher.
func (p *Producer) Publish(ctx context.Context, event models.LedgerEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := p.TopicFor(event.Type)
	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.Key()),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, topic, err)
	}

	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("%s %s", event.Type, event.AttractionID))
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
