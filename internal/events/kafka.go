package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes triggers keyed by patient id, so one partition
// carries all triggers of a patient in order.
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaPublisher creates a new KafkaPublisher
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// Publish writes one trigger
func (p *KafkaPublisher) Publish(ctx context.Context, trigger Trigger) error {
	value, err := Encode(trigger)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(trigger.UserID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("failed to publish trigger to kafka",
			zap.String("user_id", trigger.UserID),
			zap.String("reason", string(trigger.Reason)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish trigger: %w", err)
	}

	p.logger.Debug("trigger published",
		zap.String("user_id", trigger.UserID),
		zap.String("reason", string(trigger.Reason)),
	)
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads triggers as part of a consumer group
type KafkaConsumer struct {
	reader messageReader
	logger *zap.Logger
}

// NewKafkaConsumer creates a new KafkaConsumer
func NewKafkaConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		}),
		logger: logger,
	}
}

// Run fetches triggers until ctx is cancelled. Every fetched message is committed,
// including ones that fail to decode or to evaluate; failures are logged.
func (c *KafkaConsumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("failed to fetch kafka message", zap.Error(err))
			return fmt.Errorf("failed to fetch trigger: %w", err)
		}

		c.process(ctx, msg, handle)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to commit kafka message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *KafkaConsumer) process(ctx context.Context, msg kafka.Message, handle Handler) {
	trigger, err := Decode(msg.Value)
	if err != nil {
		c.logger.Warn("dropping malformed trigger",
			zap.String("key", string(msg.Key)),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}

	if err := handle(ctx, trigger); err != nil {
		c.logger.Error("trigger handling failed",
			zap.String("user_id", trigger.UserID),
			zap.String("reason", string(trigger.Reason)),
			zap.Error(err),
		)
	}
}

// Close closes the reader
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
