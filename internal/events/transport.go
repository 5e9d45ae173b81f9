package events

import (
	"context"
	"fmt"

	"github.com/vcscsvcscs/medwatch/internal/config"
	"go.uber.org/zap"
)

// Open builds the publisher and consumer for the configured transport.
// The consumer is nil when no transport is configured.
func Open(ctx context.Context, cfg config.TriggerConfig, logger *zap.Logger) (Publisher, Consumer, error) {
	switch cfg.Transport {
	case "", "none":
		return NopPublisher{}, nil, nil
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger),
			NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logger),
			nil
	case "sqs":
		client, err := NewSQSClient(ctx, cfg.SQS.Region, cfg.SQS.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return NewSQSPublisher(client, cfg.SQS.QueueURL, logger),
			NewSQSConsumer(client, cfg.SQS.QueueURL, cfg.SQS.WaitTimeSeconds, logger),
			nil
	default:
		return nil, nil, fmt.Errorf("unknown trigger transport %q", cfg.Transport)
	}
}
