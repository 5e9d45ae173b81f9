package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// NewSQSClient creates an SQS client from the default AWS credential chain
func NewSQSClient(ctx context.Context, region, endpoint string) (*sqs.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	opts := sqs.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}

	return sqs.New(opts), nil
}

// SQSPublisher sends triggers to an SQS queue. On FIFO queues the patient id
// is the message group, which keeps a patient's triggers ordered.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
	logger   *zap.Logger
}

// NewSQSPublisher creates a new SQSPublisher
func NewSQSPublisher(client sqsAPI, queueURL string, logger *zap.Logger) *SQSPublisher {
	return &SQSPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Publish sends one trigger
func (p *SQSPublisher) Publish(ctx context.Context, trigger Trigger) error {
	body, err := Encode(trigger)
	if err != nil {
		return err
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if isFIFO(p.queueURL) {
		input.MessageGroupId = aws.String(trigger.UserID)
		input.MessageDeduplicationId = aws.String(fmt.Sprintf("%s-%d", trigger.UserID, trigger.OccurredAt.UnixNano()))
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		p.logger.Error("failed to send trigger to sqs",
			zap.String("user_id", trigger.UserID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish trigger: %w", err)
	}

	return nil
}

// Close is a no-op; the SQS client holds no connections of its own
func (p *SQSPublisher) Close() error { return nil }

// SQSConsumer long-polls an SQS queue for triggers
type SQSConsumer struct {
	client          sqsAPI
	queueURL        string
	waitTimeSeconds int32
	logger          *zap.Logger
}

// NewSQSConsumer creates a new SQSConsumer
func NewSQSConsumer(client sqsAPI, queueURL string, waitTimeSeconds int32, logger *zap.Logger) *SQSConsumer {
	return &SQSConsumer{
		client:          client,
		queueURL:        queueURL,
		waitTimeSeconds: waitTimeSeconds,
		logger:          logger,
	}
}

// Run receives triggers until ctx is cancelled. Messages are deleted once handled,
// whether or not the handler succeeded.
func (c *SQSConsumer) Run(ctx context.Context, handle Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		resp, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     c.waitTimeSeconds,
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("failed to receive sqs messages", zap.Error(err))
			return fmt.Errorf("failed to receive triggers: %w", err)
		}

		for _, msg := range resp.Messages {
			c.process(ctx, msg, handle)
		}
	}
}

func (c *SQSConsumer) process(ctx context.Context, msg types.Message, handle Handler) {
	trigger, err := Decode([]byte(aws.ToString(msg.Body)))
	if err != nil {
		c.logger.Warn("dropping malformed trigger",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.Error(err),
		)
	} else if err := handle(ctx, trigger); err != nil {
		c.logger.Error("trigger handling failed",
			zap.String("user_id", trigger.UserID),
			zap.String("reason", string(trigger.Reason)),
			zap.Error(err),
		)
	}

	_, err = c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.logger.Error("failed to delete sqs message",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.Error(err),
		)
	}
}

// Close is a no-op
func (c *SQSConsumer) Close() error { return nil }

func isFIFO(queueURL string) bool {
	return strings.HasSuffix(queueURL, ".fifo")
}
