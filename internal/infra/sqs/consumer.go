package sqs

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"go.uber.org/zap"
)

// API is the slice of the SQS client the consumer needs.
type API interface {
	ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *awssqs.ChangeMessageVisibilityInput, optFns ...func(*awssqs.Options)) (*awssqs.ChangeMessageVisibilityOutput, error)
}

type Consumer struct {
	client   API
	queueURL string
	logger   *zap.Logger
}

func NewConsumer(client API, queueURL string, logger *zap.Logger) *Consumer {
	return &Consumer{client: client, queueURL: queueURL, logger: logger}
}

// SQS long polling caps the wait at 20 seconds.
const maxWaitSeconds = 20

func (c *Consumer) Receive(ctx context.Context, wait time.Duration) (*entity.Envelope, error) {
	seconds := int32(wait / time.Second)
	if seconds > maxWaitSeconds {
		seconds = maxWaitSeconds
	}
	if seconds < 0 {
		seconds = 0
	}

	out, err := c.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     seconds,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: receive from %s: %v", entity.ErrQueueTransport, c.queueURL, err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	msg := out.Messages[0]
	return &entity.Envelope{
		ID:      aws.ToString(msg.MessageId),
		Body:    []byte(aws.ToString(msg.Body)),
		Receipt: aws.ToString(msg.ReceiptHandle),
	}, nil
}

func (c *Consumer) Parse(env *entity.Envelope) (*entity.WorkItem, error) {
	return entity.ParseWorkItem(env.Body)
}

func (c *Consumer) Acknowledge(ctx context.Context, env *entity.Envelope) error {
	_, err := c.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(env.Receipt),
	})
	if err != nil {
		return fmt.Errorf("%w: delete message %s: %v", entity.ErrQueueTransport, env.ID, err)
	}
	c.logger.Debug("message deleted", zap.String("message_id", env.ID))
	return nil
}

// Release makes the message visible again right away instead of waiting for
// the queue's visibility timeout.
func (c *Consumer) Release(ctx context.Context, env *entity.Envelope) error {
	_, err := c.client.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(c.queueURL),
		ReceiptHandle:     aws.String(env.Receipt),
		VisibilityTimeout: 0,
	})
	if err != nil {
		return fmt.Errorf("%w: release message %s: %v", entity.ErrQueueTransport, env.ID, err)
	}
	c.logger.Debug("message released", zap.String("message_id", env.ID))
	return nil
}

func (c *Consumer) Close() error {
	return nil
}
