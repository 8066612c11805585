package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/interfaces"
	"github.com/ternarybob/probo/internal/models"
)

// SQSQueue adapts AWS SQS to the queue interface.
type SQSQueue struct {
	client            *sqs.Client
	queueURL          string
	pollWaitSeconds   int32
	visibilitySeconds int32
	logger            arbor.ILogger
}

func NewSQSQueue(ctx context.Context, cfg common.QueueConfig, logger arbor.ILogger) (*SQSQueue, error) {
	if cfg.SQSQueueURL == "" {
		return nil, errors.New("SQS queue URL is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	pollWait := int32(cfg.PollWaitSeconds)
	if pollWait <= 0 {
		pollWait = 20
	}
	visibility := int32(cfg.VisibilitySeconds)
	if visibility <= 0 {
		visibility = 900
	}

	logger.Debug().
		Str("queue_url", cfg.SQSQueueURL).
		Str("region", awsCfg.Region).
		Msg("SQS queue initialized")

	return &SQSQueue{
		client:            sqs.NewFromConfig(awsCfg),
		queueURL:          cfg.SQSQueueURL,
		pollWaitSeconds:   pollWait,
		visibilitySeconds: visibility,
		logger:            logger,
	}, nil
}

func (q *SQSQueue) Enqueue(ctx context.Context, msg *models.JobQueueMessage) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send SQS message: %w", err)
	}

	q.logger.Debug().
		Str("job_id", msg.JobID).
		Msg("Message enqueued to SQS")
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context) (*models.JobQueueMessage, func() error, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     q.pollWaitSeconds,
		VisibilityTimeout:   q.visibilitySeconds,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to receive SQS message: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil, interfaces.ErrNoMessage
	}

	raw := out.Messages[0]
	var msg models.JobQueueMessage
	if err := json.Unmarshal([]byte(aws.ToString(raw.Body)), &msg); err != nil {
		// Malformed payloads are acknowledged so they do not loop.
		q.ack(aws.ToString(raw.ReceiptHandle))
		return nil, nil, fmt.Errorf("failed to decode SQS message: %w", err)
	}

	receipt := aws.ToString(raw.ReceiptHandle)
	deleteFn := func() error {
		return q.ack(receipt)
	}
	return &msg, deleteFn, nil
}

func (q *SQSQueue) ack(receiptHandle string) error {
	_, err := q.client.DeleteMessage(context.Background(), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete SQS message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Length(ctx context.Context) (int, error) {
	out, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(q.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read SQS attributes: %w", err)
	}

	count, err := strconv.Atoi(out.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)])
	if err != nil {
		return 0, fmt.Errorf("failed to parse queue depth: %w", err)
	}
	return count, nil
}

func (q *SQSQueue) Close() error {
	return nil
}
