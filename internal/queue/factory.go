package queue

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// QueueConfig is the subset of top-level config the factory needs, kept
// narrow so this package never imports internal/config directly.
type QueueConfig struct {
	WorkerMode   string
	WorkerURL    string
	SQSQueueURL  string
	AWSRegion    string
	PollInterval time.Duration
}

// NewAPISideQueue builds the Queue handle the API process enqueues through.
// In local mode the worker's queue is an in-memory structure scoped to the
// worker's own heap, unreachable from the API process directly, so the API
// side talks to it over the worker's introspection HTTP surface. In lambda
// mode SQS is already a real cross-process (cross-account, even) transport,
// so the API process can hold its own BrokerQueue client and enqueue
// straight into it.
func NewAPISideQueue(ctx context.Context, cfg QueueConfig) (Queue, error) {
	if cfg.WorkerMode == "lambda" {
		return newBrokerQueueFromConfig(ctx, cfg)
	}
	return NewRemoteQueue(cfg.WorkerURL), nil
}

// NewWorkerSideQueue builds the Queue the worker process dispatches from.
func NewWorkerSideQueue(ctx context.Context, cfg QueueConfig) (Queue, error) {
	if cfg.WorkerMode == "lambda" {
		return newBrokerQueueFromConfig(ctx, cfg)
	}
	return NewInProcQueue(cfg.PollInterval), nil
}

func newBrokerQueueFromConfig(ctx context.Context, cfg QueueConfig) (Queue, error) {
	if cfg.SQSQueueURL == "" {
		return nil, fmt.Errorf("queue: SQS_QUEUE_URL is required in lambda mode")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("queue: load aws config: %w", err)
	}
	client := sqs.NewFromConfig(awsCfg)
	return NewBrokerQueue(client, cfg.SQSQueueURL), nil
}
