package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsMaxDelaySeconds is SQS's native delay ceiling; longer delays must be
// clamped rather than rejected.
const sqsMaxDelaySeconds = 900

// BrokerQueue wraps an external message broker (Amazon SQS). Visibility
// timeout stands in for the in-flight set; reject is a no-op because the
// broker's own redrive/dead-letter policy owns retries that don't flow
// through acknowledge.
type BrokerQueue struct {
	client   *sqs.Client
	queueURL string

	mu             sync.Mutex
	receiptByJobID map[string]string

	pollCancel context.CancelFunc
	pollWG     sync.WaitGroup
	polling    bool
}

func NewBrokerQueue(client *sqs.Client, queueURL string) *BrokerQueue {
	return &BrokerQueue{
		client:         client,
		queueURL:       queueURL,
		receiptByJobID: make(map[string]string),
	}
}

type brokerEnvelope struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Payload     map[string]interface{} `json:"payload"`
	Attempts    int                    `json:"attempts"`
	MaxAttempts int                    `json:"max_attempts"`
	CreatedAt   time.Time              `json:"created_at"`
}

func (q *BrokerQueue) Enqueue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(brokerEnvelope{
		ID:          job.ID,
		Type:        job.Type,
		Payload:     job.Payload,
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		CreatedAt:   job.CreatedAt,
	})
	if err != nil {
		return err
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	}

	if job.ScheduledFor != nil {
		delay := time.Until(*job.ScheduledFor)
		seconds := int32(delay.Seconds())
		if seconds < 0 {
			seconds = 0
		}
		if seconds > sqsMaxDelaySeconds {
			seconds = sqsMaxDelaySeconds
		}
		input.DelaySeconds = seconds
	}

	_, err = q.client.SendMessage(ctx, input)
	return err
}

func (q *BrokerQueue) EnqueueType(ctx context.Context, jobType string, payload map[string]interface{}, opts EnqueueOptions) (*Job, error) {
	job := newJobFromType(jobType, payload, opts, time.Now())
	if err := q.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (q *BrokerQueue) Dequeue(ctx context.Context) (*Job, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages:  1,
		WaitTimeSeconds:      20,
		VisibilityTimeout:    300,
		MessageAttributeNames: []string{string(types.QueueAttributeNameAll)},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}

	msg := out.Messages[0]
	var env brokerEnvelope
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &env); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            env.ID,
		Type:          env.Type,
		Payload:       env.Payload,
		Attempts:      env.Attempts,
		MaxAttempts:   env.MaxAttempts,
		CreatedAt:     env.CreatedAt,
		receiptHandle: aws.ToString(msg.ReceiptHandle),
	}

	q.mu.Lock()
	q.receiptByJobID[job.ID] = job.receiptHandle
	q.mu.Unlock()

	return job, nil
}

func (q *BrokerQueue) Acknowledge(ctx context.Context, job *Job) error {
	q.mu.Lock()
	receipt, ok := q.receiptByJobID[job.ID]
	delete(q.receiptByJobID, job.ID)
	q.mu.Unlock()
	if !ok {
		return nil
	}

	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receipt),
	})
	return err
}

// Reject leaves the message invisible until the broker's visibility
// timeout expires; redrive/dead-letter is the broker's responsibility.
func (q *BrokerQueue) Reject(ctx context.Context, job *Job, cause error) error {
	q.mu.Lock()
	delete(q.receiptByJobID, job.ID)
	q.mu.Unlock()
	return nil
}

func (q *BrokerQueue) Depth(ctx context.Context) (int64, error) {
	out, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(q.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, err
	}
	return parseAttr(out.Attributes, string(types.QueueAttributeNameApproximateNumberOfMessages)), nil
}

func (q *BrokerQueue) ProcessingCount(ctx context.Context) (int64, error) {
	out, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(q.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessagesNotVisible},
	})
	if err != nil {
		return 0, err
	}
	return parseAttr(out.Attributes, string(types.QueueAttributeNameApproximateNumberOfMessagesNotVisible)), nil
}

func parseAttr(attrs map[string]string, key string) int64 {
	var n int64
	if v, ok := attrs[key]; ok {
		for _, c := range v {
			if c < '0' || c > '9' {
				return 0
			}
			n = n*10 + int64(c-'0')
		}
	}
	return n
}

func (q *BrokerQueue) StartPolling(ctx context.Context, onJob func(context.Context, *Job)) {
	q.mu.Lock()
	if q.polling {
		q.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	q.pollCancel = cancel
	q.polling = true
	q.mu.Unlock()

	q.pollWG.Add(1)
	go func() {
		defer q.pollWG.Done()
		for {
			select {
			case <-pollCtx.Done():
				return
			default:
				job, err := q.Dequeue(pollCtx)
				if err != nil || job == nil {
					continue
				}
				onJob(pollCtx, job)
			}
		}
	}()
}

func (q *BrokerQueue) StopPolling() {
	q.mu.Lock()
	cancel := q.pollCancel
	q.polling = false
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.pollWG.Wait()
}
