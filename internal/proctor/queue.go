package proctor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/exam-session/internal/session"
)

const defaultQueueKey = "proctor:violations"

// ErrQueueEmpty is returned by Pop when nothing arrived before the timeout.
var ErrQueueEmpty = errors.New("proctor queue empty")

// Record is one queued violation.
type Record struct {
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Counter is notified for every violation enqueued.
type Counter interface {
	Violation(kind string)
}

// Queue buffers violations in a Redis list until the worker stores them.
type Queue struct {
	client  *redis.Client
	key     string
	counter Counter
}

var _ session.ViolationRecorder = (*Queue)(nil)

func NewQueue(client *redis.Client, key string, counter Counter) *Queue {
	if key == "" {
		key = defaultQueueKey
	}
	return &Queue{client: client, key: key, counter: counter}
}

// RecordViolation enqueues v for sessionID.
func (q *Queue) RecordViolation(ctx context.Context, sessionID string, v session.Violation) error {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(Record{
		SessionID: sessionID,
		Type:      v.Type,
		Message:   v.Message,
		Timestamp: v.Timestamp,
	})
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return err
	}
	if q.counter != nil {
		q.counter.Violation(v.Type)
	}
	return nil
}

// Pop blocks up to timeout for the next raw record.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrQueueEmpty
		}
		return "", err
	}
	if len(result) < 2 {
		return "", ErrQueueEmpty
	}
	return result[1], nil
}

// Requeue pushes raw records back onto the tail.
func (q *Queue) Requeue(ctx context.Context, items []string) error {
	if len(items) == 0 {
		return nil
	}
	pipe := q.client.Pipeline()
	for _, item := range items {
		pipe.RPush(ctx, q.key, item)
	}
	_, err := pipe.Exec(ctx)
	return err
}
