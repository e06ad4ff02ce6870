package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LariSevilha/comment-analysis/internal/logger"
)

const (
	taskQueueKey  = "comment-analysis:queue:tasks"
	deadLetterKey = "comment-analysis:queue:failed"
)

// RedisQueue is a Redis list-backed Queue with a dead-letter list.
type RedisQueue struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisQueue wraps an already-connected Redis client.
func NewRedisQueue(client *redis.Client, log *logger.Logger) *RedisQueue {
	if log == nil {
		log = logger.Default()
	}
	return &RedisQueue{client: client, log: log}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task *Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	if err := q.client.LPush(ctx, taskQueueKey, raw).Err(); err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := q.client.BRPop(ctx, timeout, taskQueueKey).Result()
	if err == redis.Nil {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	// BRPop returns [key, value].
	raw := []byte(result[1])

	task, err := decodeTask(raw)
	if err != nil {
		// Undecodable payloads are dead-lettered immediately: retrying
		// cannot fix a malformed envelope.
		q.deadLetterRaw(ctx, raw, err.Error())
		return nil, errors.Join(ErrMalformed, err)
	}
	return task, nil
}

func (q *RedisQueue) DeadLetter(ctx context.Context, task *Task, reason string) error {
	raw, err := json.Marshal(struct {
		*Task
		Reason   string    `json:"reason"`
		FailedAt time.Time `json:"failed_at"`
	}{Task: task, Reason: reason, FailedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode dead letter %s: %w", task.ID, err)
	}
	q.log.WithFields(logger.Fields{
		"task_id": task.ID,
		"kind":    string(task.Kind),
		"reason":  reason,
	}).Warn("Task dead-lettered")
	return q.client.LPush(ctx, deadLetterKey, raw).Err()
}

func (q *RedisQueue) deadLetterRaw(ctx context.Context, raw []byte, reason string) {
	entry, _ := json.Marshal(map[string]interface{}{
		"raw":       string(raw),
		"reason":    reason,
		"failed_at": time.Now().UTC(),
	})
	if err := q.client.LPush(ctx, deadLetterKey, entry).Err(); err != nil {
		q.log.WithError(err).Error("Failed to dead-letter malformed task")
	}
}
