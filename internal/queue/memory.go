package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// MemoryQueue is a channel-backed Queue used in local mode and tests.
// Envelopes go through the same JSON decode path as the Redis queue so
// malformed-payload behavior matches.
type MemoryQueue struct {
	tasks chan []byte

	mu         sync.Mutex
	deadLetter []DeadLetterEntry
}

// DeadLetterEntry records a parked task and why it was parked.
type DeadLetterEntry struct {
	Task   *Task
	Raw    string
	Reason string
}

// NewMemoryQueue creates an in-memory queue with the given buffer size.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{tasks: make(chan []byte, size)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, task *Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	select {
	case q.tasks <- raw:
		return nil
	default:
		return errors.New("memory queue is full")
	}
}

// EnqueueRaw pushes an arbitrary payload, bypassing envelope validation.
// Test hook for exercising the malformed-payload path.
func (q *MemoryQueue) EnqueueRaw(raw []byte) {
	q.tasks <- raw
}

func (q *MemoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case raw := <-q.tasks:
		task, err := decodeTask(raw)
		if err != nil {
			q.mu.Lock()
			q.deadLetter = append(q.deadLetter, DeadLetterEntry{Raw: string(raw), Reason: err.Error()})
			q.mu.Unlock()
			return nil, errors.Join(ErrMalformed, err)
		}
		return task, nil
	case <-timer.C:
		return nil, ErrEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) DeadLetter(_ context.Context, task *Task, reason string) error {
	q.mu.Lock()
	q.deadLetter = append(q.deadLetter, DeadLetterEntry{Task: task, Reason: reason})
	q.mu.Unlock()
	return nil
}

// DeadLetters returns a copy of the dead-letter list.
func (q *MemoryQueue) DeadLetters() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetterEntry(nil), q.deadLetter...)
}

// Len reports how many tasks are waiting.
func (q *MemoryQueue) Len() int {
	return len(q.tasks)
}
