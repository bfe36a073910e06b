package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"multilingual-qa/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeAnswer TaskType = "answer"
)

// Task represents a unit of work handed from the API to workers.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// AnswerPayload is the body of a TaskTypeAnswer task.
type AnswerPayload struct {
	RecordID  uuid.UUID `json:"record_id"`
	Question  string    `json:"question"`
	Context   string    `json:"context"`
	Language  string    `json:"language"`
	MaxLength int       `json:"max_length"`
}

// NewAnswerTask wraps p in a task ready to enqueue.
func NewAnswerTask(p AnswerPayload) (Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Task{}, err
	}
	return Task{Type: TaskTypeAnswer, Payload: body, MaxAttempts: 3}, nil
}

// DecodeAnswer unpacks the payload of an answer task.
func DecodeAnswer(task Task) (AnswerPayload, error) {
	var p AnswerPayload
	err := json.Unmarshal(task.Payload, &p)
	return p, err
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base)):
		}
	}
	return nil
}
