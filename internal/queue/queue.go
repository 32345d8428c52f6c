package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pdf-ask/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	// TaskTypeReload tells every replica to drop its cached document text
	// and answers.
	TaskTypeReload TaskType = "reload"
)

// Task is a message broadcast to all workers of its type.
type Task struct {
	ID        uuid.UUID
	Type      TaskType
	Payload   []byte
	CreatedAt time.Time
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to publish and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	// Worker blocks, delivering tasks of taskType to handler until ctx ends.
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
	Close() error
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	return retry.Do(ctx, attempts, base, func(ctx context.Context) error {
		return q.Enqueue(ctx, task)
	})
}

func stamp(task *Task) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
}
