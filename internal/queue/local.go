package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// NewLocal returns an in-process queue for single-replica deployments.
// Enqueue runs the registered handlers synchronously.
func NewLocal(log *slog.Logger) Queue {
	return &localQueue{log: log, handlers: make(map[TaskType]map[int]Handler)}
}

type localQueue struct {
	log *slog.Logger

	mu       sync.RWMutex
	nextID   int
	handlers map[TaskType]map[int]Handler
}

func (q *localQueue) Enqueue(ctx context.Context, task Task) error {
	if task.Type == "" {
		return errors.New("task type required")
	}
	stamp(&task)

	q.mu.RLock()
	hs := make([]Handler, 0, len(q.handlers[task.Type]))
	for _, h := range q.handlers[task.Type] {
		hs = append(hs, h)
	}
	q.mu.RUnlock()

	var errs []error
	for _, h := range hs {
		if err := h(ctx, task); err != nil {
			q.log.Error("task failed", "id", task.ID, "type", task.Type, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (q *localQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	if q.handlers[taskType] == nil {
		q.handlers[taskType] = make(map[int]Handler)
	}
	q.handlers[taskType][id] = handler
	q.mu.Unlock()

	<-ctx.Done()

	q.mu.Lock()
	delete(q.handlers[taskType], id)
	q.mu.Unlock()
	return nil
}

func (q *localQueue) Close() error {
	return nil
}
