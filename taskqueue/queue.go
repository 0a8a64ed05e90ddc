// Package taskqueue is a minimal SQLite-backed task queue. Producers enqueue
// typed payloads and get back an opaque task id; handlers are registered once
// at startup and run from a single polling worker. Handlers are expected to be
// idempotent: a task may be re-delivered after a crash.
package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

// Handler processes one task payload
type Handler func(ctx context.Context, payload []byte) error

// Worker polls the tasks table and dispatches to registered handlers
type Worker struct {
	pollInterval time.Duration
	batchSize    int

	mu       sync.RWMutex
	handlers map[string]Handler

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a task queue worker
func NewWorker(pollInterval time.Duration, batchSize int) *Worker {
	if pollInterval == 0 {
		pollInterval = 2 * time.Second
	}
	if batchSize == 0 {
		batchSize = 20
	}

	return &Worker{
		pollInterval: pollInterval,
		batchSize:    batchSize,
		handlers:     make(map[string]Handler),
		stopChan:     make(chan struct{}),
	}
}

// Register adds a handler for a task type. Registering the same type twice is
// a programming error.
func (w *Worker) Register(taskType string, h Handler) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.handlers[taskType]; ok {
		return fmt.Errorf("handler already registered for task type %q", taskType)
	}
	w.handlers[taskType] = h
	return nil
}

// Enqueue inserts a pending task and returns its id. The payload is marshaled
// to JSON.
func Enqueue(taskType string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	id, err := db.CreateTask(taskType, string(data))
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Debug().Str("type", taskType).Str("id", id).Msg("task enqueued")
	return id, nil
}

// Start begins the polling loop
func (w *Worker) Start() {
	log.Info().Dur("interval", w.pollInterval).Msg("starting task queue worker")

	w.wg.Add(1)
	go w.pollLoop()
}

// Stop stops the worker and waits for in-flight tasks
func (w *Worker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	log.Info().Msg("task queue worker stopped")
}

func (w *Worker) pollLoop() {
	defer w.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-w.stopChan
		cancel()
	}()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runPending(ctx)
		case <-w.stopChan:
			return
		}
	}
}

// runPending claims pending tasks and dispatches them sequentially
func (w *Worker) runPending(ctx context.Context) {
	tasks, err := db.ClaimPendingTasks(w.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to claim pending tasks")
		return
	}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		handler, ok := w.handlers[task.TaskType]
		w.mu.RUnlock()

		if !ok {
			errMsg := "no handler registered"
			log.Warn().Str("type", task.TaskType).Str("id", task.ID).Msg("task has no handler")
			db.FinishTask(task.ID, db.TaskStatusError, &errMsg)
			continue
		}

		if err := handler(ctx, []byte(task.Payload)); err != nil {
			errMsg := err.Error()
			log.Warn().Err(err).Str("type", task.TaskType).Str("id", task.ID).Msg("task failed")
			db.FinishTask(task.ID, db.TaskStatusError, &errMsg)
			continue
		}

		db.FinishTask(task.ID, db.TaskStatusDone, nil)
		log.Debug().Str("type", task.TaskType).Str("id", task.ID).Msg("task done")
	}
}
