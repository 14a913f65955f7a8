// Package worker provides the background consumer that drives generation
// jobs forward. Workers pull stage tasks from a queue and hand them to the
// orchestrator; multiple workers can safely operate on the same queue, and
// no ordering is guaranteed between distinct jobs.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/petrijr/copilot/internal/taskqueue"
)

// Handler executes one stage task. The orchestrator implements it.
type Handler interface {
	HandleTask(ctx context.Context, t taskqueue.Task) error
}

// Worker pulls tasks from a Queue and executes them using a Handler.
type Worker struct {
	handler Handler
	queue   taskqueue.Queue
	logger  *slog.Logger
}

// New creates a new Worker. If logger is nil, slog.Default() is used.
func New(handler Handler, queue taskqueue.Queue, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		handler: handler,
		queue:   queue,
		logger:  logger,
	}
}

// ProcessOne pulls a single task from the queue and processes it.
// Returns (processed, error):
//   - processed == false: no task was obtained (ctx cancelled or dequeue error)
//   - processed == true: a task was processed; err is the handler's result.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	return true, w.handler.HandleTask(ctx, *task)
}

// Run processes tasks until ctx is cancelled. Handler failures are logged
// and do not stop the loop; the orchestrator has already recorded them on
// the affected job.
func (w *Worker) Run(ctx context.Context) error {
	for {
		processed, err := w.ProcessOne(ctx)
		if !processed {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			w.logger.ErrorContext(ctx, "task_failed", slog.Any("error", err))
		}
	}
}
