// Package taskqueue carries the explicit stage handoffs between the
// orchestrator and its workers: submitting a job enqueues its first stage,
// and each committed artifact enqueues the next stage as a one-way
// notification rather than a nested call.
package taskqueue

import (
	"context"
	"time"

	"github.com/petrijr/copilot/pkg/api"
)

// TaskType identifies which pipeline stage the worker should run.
type TaskType string

const (
	// TaskOutline drafts a step list from free text, then transforms it.
	TaskOutline TaskType = "outline"

	// TaskTransform converts a step list into a validated process graph.
	TaskTransform TaskType = "transform"

	// TaskModelData derives data entities from a committed graph.
	TaskModelData TaskType = "model-data"

	// TaskDesignForm designs form models and finalizes the job.
	TaskDesignForm TaskType = "design-form"
)

// Task is one unit of stage work keyed to a job. Only the fields relevant
// to the task type are set; artifacts are carried by pointer and treated as
// immutable once enqueued.
type Task struct {
	Type  TaskType
	JobID string

	// Prompt is the original free-text request (outline tasks, and carried
	// through downstream tasks for provider context).
	Prompt string

	// Definition is the structured step list (transform tasks).
	Definition *api.ProcessDefinition

	// Graph is the committed process graph (downstream tasks).
	Graph *api.ProcessGraph

	// Data is the committed data model (design-form tasks).
	Data *api.DataModel

	EnqueuedAt time.Time
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for
	// cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next task, blocking until one is
	// available or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
