package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petrijr/copilot/internal/taskqueue"
	"github.com/petrijr/copilot/internal/validate"
	"github.com/petrijr/copilot/pkg/api"
)

// HandleTask executes one stage task. Every failure path ends in a terminal
// state transition for the job: a job is never left in PROCESSING
// indefinitely by a handled task. Tasks targeting jobs that already reached
// a terminal state are dropped.
func (o *Orchestrator) HandleTask(ctx context.Context, t taskqueue.Task) error {
	var err error
	switch t.Type {
	case taskqueue.TaskOutline:
		err = o.runOutline(ctx, t)
	case taskqueue.TaskTransform:
		err = o.transformLoop(ctx, t.JobID, t.Prompt, t.Definition)
	case taskqueue.TaskModelData:
		err = o.runModelData(ctx, t)
	case taskqueue.TaskDesignForm:
		err = o.runDesignForm(ctx, t)
	default:
		err = fmt.Errorf("unknown task type: %s", t.Type)
	}

	if errors.Is(err, api.ErrJobTerminal) {
		// Late-arriving work for a job that already completed or failed.
		return nil
	}
	if err != nil {
		o.failJob(ctx, t.JobID, err)
	}
	return err
}

// runOutline drafts the step list from free text, then enters the shared
// transform phase.
func (o *Orchestrator) runOutline(ctx context.Context, t taskqueue.Task) error {
	if _, err := o.store.TransitionState(ctx, t.JobID, api.StateProcessing,
		"step 1: analyzing the request and drafting a step outline"); err != nil {
		return err
	}

	callCtx, cancel := o.providerCtx(ctx)
	def, err := o.providers.Outliner.Outline(callCtx, t.Prompt)
	cancel()
	if err != nil {
		return api.NewCapabilityError("outline", err)
	}
	if def.Empty() {
		return api.NewCapabilityError("outline", fmt.Errorf("outline produced no steps"))
	}

	return o.transformLoop(ctx, t.JobID, t.Prompt, def)
}

// transformLoop is the shared second phase: bounded transform/repair
// attempts, each candidate gated by the structural validator. On success
// the graph is committed and the downstream data-modeling stage is
// signaled; on exhaustion the last failure reason becomes the job's
// terminal message.
func (o *Orchestrator) transformLoop(ctx context.Context, jobID, prompt string, def *api.ProcessDefinition) error {
	if o.providers.Transformer == nil {
		return fmt.Errorf("engine: no transform capability configured")
	}

	if _, err := o.store.TransitionState(ctx, jobID, api.StateProcessing,
		"step 2: transforming the step list into a process map"); err != nil {
		return err
	}
	o.observer.OnStageStart(ctx, jobID, api.StageProcess)
	start := time.Now()

	var candidate *api.ProcessGraph
	var lastErr error

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.observer.OnAttempt(ctx, jobID, api.StageProcess, attempt, o.maxAttempts)

		var genErr error
		if attempt == 1 {
			callCtx, cancel := o.providerCtx(ctx)
			candidate, genErr = o.providers.Transformer.Transform(callCtx, def)
			cancel()
			if genErr != nil {
				lastErr = api.NewCapabilityError("transform", genErr)
				continue
			}
		} else {
			if _, err := o.store.TransitionState(ctx, jobID, api.StateProcessing,
				fmt.Sprintf("repairing structural defects (attempt %d/%d)", attempt, o.maxAttempts)); err != nil {
				return err
			}
			callCtx, cancel := o.providerCtx(ctx)
			candidate, genErr = o.providers.Transformer.Repair(callCtx, def, candidate, lastErr.Error())
			cancel()
			if genErr != nil {
				lastErr = api.NewCapabilityError("repair", genErr)
				continue
			}
		}

		if verr := validate.Validate(candidate); verr != nil {
			lastErr = verr
			continue
		}

		if _, err := o.store.CommitArtifact(ctx, jobID, api.StageProcess, candidate); err != nil {
			return err
		}
		o.observer.OnStageCompleted(ctx, jobID, api.StageProcess, nil, time.Since(start))

		// One-way downstream notification; the consumer runs independently
		// with its own retry/commit discipline.
		return o.queue.Enqueue(ctx, taskqueue.Task{
			Type:       taskqueue.TaskModelData,
			JobID:      jobID,
			Prompt:     prompt,
			Graph:      candidate,
			EnqueuedAt: time.Now(),
		})
	}

	o.observer.OnStageCompleted(ctx, jobID, api.StageProcess, lastErr, time.Since(start))
	return fmt.Errorf("process map transformation failed: %w", lastErr)
}

// runModelData derives the data-entity model from a committed graph.
func (o *Orchestrator) runModelData(ctx context.Context, t taskqueue.Task) error {
	if o.providers.DataModeler == nil {
		return fmt.Errorf("engine: no data-modeling capability configured")
	}

	if _, err := o.store.TransitionState(ctx, t.JobID, api.StateProcessing,
		"step 3: modeling data entities for the process"); err != nil {
		return err
	}
	o.observer.OnStageStart(ctx, t.JobID, api.StageData)
	start := time.Now()

	data, err := o.generateData(ctx, t.JobID, t.Graph)
	if err != nil {
		o.observer.OnStageCompleted(ctx, t.JobID, api.StageData, err, time.Since(start))
		return err
	}

	if _, err := o.store.CommitArtifact(ctx, t.JobID, api.StageData, data); err != nil {
		return err
	}
	o.observer.OnStageCompleted(ctx, t.JobID, api.StageData, nil, time.Since(start))

	return o.queue.Enqueue(ctx, taskqueue.Task{
		Type:       taskqueue.TaskDesignForm,
		JobID:      t.JobID,
		Prompt:     t.Prompt,
		Graph:      t.Graph,
		Data:       data,
		EnqueuedAt: time.Now(),
	})
}

func (o *Orchestrator) generateData(ctx context.Context, jobID string, graph *api.ProcessGraph) (*api.DataModel, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.observer.OnAttempt(ctx, jobID, api.StageData, attempt, o.maxAttempts)

		callCtx, cancel := o.providerCtx(ctx)
		data, err := o.providers.DataModeler.ModelData(callCtx, graph)
		cancel()
		if err != nil {
			lastErr = api.NewCapabilityError("data-modeling", err)
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("data modeling failed: %w", lastErr)
}

// runDesignForm designs the form artifact and finalizes the job.
func (o *Orchestrator) runDesignForm(ctx context.Context, t taskqueue.Task) error {
	if o.providers.FormDesigner == nil {
		return fmt.Errorf("engine: no form-design capability configured")
	}

	if _, err := o.store.TransitionState(ctx, t.JobID, api.StateProcessing,
		"step 4: designing forms for the user tasks"); err != nil {
		return err
	}
	o.observer.OnStageStart(ctx, t.JobID, api.StageForm)
	start := time.Now()

	form, err := o.generateForm(ctx, t.JobID, t.Graph, t.Data)
	if err != nil {
		o.observer.OnStageCompleted(ctx, t.JobID, api.StageForm, err, time.Since(start))
		return err
	}

	if _, err := o.store.CommitArtifact(ctx, t.JobID, api.StageForm, form); err != nil {
		return err
	}
	o.observer.OnStageCompleted(ctx, t.JobID, api.StageForm, nil, time.Since(start))

	job, err := o.store.TransitionState(ctx, t.JobID, api.StateCompleted, "generation complete")
	if err != nil {
		return err
	}
	o.observer.OnJobCompleted(ctx, job)
	return nil
}

func (o *Orchestrator) generateForm(ctx context.Context, jobID string, graph *api.ProcessGraph, data *api.DataModel) (*api.FormModel, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.observer.OnAttempt(ctx, jobID, api.StageForm, attempt, o.maxAttempts)

		callCtx, cancel := o.providerCtx(ctx)
		form, err := o.providers.FormDesigner.DesignForm(callCtx, graph, data)
		cancel()
		if err != nil {
			lastErr = api.NewCapabilityError("form-design", err)
			continue
		}
		return form, nil
	}
	return nil, fmt.Errorf("form design failed: %w", lastErr)
}

// failJob records a terminal failure. Errors from the store are swallowed:
// a job already terminal stays as it is, and a missing job has nothing to
// record.
func (o *Orchestrator) failJob(ctx context.Context, jobID string, cause error) {
	job, err := o.store.TransitionState(ctx, jobID, api.StateFailed,
		fmt.Sprintf("generation failed: %v", cause))
	if err != nil {
		return
	}
	o.observer.OnJobFailed(ctx, job, cause)
}
