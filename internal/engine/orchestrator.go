// Package engine implements the pipeline orchestrator: it drives a
// generation job from submitted request to finalized, validated artifacts,
// absorbing capability-provider instability behind a bounded repair loop.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/petrijr/copilot/internal/datacontext"
	"github.com/petrijr/copilot/internal/jobstore"
	"github.com/petrijr/copilot/internal/taskqueue"
	"github.com/petrijr/copilot/pkg/api"
)

// DefaultMaxAttempts is the retry ceiling of the transform/repair loop and
// of each downstream generation stage.
const DefaultMaxAttempts = 3

// Config describes how to construct an Orchestrator.
type Config struct {
	Store     jobstore.Store
	Queue     taskqueue.Queue
	Providers api.Providers
	Observer  api.Observer

	// MaxAttempts bounds generate/repair attempts per stage.
	// Zero means DefaultMaxAttempts.
	MaxAttempts int

	// ProviderTimeout bounds each capability-provider call. Zero disables
	// the per-call timeout; a call that never returns then stalls its job,
	// which matches the reference retry-count-only policy.
	ProviderTimeout time.Duration
}

// Orchestrator is the pipeline driver. It implements api.Orchestrator for
// callers and HandleTask for workers pulling stage tasks off the queue.
type Orchestrator struct {
	store       jobstore.Store
	queue       taskqueue.Queue
	providers   api.Providers
	observer    api.Observer
	maxAttempts int
	callTimeout time.Duration
}

var _ api.Orchestrator = (*Orchestrator)(nil)

// New creates an Orchestrator from cfg.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("engine: queue is required")
	}

	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Orchestrator{
		store:       cfg.Store,
		queue:       cfg.Queue,
		providers:   cfg.Providers,
		observer:    obs,
		maxAttempts: maxAttempts,
		callTimeout: cfg.ProviderTimeout,
	}, nil
}

// SubmitPrompt starts the outline-first workflow: free text is drafted into
// a step list, then transformed into a validated process graph.
func (o *Orchestrator) SubmitPrompt(ctx context.Context, freeText string) (string, error) {
	if strings.TrimSpace(freeText) == "" {
		return "", fmt.Errorf("%w: empty prompt", api.ErrInvalidRequest)
	}
	if o.providers.Outliner == nil {
		return "", fmt.Errorf("engine: no outline capability configured")
	}

	job, err := o.store.Create(ctx)
	if err != nil {
		return "", err
	}

	task := taskqueue.Task{
		Type:       taskqueue.TaskOutline,
		JobID:      job.ID,
		Prompt:     freeText,
		EnqueuedAt: time.Now(),
	}
	if err := o.queue.Enqueue(ctx, task); err != nil {
		return "", err
	}

	o.observer.OnJobSubmitted(ctx, job)
	return job.ID, nil
}

// SubmitDefinition starts the direct-transform workflow from an
// already-structured step list.
func (o *Orchestrator) SubmitDefinition(ctx context.Context, def *api.ProcessDefinition) (string, error) {
	if def.Empty() {
		return "", fmt.Errorf("%w: definition has no steps", api.ErrInvalidRequest)
	}

	job, err := o.store.Create(ctx)
	if err != nil {
		return "", err
	}

	task := taskqueue.Task{
		Type:       taskqueue.TaskTransform,
		JobID:      job.ID,
		Prompt:     "manual definition transformation",
		Definition: def,
		EnqueuedAt: time.Now(),
	}
	if err := o.queue.Enqueue(ctx, task); err != nil {
		return "", err
	}

	o.observer.OnJobSubmitted(ctx, job)
	return job.ID, nil
}

// GetJob returns the current immutable snapshot for jobID.
func (o *Orchestrator) GetJob(ctx context.Context, jobID string) (*api.Job, error) {
	return o.store.Get(ctx, jobID)
}

// SuggestNextSteps answers the stateless suggestion query, enriching it
// with upstream variables when the request names a job that already holds
// both a process graph and a data model.
func (o *Orchestrator) SuggestNextSteps(ctx context.Context, req api.SuggestRequest) (*api.SuggestionResponse, error) {
	if req.Graph == nil || req.FocusNodeID == "" {
		return nil, fmt.Errorf("%w: graph and focusNodeId are required", api.ErrInvalidRequest)
	}
	if o.providers.Suggester == nil {
		return nil, fmt.Errorf("engine: no suggestion capability configured")
	}

	var vars []api.VariableRef
	if req.JobID != "" {
		if job, err := o.store.Get(ctx, req.JobID); err == nil && job.Process != nil && job.Data != nil {
			vars = datacontext.Resolve(job.Process, job.Data, req.FocusNodeID)
		}
	}

	callCtx, cancel := o.providerCtx(ctx)
	defer cancel()
	return o.providers.Suggester.SuggestNextSteps(callCtx, req.Graph, req.FocusNodeID, vars)
}

// SuggestOutline drafts a step list for a topic synchronously, without
// creating a job.
func (o *Orchestrator) SuggestOutline(ctx context.Context, topic, description string) (*api.ProcessDefinition, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("%w: empty topic", api.ErrInvalidRequest)
	}
	if o.providers.Outliner == nil {
		return nil, fmt.Errorf("engine: no outline capability configured")
	}

	prompt := topic
	if strings.TrimSpace(description) != "" {
		prompt = topic + "\n\n" + description
	}

	callCtx, cancel := o.providerCtx(ctx)
	defer cancel()
	return o.providers.Outliner.Outline(callCtx, prompt)
}

// providerCtx derives the bounded context for one capability call.
func (o *Orchestrator) providerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.callTimeout > 0 {
		return context.WithTimeout(ctx, o.callTimeout)
	}
	return ctx, func() {}
}
