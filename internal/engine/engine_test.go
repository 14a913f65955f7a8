package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/copilot/internal/jobstore"
	"github.com/petrijr/copilot/internal/taskqueue"
	"github.com/petrijr/copilot/pkg/api"
)

// funcProviders adapts plain functions to the capability interfaces so each
// test can script exactly the provider behavior it needs.
type funcProviders struct {
	outline    func(ctx context.Context, freeText string) (*api.ProcessDefinition, error)
	transform  func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error)
	repair     func(ctx context.Context, def *api.ProcessDefinition, invalid *api.ProcessGraph, reason string) (*api.ProcessGraph, error)
	modelData  func(ctx context.Context, graph *api.ProcessGraph) (*api.DataModel, error)
	designForm func(ctx context.Context, graph *api.ProcessGraph, data *api.DataModel) (*api.FormModel, error)
	suggest    func(ctx context.Context, graph *api.ProcessGraph, focusNodeID string, vars []api.VariableRef) (*api.SuggestionResponse, error)
}

func (p *funcProviders) Outline(ctx context.Context, freeText string) (*api.ProcessDefinition, error) {
	return p.outline(ctx, freeText)
}

func (p *funcProviders) Transform(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
	return p.transform(ctx, def)
}

func (p *funcProviders) Repair(ctx context.Context, def *api.ProcessDefinition, invalid *api.ProcessGraph, reason string) (*api.ProcessGraph, error) {
	return p.repair(ctx, def, invalid, reason)
}

func (p *funcProviders) ModelData(ctx context.Context, graph *api.ProcessGraph) (*api.DataModel, error) {
	return p.modelData(ctx, graph)
}

func (p *funcProviders) DesignForm(ctx context.Context, graph *api.ProcessGraph, data *api.DataModel) (*api.FormModel, error) {
	return p.designForm(ctx, graph, data)
}

func (p *funcProviders) SuggestNextSteps(ctx context.Context, graph *api.ProcessGraph, focusNodeID string, vars []api.VariableRef) (*api.SuggestionResponse, error) {
	return p.suggest(ctx, graph, focusNodeID, vars)
}

func (p *funcProviders) bundle() api.Providers {
	return api.Providers{
		Outliner:     p,
		Transformer:  p,
		DataModeler:  p,
		FormDesigner: p,
		Suggester:    p,
	}
}

// recordingObserver counts lifecycle events.
type recordingObserver struct {
	api.NoopObserver

	attempts  []int
	completed int
	failed    int
}

func (r *recordingObserver) OnAttempt(ctx context.Context, jobID string, stage api.StageTag, attempt, max int) {
	r.attempts = append(r.attempts, attempt)
}

func (r *recordingObserver) OnJobCompleted(ctx context.Context, job *api.Job) {
	r.completed++
}

func (r *recordingObserver) OnJobFailed(ctx context.Context, job *api.Job, err error) {
	r.failed++
}

func twoStepDefinition() *api.ProcessDefinition {
	return &api.ProcessDefinition{
		Topic: "Leave Request",
		Steps: []api.ProcessStep{
			{StepID: "step_1", Name: "Submit Request", Role: "Employee", Type: api.StepAction},
			{StepID: "step_2", Name: "Manager Approval", Role: "Manager", Type: api.StepDecision},
		},
	}
}

func validTestGraph() *api.ProcessGraph {
	return &api.ProcessGraph{
		Name: "Leave Request",
		Activities: []api.Activity{
			{ID: "node_start", Type: api.NodeStartEvent, NextActivityID: "node_step_1_task"},
			{ID: "node_step_1_task", Type: api.NodeUserTask, NextActivityID: "node_end_point"},
			{ID: "node_end_point", Type: api.NodeEndEvent},
		},
	}
}

func danglingTestGraph() *api.ProcessGraph {
	g := validTestGraph()
	g.Activities[1].NextActivityID = "node_missing"
	return g
}

func newTestEngine(t *testing.T, providers api.Providers, obs api.Observer) (*Orchestrator, jobstore.Store, taskqueue.Queue) {
	t.Helper()
	store := jobstore.NewMemoryStore()
	queue := taskqueue.NewInMemoryQueue(64)
	o, err := New(Config{
		Store:     store,
		Queue:     queue,
		Providers: providers,
		Observer:  obs,
	})
	require.NoError(t, err)
	return o, store, queue
}

// pump drains the queue through HandleTask until it is empty, returning the
// last handler error.
func pump(t *testing.T, o *Orchestrator, queue taskqueue.Queue) error {
	t.Helper()
	ctx := context.Background()
	var last error
	for queue.Len() > 0 {
		task, err := queue.Dequeue(ctx)
		require.NoError(t, err)
		last = o.HandleTask(ctx, *task)
	}
	return last
}

func TestSubmitPrompt_RejectsEmptyPrompt(t *testing.T) {
	p := &funcProviders{}
	o, _, _ := newTestEngine(t, p.bundle(), nil)

	_, err := o.SubmitPrompt(context.Background(), "   ")
	require.ErrorIs(t, err, api.ErrInvalidRequest)
}

func TestSubmitDefinition_RejectsEmptyDefinition(t *testing.T) {
	p := &funcProviders{}
	o, _, _ := newTestEngine(t, p.bundle(), nil)

	_, err := o.SubmitDefinition(context.Background(), nil)
	require.ErrorIs(t, err, api.ErrInvalidRequest)

	_, err = o.SubmitDefinition(context.Background(), &api.ProcessDefinition{Topic: "Empty"})
	require.ErrorIs(t, err, api.ErrInvalidRequest)
}

func TestSubmitPrompt_JobStartsPending(t *testing.T) {
	p := &funcProviders{}
	o, store, queue := newTestEngine(t, p.bundle(), nil)

	jobID, err := o.SubmitPrompt(context.Background(), "employee requests leave")
	require.NoError(t, err)

	job, err := store.Get(context.Background(), jobID)
	require.NoError(t, err)
	require.Equal(t, api.StatePending, job.State)
	require.Equal(t, int64(0), job.Version)
	require.Equal(t, 1, queue.Len())
}

// The quick-start flow with one structural repair: outline, invalid first
// candidate, repaired second candidate. The process commit must land at
// version 4 and leave the job observable mid-pipeline.
func TestQuickStart_RepairPathVersions(t *testing.T) {
	ctx := context.Background()

	var repairReason string
	p := &funcProviders{
		outline: func(ctx context.Context, freeText string) (*api.ProcessDefinition, error) {
			return twoStepDefinition(), nil
		},
		transform: func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
			return danglingTestGraph(), nil
		},
		repair: func(ctx context.Context, def *api.ProcessDefinition, invalid *api.ProcessGraph, reason string) (*api.ProcessGraph, error) {
			repairReason = reason
			require.NotNil(t, invalid)
			return validTestGraph(), nil
		},
	}
	o, store, queue := newTestEngine(t, p.bundle(), nil)

	jobID, err := o.SubmitPrompt(ctx, "employee requests leave, manager approves")
	require.NoError(t, err)

	// Run only the outline task; leave the downstream data task queued.
	task, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, taskqueue.TaskOutline, task.Type)
	require.NoError(t, o.HandleTask(ctx, *task))

	require.Contains(t, repairReason, "node_missing",
		"repair must receive the verbatim validator reason")

	job, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, api.StateProcessing, job.State)
	require.Equal(t, api.StageProcess, job.LastUpdatedStage)
	require.NotNil(t, job.Process)
	require.Nil(t, job.Data)
	require.Nil(t, job.Form)

	// outline message, transform message, repair message, commit.
	require.Equal(t, int64(4), job.Version)

	// The data-modeling handoff is queued, not nested.
	require.Equal(t, 1, queue.Len())
}

// Direct transform without repair: transform message, commit.
func TestSubmitDefinition_TransformStageVersions(t *testing.T) {
	ctx := context.Background()

	p := &funcProviders{
		transform: func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
			return validTestGraph(), nil
		},
	}
	o, store, queue := newTestEngine(t, p.bundle(), nil)

	jobID, err := o.SubmitDefinition(ctx, twoStepDefinition())
	require.NoError(t, err)

	task, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, taskqueue.TaskTransform, task.Type)
	require.NoError(t, o.HandleTask(ctx, *task))

	job, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, int64(2), job.Version)
	require.Equal(t, api.StageProcess, job.LastUpdatedStage)
}

func TestPipeline_RunsToCompletion(t *testing.T) {
	ctx := context.Background()

	obs := &recordingObserver{}
	p := &funcProviders{
		outline: func(ctx context.Context, freeText string) (*api.ProcessDefinition, error) {
			return twoStepDefinition(), nil
		},
		transform: func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
			return validTestGraph(), nil
		},
		modelData: func(ctx context.Context, graph *api.ProcessGraph) (*api.DataModel, error) {
			return &api.DataModel{
				Entities: []api.DataEntity{{Alias: "Reason", Type: "string", SourceNodeID: "node_step_1_task"}},
			}, nil
		},
		designForm: func(ctx context.Context, graph *api.ProcessGraph, data *api.DataModel) (*api.FormModel, error) {
			return &api.FormModel{FormName: "LeaveForm"}, nil
		},
	}
	o, store, queue := newTestEngine(t, p.bundle(), obs)

	jobID, err := o.SubmitPrompt(ctx, "employee requests leave")
	require.NoError(t, err)
	require.NoError(t, pump(t, o, queue))

	job, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, api.StateCompleted, job.State)
	require.Equal(t, "generation complete", job.Message)
	require.NotNil(t, job.Process)
	require.NotNil(t, job.Data)
	require.NotNil(t, job.Form)
	require.Equal(t, api.StageForm, job.LastUpdatedStage)
	require.Equal(t, 1, obs.completed)
	require.Equal(t, 0, obs.failed)
}

// A transformer that never produces a valid graph must exhaust exactly
// maxAttempts and fail the job with the last structural reason.
func TestTransform_ExhaustsAttemptsAndFails(t *testing.T) {
	ctx := context.Background()

	obs := &recordingObserver{}
	p := &funcProviders{
		transform: func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
			return danglingTestGraph(), nil
		},
		repair: func(ctx context.Context, def *api.ProcessDefinition, invalid *api.ProcessGraph, reason string) (*api.ProcessGraph, error) {
			return danglingTestGraph(), nil
		},
	}
	o, store, queue := newTestEngine(t, p.bundle(), obs)

	jobID, err := o.SubmitDefinition(ctx, twoStepDefinition())
	require.NoError(t, err)

	err = pump(t, o, queue)
	require.Error(t, err)
	require.Contains(t, err.Error(), "process map transformation failed")

	job, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, api.StateFailed, job.State)
	require.Contains(t, job.Message, "generation failed")
	require.Contains(t, job.Message, "node_missing")
	require.Nil(t, job.Process, "no partial process map may be committed")

	require.Equal(t, []int{1, 2, 3}, obs.attempts)
	require.Equal(t, 1, obs.failed)
}

// Provider errors consume attempts the same way structural rejections do,
// and the terminal message names the failing capability.
func TestTransform_CapabilityFailure(t *testing.T) {
	ctx := context.Background()

	p := &funcProviders{
		transform: func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
			return nil, errors.New("model unavailable")
		},
		repair: func(ctx context.Context, def *api.ProcessDefinition, invalid *api.ProcessGraph, reason string) (*api.ProcessGraph, error) {
			return nil, errors.New("model unavailable")
		},
	}
	o, store, queue := newTestEngine(t, p.bundle(), nil)

	jobID, err := o.SubmitDefinition(ctx, twoStepDefinition())
	require.NoError(t, err)
	require.Error(t, pump(t, o, queue))

	job, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, api.StateFailed, job.State)
	require.Contains(t, job.Message, "capability failure")
	require.Contains(t, job.Message, "model unavailable")
}

// An intermittent provider that fails once and then succeeds should not
// fail the job.
func TestModelData_RetriesTransientFailure(t *testing.T) {
	ctx := context.Background()

	calls := 0
	p := &funcProviders{
		transform: func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
			return validTestGraph(), nil
		},
		modelData: func(ctx context.Context, graph *api.ProcessGraph) (*api.DataModel, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("timeout")
			}
			return &api.DataModel{}, nil
		},
		designForm: func(ctx context.Context, graph *api.ProcessGraph, data *api.DataModel) (*api.FormModel, error) {
			return &api.FormModel{}, nil
		},
	}
	o, store, queue := newTestEngine(t, p.bundle(), nil)

	jobID, err := o.SubmitDefinition(ctx, twoStepDefinition())
	require.NoError(t, err)
	require.NoError(t, pump(t, o, queue))

	require.Equal(t, 2, calls)
	job, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, api.StateCompleted, job.State)
}

// Tasks for jobs that already reached a terminal state are dropped without
// touching the snapshot.
func TestHandleTask_DropsTerminalJobs(t *testing.T) {
	ctx := context.Background()

	p := &funcProviders{
		transform: func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
			return validTestGraph(), nil
		},
	}
	o, store, _ := newTestEngine(t, p.bundle(), nil)

	job, err := store.Create(ctx)
	require.NoError(t, err)
	_, err = store.TransitionState(ctx, job.ID, api.StateFailed, "generation failed: boom")
	require.NoError(t, err)

	err = o.HandleTask(ctx, taskqueue.Task{
		Type:       taskqueue.TaskTransform,
		JobID:      job.ID,
		Definition: twoStepDefinition(),
	})
	require.NoError(t, err, "late tasks for terminal jobs must be dropped")

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version)
	require.Equal(t, api.StateFailed, got.State)
}

func TestHandleTask_UnknownTypeFailsJob(t *testing.T) {
	ctx := context.Background()

	p := &funcProviders{}
	o, store, _ := newTestEngine(t, p.bundle(), nil)

	job, err := store.Create(ctx)
	require.NoError(t, err)

	err = o.HandleTask(ctx, taskqueue.Task{Type: "bogus", JobID: job.ID})
	require.Error(t, err)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, api.StateFailed, got.State)
}

func TestSuggestNextSteps_RequiresGraphAndFocus(t *testing.T) {
	p := &funcProviders{
		suggest: func(ctx context.Context, graph *api.ProcessGraph, focusNodeID string, vars []api.VariableRef) (*api.SuggestionResponse, error) {
			return &api.SuggestionResponse{}, nil
		},
	}
	o, _, _ := newTestEngine(t, p.bundle(), nil)

	_, err := o.SuggestNextSteps(context.Background(), api.SuggestRequest{})
	require.ErrorIs(t, err, api.ErrInvalidRequest)

	_, err = o.SuggestNextSteps(context.Background(), api.SuggestRequest{Graph: validTestGraph()})
	require.ErrorIs(t, err, api.ErrInvalidRequest)
}

// When the request names a job holding both a graph and a data model, the
// suggester receives the upstream variables of the focus node.
func TestSuggestNextSteps_EnrichesWithUpstreamVariables(t *testing.T) {
	ctx := context.Background()

	var gotVars []api.VariableRef
	p := &funcProviders{
		transform: func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
			return validTestGraph(), nil
		},
		modelData: func(ctx context.Context, graph *api.ProcessGraph) (*api.DataModel, error) {
			return &api.DataModel{
				Entities: []api.DataEntity{
					{Alias: "Reason", Label: "Reason", Type: "string", SourceNodeID: "node_step_1_task"},
				},
			}, nil
		},
		designForm: func(ctx context.Context, graph *api.ProcessGraph, data *api.DataModel) (*api.FormModel, error) {
			return &api.FormModel{}, nil
		},
		suggest: func(ctx context.Context, graph *api.ProcessGraph, focusNodeID string, vars []api.VariableRef) (*api.SuggestionResponse, error) {
			gotVars = vars
			return &api.SuggestionResponse{}, nil
		},
	}
	o, _, queue := newTestEngine(t, p.bundle(), nil)

	jobID, err := o.SubmitDefinition(ctx, twoStepDefinition())
	require.NoError(t, err)
	require.NoError(t, pump(t, o, queue))

	_, err = o.SuggestNextSteps(ctx, api.SuggestRequest{
		Graph:       validTestGraph(),
		FocusNodeID: "node_end_point",
		JobID:       jobID,
	})
	require.NoError(t, err)
	require.Len(t, gotVars, 1)
	require.Equal(t, "#{node_step_1_task.Reason}", gotVars[0].Binding)
}

func TestSuggestOutline_ComposesPrompt(t *testing.T) {
	var gotPrompt string
	p := &funcProviders{
		outline: func(ctx context.Context, freeText string) (*api.ProcessDefinition, error) {
			gotPrompt = freeText
			return twoStepDefinition(), nil
		},
	}
	o, _, _ := newTestEngine(t, p.bundle(), nil)

	_, err := o.SuggestOutline(context.Background(), "Onboarding", "hiring a new employee")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(gotPrompt, "Onboarding"))
	require.Contains(t, gotPrompt, "hiring a new employee")

	_, err = o.SuggestOutline(context.Background(), "  ", "")
	require.ErrorIs(t, err, api.ErrInvalidRequest)
}

// The per-call timeout must cancel a provider that never returns.
func TestProviderTimeout_CancelsStuckProvider(t *testing.T) {
	ctx := context.Background()

	p := &funcProviders{
		transform: func(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
		repair: func(ctx context.Context, def *api.ProcessDefinition, invalid *api.ProcessGraph, reason string) (*api.ProcessGraph, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	store := jobstore.NewMemoryStore()
	queue := taskqueue.NewInMemoryQueue(64)
	o, err := New(Config{
		Store:           store,
		Queue:           queue,
		Providers:       p.bundle(),
		MaxAttempts:     1,
		ProviderTimeout: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	jobID, err := o.SubmitDefinition(ctx, twoStepDefinition())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- pump(t, o, queue) }()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stuck provider was not cancelled")
	}

	job, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, api.StateFailed, job.State)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Queue: taskqueue.NewInMemoryQueue(1)})
	require.Error(t, err)

	_, err = New(Config{Store: jobstore.NewMemoryStore()})
	require.Error(t, err)

	o, err := New(Config{
		Store: jobstore.NewMemoryStore(),
		Queue: taskqueue.NewInMemoryQueue(1),
	})
	require.NoError(t, err)
	require.Equal(t, DefaultMaxAttempts, o.maxAttempts)
}
