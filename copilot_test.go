package copilot

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func waitForTerminal(t *testing.T, svc *Service, jobID string) *Job {
	t.Helper()
	ctx := context.Background()

	deadline := time.After(10 * time.Second)
	for {
		job, err := svc.GetJob(ctx, jobID)
		require.NoError(t, err)
		if job.State.Terminal() {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s did not reach a terminal state (last: %s %q)", jobID, job.State, job.Message)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestInMemoryService_EndToEnd(t *testing.T) {
	svc, err := NewInMemoryService(NewRuleBasedProviders())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Worker(nil).Run(ctx)

	jobID, err := svc.SubmitPrompt(ctx,
		"employee submits a leave request, then manager approves the request")
	require.NoError(t, err)

	job := waitForTerminal(t, svc, jobID)
	require.Equal(t, StateCompleted, job.State)
	require.Equal(t, "generation complete", job.Message)
	require.Equal(t, StageForm, job.LastUpdatedStage)

	require.NotNil(t, job.Process)
	require.NotEmpty(t, job.Process.Activities)
	require.NotNil(t, job.Data)
	require.NotEmpty(t, job.Data.Entities)
	require.NotNil(t, job.Form)
	require.NotEmpty(t, job.Form.FieldGroups)
	require.Greater(t, job.Version, int64(0))
}

func TestSQLiteService_EndToEnd(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	svc, err := NewSQLiteService(db, NewRuleBasedProviders())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Worker(nil).Run(ctx)

	jobID, err := svc.SubmitDefinition(ctx, &ProcessDefinition{
		Topic: "Expense Approval",
		Steps: []ProcessStep{
			{StepID: "step_1", Name: "Submit Expense", Role: "Employee", Type: StepAction},
			{StepID: "step_2", Name: "Approve Expense", Role: "Manager", Type: StepDecision},
		},
	})
	require.NoError(t, err)

	job := waitForTerminal(t, svc, jobID)
	require.Equal(t, StateCompleted, job.State)
	require.NotNil(t, job.Process)
	require.NotNil(t, job.Data)
	require.NotNil(t, job.Form)
}

func TestService_SuggestNextStepsUsesCommittedArtifacts(t *testing.T) {
	svc, err := NewInMemoryService(NewRuleBasedProviders())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Worker(nil).Run(ctx)

	jobID, err := svc.SubmitPrompt(ctx,
		"employee submits an expense report, then manager approves the expense")
	require.NoError(t, err)
	job := waitForTerminal(t, svc, jobID)
	require.Equal(t, StateCompleted, job.State)

	resp, err := svc.SuggestNextSteps(ctx, SuggestRequest{
		Graph:       job.Process,
		FocusNodeID: "node_end_point",
		JobID:       jobID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Suggestions)
}
