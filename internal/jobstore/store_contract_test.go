package jobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/copilot/pkg/api"
)

// testStoreContract runs the behavior every Store backend must share.
func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create initial snapshot", func(t *testing.T) {
		job, err := store.Create(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, job.ID)
		require.Equal(t, api.StatePending, job.State)
		require.Equal(t, api.StageInit, job.LastUpdatedStage)
		require.Equal(t, InitialMessage, job.Message)
		require.Equal(t, int64(0), job.Version)
		require.Nil(t, job.Process)
		require.Nil(t, job.Data)
		require.Nil(t, job.Form)
	})

	t.Run("get unknown job", func(t *testing.T) {
		_, err := store.Get(ctx, "no-such-id")
		require.ErrorIs(t, err, api.ErrJobNotFound)
	})

	t.Run("version increments on every mutation", func(t *testing.T) {
		job, err := store.Create(ctx)
		require.NoError(t, err)

		j1, err := store.TransitionState(ctx, job.ID, api.StateProcessing, "step 1")
		require.NoError(t, err)
		require.Equal(t, int64(1), j1.Version)

		// A message-only update still bumps the version.
		j2, err := store.TransitionState(ctx, job.ID, api.StateProcessing, "step 2")
		require.NoError(t, err)
		require.Equal(t, int64(2), j2.Version)

		j3, err := store.CommitArtifact(ctx, job.ID, api.StageProcess, &api.ProcessGraph{Name: "P"})
		require.NoError(t, err)
		require.Equal(t, int64(3), j3.Version)
	})

	t.Run("commit sets stage and state", func(t *testing.T) {
		job, err := store.Create(ctx)
		require.NoError(t, err)

		committed, err := store.CommitArtifact(ctx, job.ID, api.StageData, &api.DataModel{})
		require.NoError(t, err)
		require.Equal(t, api.StateProcessing, committed.State)
		require.Equal(t, api.StageData, committed.LastUpdatedStage)
		require.NotNil(t, committed.Data)
	})

	t.Run("commits preserve earlier artifacts", func(t *testing.T) {
		job, err := store.Create(ctx)
		require.NoError(t, err)

		_, err = store.CommitArtifact(ctx, job.ID, api.StageProcess, &api.ProcessGraph{Name: "Flow"})
		require.NoError(t, err)
		_, err = store.CommitArtifact(ctx, job.ID, api.StageData, &api.DataModel{
			Entities: []api.DataEntity{{Alias: "X", Type: "string"}},
		})
		require.NoError(t, err)
		_, err = store.CommitArtifact(ctx, job.ID, api.StageForm, &api.FormModel{FormName: "XForm"})
		require.NoError(t, err)

		got, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Process)
		require.Equal(t, "Flow", got.Process.Name)
		require.NotNil(t, got.Data)
		require.NotNil(t, got.Form)
		require.Equal(t, api.StageForm, got.LastUpdatedStage)
	})

	t.Run("artifact type must match stage", func(t *testing.T) {
		job, err := store.Create(ctx)
		require.NoError(t, err)

		_, err = store.CommitArtifact(ctx, job.ID, api.StageProcess, &api.DataModel{})
		require.Error(t, err)

		// The failed commit must not touch the snapshot.
		got, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		require.Equal(t, int64(0), got.Version)
	})

	t.Run("terminal jobs reject mutation", func(t *testing.T) {
		for _, terminal := range []api.JobState{api.StateCompleted, api.StateFailed} {
			job, err := store.Create(ctx)
			require.NoError(t, err)

			_, err = store.TransitionState(ctx, job.ID, terminal, "done")
			require.NoError(t, err)

			_, err = store.TransitionState(ctx, job.ID, api.StateProcessing, "again")
			require.ErrorIs(t, err, api.ErrJobTerminal)

			_, err = store.CommitArtifact(ctx, job.ID, api.StageProcess, &api.ProcessGraph{})
			require.ErrorIs(t, err, api.ErrJobTerminal)

			// State and version are frozen.
			got, err := store.Get(ctx, job.ID)
			require.NoError(t, err)
			require.Equal(t, terminal, got.State)
			require.Equal(t, int64(1), got.Version)
		}
	})

	t.Run("list with filter", func(t *testing.T) {
		job, err := store.Create(ctx)
		require.NoError(t, err)
		_, err = store.TransitionState(ctx, job.ID, api.StateFailed, "generation failed: boom")
		require.NoError(t, err)

		failed, err := store.List(ctx, Filter{State: api.StateFailed})
		require.NoError(t, err)
		found := false
		for _, j := range failed {
			require.Equal(t, api.StateFailed, j.State)
			if j.ID == job.ID {
				found = true
			}
		}
		require.True(t, found, "failed job should be listed")
	})
}
