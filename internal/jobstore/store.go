// Package jobstore provides the versioned, concurrency-safe store of job
// status snapshots that polling clients read from.
//
// Every mutation is a total replacement of the stored snapshot with the
// version incremented by one, so readers always observe a consistent,
// immutable Job. Stores never mutate on their own and perform no validation;
// the orchestrator is the only writer.
package jobstore

import (
	"context"

	"github.com/petrijr/copilot/pkg/api"
)

// InitialMessage is the message of a freshly created job.
const InitialMessage = "waiting for processing"

// Filter selects jobs from the store. Zero values mean "no filter".
type Filter struct {
	State api.JobState
	Stage api.StageTag
}

// Store handles storage of job status snapshots.
//
// Per-id mutations are linearizable: concurrent TransitionState and
// CommitArtifact calls for the same job id never lose updates, and calls for
// different ids never interfere. Mutations on a job that has reached a
// terminal state return api.ErrJobTerminal.
type Store interface {
	// Create allocates a fresh job id and stores the initial snapshot:
	// PENDING, version 0, stage INIT, no artifacts, default message.
	Create(ctx context.Context) (*api.Job, error)

	// Get returns the current snapshot, or api.ErrJobNotFound.
	Get(ctx context.Context, jobID string) (*api.Job, error)

	// TransitionState replaces the snapshot with a new state and message,
	// preserving artifacts and stage tag and incrementing the version.
	TransitionState(ctx context.Context, jobID string, state api.JobState, message string) (*api.Job, error)

	// CommitArtifact replaces exactly one artifact slot, sets state to
	// PROCESSING, sets lastUpdatedStage to stage and increments the
	// version. The artifact must match the stage: *api.ProcessGraph for
	// PROCESS, *api.DataModel for DATA, *api.FormModel for FORM.
	CommitArtifact(ctx context.Context, jobID string, stage api.StageTag, artifact any) (*api.Job, error)

	// List returns the snapshots matching the filter, in no particular
	// order.
	List(ctx context.Context, filter Filter) ([]*api.Job, error)
}

// newJob builds the initial snapshot for a freshly allocated id.
func newJob(id string) *api.Job {
	return &api.Job{
		ID:               id,
		State:            api.StatePending,
		Message:          InitialMessage,
		LastUpdatedStage: api.StageInit,
		Version:          0,
	}
}

// applyArtifact writes artifact into the slot selected by stage on a copy
// of cur, returning the replacement snapshot. It is shared by the in-memory
// and Redis stores; the SQLite store expresses the same rule in SQL.
func applyArtifact(cur *api.Job, stage api.StageTag, artifact any) (*api.Job, error) {
	next := cur.Clone()

	switch stage {
	case api.StageProcess:
		g, ok := artifact.(*api.ProcessGraph)
		if !ok {
			return nil, artifactTypeError(stage, artifact)
		}
		next.Process = g
	case api.StageData:
		d, ok := artifact.(*api.DataModel)
		if !ok {
			return nil, artifactTypeError(stage, artifact)
		}
		next.Data = d
	case api.StageForm:
		f, ok := artifact.(*api.FormModel)
		if !ok {
			return nil, artifactTypeError(stage, artifact)
		}
		next.Form = f
	default:
		return nil, artifactTypeError(stage, artifact)
	}

	next.State = api.StateProcessing
	next.LastUpdatedStage = stage
	next.Version = cur.Version + 1
	return next, nil
}

func matches(j *api.Job, f Filter) bool {
	if f.State != "" && j.State != f.State {
		return false
	}
	if f.Stage != "" && j.LastUpdatedStage != f.Stage {
		return false
	}
	return true
}
