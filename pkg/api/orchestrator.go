package api

import "context"

// SuggestRequest is the stateless suggest-next-steps query.
type SuggestRequest struct {
	Graph       *ProcessGraph `json:"currentGraph"`
	FocusNodeID string        `json:"focusNodeId"`

	// JobID is optional. When it names a job holding both a process graph
	// and a data model, the suggestion is enriched with the upstream
	// variables available at the focus node.
	JobID string `json:"jobId,omitempty"`
}

// Orchestrator drives generation jobs from request to finalized artifacts,
// isolating callers from the instability of capability providers.
//
// Submit methods validate input synchronously, allocate a job and return its
// id immediately; all further progress is asynchronous and discovered by
// polling GetJob.
type Orchestrator interface {
	// SubmitPrompt starts the outline-first workflow from free text.
	SubmitPrompt(ctx context.Context, freeText string) (string, error)

	// SubmitDefinition starts the direct-transform workflow from an
	// already-structured step list.
	SubmitDefinition(ctx context.Context, def *ProcessDefinition) (string, error)

	// GetJob returns the current immutable snapshot for a job id.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// SuggestNextSteps answers the stateless suggestion query. It never
	// mutates job state.
	SuggestNextSteps(ctx context.Context, req SuggestRequest) (*SuggestionResponse, error)

	// SuggestOutline drafts a step list for a topic synchronously, without
	// creating a job.
	SuggestOutline(ctx context.Context, topic, description string) (*ProcessDefinition, error)
}
