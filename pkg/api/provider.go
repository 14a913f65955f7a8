package api

import "context"

// Capability providers are the opaque generation collaborators of the
// pipeline. Each maps structured input to a structured candidate output or
// fails; the orchestrator neither knows nor cares whether a provider is a
// remote model, a rule engine, or a human. Providers may be slow and must
// honor ctx cancellation.

// Outliner drafts a structured step list from free text.
type Outliner interface {
	Outline(ctx context.Context, freeText string) (*ProcessDefinition, error)
}

// Transformer converts a step list into a candidate process graph, and
// repairs a rejected candidate given the validator's reason.
type Transformer interface {
	Transform(ctx context.Context, def *ProcessDefinition) (*ProcessGraph, error)

	// Repair receives the original step list, the last invalid candidate
	// and the verbatim failure reason, and returns a new candidate.
	Repair(ctx context.Context, def *ProcessDefinition, invalid *ProcessGraph, reason string) (*ProcessGraph, error)
}

// DataModeler derives atomic data entities from a committed process graph.
type DataModeler interface {
	ModelData(ctx context.Context, graph *ProcessGraph) (*DataModel, error)
}

// FormDesigner designs form models for the user tasks of a graph.
type FormDesigner interface {
	DesignForm(ctx context.Context, graph *ProcessGraph, data *DataModel) (*FormModel, error)
}

// Suggester proposes candidate next nodes for a focus position, consuming
// the upstream variables made available to it.
type Suggester interface {
	SuggestNextSteps(ctx context.Context, graph *ProcessGraph, focusNodeID string, vars []VariableRef) (*SuggestionResponse, error)
}

// Providers bundles one provider per generation stage so the orchestrator
// can depend on a single value.
type Providers struct {
	Outliner     Outliner
	Transformer  Transformer
	DataModeler  DataModeler
	FormDesigner FormDesigner
	Suggester    Suggester
}
