package api

// NodeType is the semantic type of a workflow node.
type NodeType string

const (
	// NodeStartEvent marks the logical start of the process.
	NodeStartEvent NodeType = "start_event"

	// NodeUserTask is a step requiring human interaction, e.g. filling a
	// form or approving a request.
	NodeUserTask NodeType = "user_task"

	// NodeServiceTask is an automated system action, e.g. sending an email.
	NodeServiceTask NodeType = "service_task"

	// NodeExclusiveGateway is a branching point choosing exactly one path.
	// Its configuration carries Conditions instead of a NextActivityID.
	NodeExclusiveGateway NodeType = "exclusive_gateway"

	// NodeEndEvent marks the logical end of the process.
	// It must never declare a NextActivityID.
	NodeEndEvent NodeType = "end_event"
)

// BranchCondition routes one outgoing path of an exclusive gateway.
type BranchCondition struct {
	Expression       string `json:"expression"`
	TargetActivityID string `json:"targetActivityId"`
}

// NodeConfig is the type-dependent configuration payload of an activity.
// Params is free-form; Conditions is only meaningful on gateways.
type NodeConfig struct {
	Params     map[string]any    `json:"params,omitempty"`
	Conditions []BranchCondition `json:"conditions,omitempty"`
}

// Activity is a single typed node of a process graph.
type Activity struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Name string   `json:"name,omitempty"`

	// Lane is the swimlane (role) the activity belongs to.
	Lane string `json:"lane,omitempty"`

	// NextActivityID is the single outgoing link of non-branching nodes.
	// Empty means absent; gateways and end events leave it empty.
	NextActivityID string `json:"nextActivityId,omitempty"`

	Configuration *NodeConfig `json:"configuration,omitempty"`
}

// Conditions returns the activity's branch conditions, if any.
func (a *Activity) Conditions() []BranchCondition {
	if a.Configuration == nil {
		return nil
	}
	return a.Configuration.Conditions
}

// ProcessGraph is a directed graph of typed nodes representing a workflow.
// Activities are kept in construction order: the transform stage preserves
// the order of the definition steps it was derived from, which downstream
// consumers (notably the upstream variable resolver) rely on.
type ProcessGraph struct {
	Name       string     `json:"processName,omitempty"`
	Activities []Activity `json:"activities"`
}

// NodeIDs returns the set of real node identifiers in the graph.
func (g *ProcessGraph) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(g.Activities))
	for _, a := range g.Activities {
		ids[a.ID] = struct{}{}
	}
	return ids
}
