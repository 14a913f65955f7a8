// Package validate implements the structural-integrity gate for generated
// process graphs. It proves that a graph is traversable without dangling
// references; it does not judge semantic quality or reachability (see the
// analysis package for the richer, advisory audit).
package validate

import (
	"github.com/petrijr/copilot/pkg/api"
)

// Validate checks a candidate process graph for structural well-formedness.
// It returns nil for a valid graph, or an *api.StructuralError whose reason
// names the offending node and the defect so it can be fed back verbatim to
// the repair capability.
//
// The check is a single linear pass over nodes and gateway conditions:
//
//  1. the graph must contain at least one node;
//  2. every link target must be a node physically present in the graph
//     (there is no implicit or synthetic terminal target);
//  3. every non-gateway, non-end node must declare a NextActivityID;
//  4. every gateway condition target must reference an existing node;
//  5. at least one end_event node must exist, and an end_event must never
//     declare a NextActivityID.
//
// Validate has no hidden state: re-validating the same graph yields the same
// result every time.
func Validate(g *api.ProcessGraph) error {
	if g == nil || len(g.Activities) == 0 {
		return api.NewStructuralError("", "process must have at least one activity")
	}

	validIDs := g.NodeIDs()

	hasEndEvent := false

	for i := range g.Activities {
		a := &g.Activities[i]

		if a.Type == api.NodeEndEvent {
			hasEndEvent = true
			if a.NextActivityID != "" {
				return api.NewStructuralError(a.ID,
					"logical error: end node '%s' must not declare a nextActivityId", a.ID)
			}
			continue
		}

		if a.Type == api.NodeExclusiveGateway {
			for _, cond := range a.Conditions() {
				if cond.TargetActivityID == "" {
					return api.NewStructuralError(a.ID,
						"structural error: branch condition in node '%s' has no targetActivityId", a.ID)
				}
				if _, ok := validIDs[cond.TargetActivityID]; !ok {
					return api.NewStructuralError(a.ID,
						"structural error: branch condition in node '%s' refers to non-existent node '%s' as targetActivityId",
						a.ID, cond.TargetActivityID)
				}
			}
			continue
		}

		// Plain task/start nodes: a single outgoing link is mandatory.
		if a.NextActivityID == "" {
			return api.NewStructuralError(a.ID,
				"broken flow: node '%s' (type %s) has no next step (nextActivityId)", a.ID, a.Type)
		}
		if _, ok := validIDs[a.NextActivityID]; !ok {
			return api.NewStructuralError(a.ID,
				"structural error: node '%s' refers to non-existent node '%s' as nextActivityId",
				a.ID, a.NextActivityID)
		}
	}

	if !hasEndEvent {
		return api.NewStructuralError("", "process has no terminal node of type 'end_event'")
	}

	return nil
}
