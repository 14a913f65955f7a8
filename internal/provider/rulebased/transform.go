package rulebased

import (
	"context"
	"fmt"

	"github.com/petrijr/copilot/pkg/api"
)

const (
	startNodeID = "node_start"
	endNodeID   = "node_end_point"
)

// Transform converts a step list into a process map using the namespace ID
// pattern node_<stepId>_<suffix>. ACTION steps become a single task node;
// DECISION steps decompose into a review task followed by an exclusive
// gateway whose approve branch moves forward and whose reject branch loops
// back to the previous step (or ends the process when there is none).
func (p *Provider) Transform(ctx context.Context, def *api.ProcessDefinition) (*api.ProcessGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if def.Empty() {
		return nil, fmt.Errorf("rulebased: definition has no steps")
	}

	graph := &api.ProcessGraph{Name: def.Topic}

	// entry[i] is the first node of step i; exit targets are resolved after
	// all entries are known.
	entries := make([]string, len(def.Steps))
	for i, step := range def.Steps {
		if step.Type == api.StepDecision {
			entries[i] = fmt.Sprintf("node_%s_review", step.StepID)
		} else {
			entries[i] = fmt.Sprintf("node_%s_task", step.StepID)
		}
	}
	entryAfter := func(i int) string {
		if i+1 < len(entries) {
			return entries[i+1]
		}
		return endNodeID
	}
	entryBefore := func(i int) string {
		if i > 0 {
			return entries[i-1]
		}
		return endNodeID
	}

	graph.Activities = append(graph.Activities, api.Activity{
		ID:             startNodeID,
		Type:           api.NodeStartEvent,
		Name:           "Start",
		NextActivityID: entries[0],
	})

	for i, step := range def.Steps {
		lane := "lane_" + snakeCase(step.Role)

		if step.Type == api.StepDecision {
			gatewayID := fmt.Sprintf("node_%s_gateway", step.StepID)
			graph.Activities = append(graph.Activities,
				api.Activity{
					ID:             entries[i],
					Type:           api.NodeUserTask,
					Name:           step.Name,
					Lane:           lane,
					NextActivityID: gatewayID,
					Configuration: &api.NodeConfig{
						Params: map[string]any{"isApproval": true},
					},
				},
				api.Activity{
					ID:   gatewayID,
					Type: api.NodeExclusiveGateway,
					Name: step.Name + " Decision",
					Lane: lane,
					Configuration: &api.NodeConfig{
						Conditions: []api.BranchCondition{
							{
								Expression:       fmt.Sprintf("#{%s.Decision} == 'approve'", entries[i]),
								TargetActivityID: entryAfter(i),
							},
							{
								Expression:       fmt.Sprintf("#{%s.Decision} == 'reject'", entries[i]),
								TargetActivityID: entryBefore(i),
							},
						},
					},
				},
			)
			continue
		}

		nodeType := api.NodeUserTask
		if step.Role == "System" {
			nodeType = api.NodeServiceTask
		}
		graph.Activities = append(graph.Activities, api.Activity{
			ID:             entries[i],
			Type:           nodeType,
			Name:           step.Name,
			Lane:           lane,
			NextActivityID: entryAfter(i),
		})
	}

	graph.Activities = append(graph.Activities, api.Activity{
		ID:   endNodeID,
		Type: api.NodeEndEvent,
		Name: "End",
	})

	return graph, nil
}

// Repair applies targeted fixes to the reported defect without refactoring
// unrelated parts of the graph: missing terminals are appended, dangling or
// absent links are re-pointed at the end node, and terminal nodes lose any
// outgoing link. The reason string is accepted as guidance but the repair
// re-checks every link, so a stale reason cannot make it miss the defect.
func (p *Provider) Repair(ctx context.Context, def *api.ProcessDefinition, invalid *api.ProcessGraph, reason string) (*api.ProcessGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if invalid == nil || len(invalid.Activities) == 0 {
		// Nothing salvageable; regenerate from the definition.
		return p.Transform(ctx, def)
	}

	fixed := &api.ProcessGraph{
		Name:       invalid.Name,
		Activities: make([]api.Activity, len(invalid.Activities)),
	}
	copy(fixed.Activities, invalid.Activities)

	terminalID := ""
	for _, a := range fixed.Activities {
		if a.Type == api.NodeEndEvent {
			terminalID = a.ID
			break
		}
	}
	if terminalID == "" {
		terminalID = endNodeID
		fixed.Activities = append(fixed.Activities, api.Activity{
			ID:   terminalID,
			Type: api.NodeEndEvent,
			Name: "End",
		})
	}

	ids := fixed.NodeIDs()

	for i := range fixed.Activities {
		a := &fixed.Activities[i]

		if a.Type == api.NodeEndEvent {
			a.NextActivityID = ""
			continue
		}

		if a.Type == api.NodeExclusiveGateway {
			if a.Configuration == nil {
				continue
			}
			for j := range a.Configuration.Conditions {
				cond := &a.Configuration.Conditions[j]
				if _, ok := ids[cond.TargetActivityID]; !ok {
					cond.TargetActivityID = terminalID
				}
			}
			continue
		}

		if a.NextActivityID == "" {
			a.NextActivityID = terminalID
			continue
		}
		if _, ok := ids[a.NextActivityID]; !ok {
			a.NextActivityID = terminalID
		}
	}

	return fixed, nil
}
