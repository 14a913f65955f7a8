package rulebased

import (
	"context"
	"fmt"
	"strings"

	"github.com/petrijr/copilot/pkg/api"
)

// SuggestNextSteps proposes candidate next nodes for the focus position,
// preferring actions that consume the upstream variables it is given. The
// result is deterministic for a given graph and variable set.
func (p *Provider) SuggestNextSteps(ctx context.Context, graph *api.ProcessGraph, focusNodeID string, vars []api.VariableRef) (*api.SuggestionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if graph == nil {
		return nil, fmt.Errorf("rulebased: no graph to suggest against")
	}

	resp := &api.SuggestionResponse{}

	if v, ok := findVar(vars, "email"); ok {
		resp.Suggestions = append(resp.Suggestions, api.Suggestion{
			Type:   api.NodeServiceTask,
			Name:   "Send Email",
			Reason: fmt.Sprintf("Sends a notification to the address collected by %s", v.SourceNodeID),
			InputMapping: map[string]string{
				"recipient": v.Binding,
			},
			Configuration: &api.NodeConfig{
				Params: map[string]any{"serviceType": "EMAIL"},
			},
		})
	}

	if v, ok := findVarByType(vars, "number"); ok {
		resp.Suggestions = append(resp.Suggestions, api.Suggestion{
			Type:   api.NodeExclusiveGateway,
			Name:   "Threshold Check",
			Reason: fmt.Sprintf("Routes on the %s value collected by %s", v.VariableName, v.SourceNodeID),
			InputMapping: map[string]string{
				"amount": v.Binding,
			},
			Configuration: &api.NodeConfig{
				Conditions: []api.BranchCondition{
					{Expression: v.Binding + " > 1000"},
					{Expression: v.Binding + " <= 1000"},
				},
			},
		})
	}

	// Always offer a review step; bind it to the first upstream variable
	// when one exists.
	review := api.Suggestion{
		Type:   api.NodeUserTask,
		Name:   "Manager Review",
		Reason: "Adds a human checkpoint before the process continues",
	}
	if len(vars) > 0 {
		review.Reason = fmt.Sprintf("Reviews the %s collected by %s", vars[0].VariableName, vars[0].SourceNodeID)
		review.InputMapping = map[string]string{
			"subject": vars[0].Binding,
		}
	}
	resp.Suggestions = append(resp.Suggestions, review)

	return resp, nil
}

func findVar(vars []api.VariableRef, nameHint string) (api.VariableRef, bool) {
	for _, v := range vars {
		if strings.Contains(strings.ToLower(v.VariableName), nameHint) {
			return v, true
		}
	}
	return api.VariableRef{}, false
}

func findVarByType(vars []api.VariableRef, typ string) (api.VariableRef, bool) {
	for _, v := range vars {
		if v.Type == typ {
			return v, true
		}
	}
	return api.VariableRef{}, false
}
