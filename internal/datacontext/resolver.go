// Package datacontext computes which data items are available "before" a
// focus node in a process graph, so suggestions can bind their inputs to
// upstream variables.
package datacontext

import (
	"fmt"

	"github.com/petrijr/copilot/pkg/api"
)

// Resolve returns the variables produced strictly before focusNodeID.
//
// The activity list is treated as topologically ordered by construction
// order (the transform stage keeps definition order), not by true graph
// reachability: collection stops at the first occurrence of focusNodeID and
// gathers every data entity whose SourceNodeID appears before it. This is a
// best-effort approximation, not a reachability proof; an exact resolver
// would walk incoming edges backwards from the focus node instead.
func Resolve(graph *api.ProcessGraph, data *api.DataModel, focusNodeID string) []api.VariableRef {
	if graph == nil || data == nil {
		return nil
	}

	upstream := make(map[string]struct{})
	for _, a := range graph.Activities {
		if a.ID == focusNodeID {
			break
		}
		upstream[a.ID] = struct{}{}
	}

	var vars []api.VariableRef
	for _, e := range data.Entities {
		if e.SourceNodeID == "" {
			continue
		}
		if _, ok := upstream[e.SourceNodeID]; !ok {
			continue
		}
		vars = append(vars, api.VariableRef{
			VariableName: e.Alias,
			SourceNodeID: e.SourceNodeID,
			Type:         e.Type,
			Description:  e.Label,
			Binding:      fmt.Sprintf("#{%s.%s}", e.SourceNodeID, e.Alias),
		})
	}
	return vars
}
