// Package analysis performs a richer, advisory structural audit of process
// graphs: reachability, dead ends, disconnected islands and gateway logic
// gaps. Unlike the validate package it is not a gate; its findings are
// meant for a human or agent reviewer, and an imperfect graph may still be
// committed.
package analysis

import (
	"fmt"

	"github.com/petrijr/copilot/pkg/api"
)

// FindingType classifies an audit finding.
type FindingType string

const (
	// MissingInput marks a node (other than a start event) that no link
	// reaches.
	MissingInput FindingType = "MISSING_INPUT"

	// MissingOutput marks a node (other than an end event) with no outgoing
	// link.
	MissingOutput FindingType = "MISSING_OUTPUT"

	// DisconnectedFlow marks a node unreachable from any start event.
	DisconnectedFlow FindingType = "DISCONNECTED_FLOW"

	// LogicGap marks a gateway with fewer than two outgoing branches.
	LogicGap FindingType = "LOGIC_GAP"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Finding is one audit result for a node.
type Finding struct {
	Type         FindingType `json:"type"`
	Severity     Severity    `json:"severity"`
	TargetNodeID string      `json:"targetNodeId"`
	Message      string      `json:"message"`
}

// Report is the full audit output for one graph snapshot.
type Report struct {
	Findings []Finding `json:"results"`
}

// Analyze audits the graph and returns every finding, in node order.
// An empty report means no structural concerns were detected.
func Analyze(g *api.ProcessGraph) *Report {
	rep := &Report{}
	if g == nil || len(g.Activities) == 0 {
		return rep
	}

	out := outgoing(g)

	incoming := make(map[string]int, len(g.Activities))
	for _, targets := range out {
		for _, t := range targets {
			incoming[t]++
		}
	}

	reachable := reachableFromStarts(g, out)

	for _, a := range g.Activities {
		if a.Type != api.NodeStartEvent && incoming[a.ID] == 0 {
			rep.add(MissingInput, SeverityError, a.ID,
				fmt.Sprintf("node '%s' has no incoming link", a.ID))
		}
		if a.Type != api.NodeEndEvent && len(out[a.ID]) == 0 {
			rep.add(MissingOutput, SeverityError, a.ID,
				fmt.Sprintf("node '%s' is a dead end", a.ID))
		}
		if _, ok := reachable[a.ID]; !ok && a.Type != api.NodeStartEvent {
			rep.add(DisconnectedFlow, SeverityWarning, a.ID,
				fmt.Sprintf("node '%s' is not reachable from any start event", a.ID))
		}
		if a.Type == api.NodeExclusiveGateway && len(a.Conditions()) < 2 {
			rep.add(LogicGap, SeverityWarning, a.ID,
				fmt.Sprintf("gateway '%s' has %d branch(es); an exclusive choice needs at least two", a.ID, len(a.Conditions())))
		}
	}

	return rep
}

func (r *Report) add(ft FindingType, sev Severity, nodeID, msg string) {
	r.Findings = append(r.Findings, Finding{
		Type:         ft,
		Severity:     sev,
		TargetNodeID: nodeID,
		Message:      msg,
	})
}

// outgoing builds the adjacency list from plain links and gateway branches.
// Targets not present in the graph are skipped; dangling references are the
// validator's concern.
func outgoing(g *api.ProcessGraph) map[string][]string {
	ids := g.NodeIDs()
	out := make(map[string][]string, len(g.Activities))
	for _, a := range g.Activities {
		if a.NextActivityID != "" {
			if _, ok := ids[a.NextActivityID]; ok {
				out[a.ID] = append(out[a.ID], a.NextActivityID)
			}
		}
		for _, cond := range a.Conditions() {
			if _, ok := ids[cond.TargetActivityID]; ok {
				out[a.ID] = append(out[a.ID], cond.TargetActivityID)
			}
		}
	}
	return out
}

// reachableFromStarts runs a BFS over the outgoing adjacency from every
// start event. When the graph has no start event, the first activity is
// used as the root so the audit still produces a useful island report.
func reachableFromStarts(g *api.ProcessGraph, out map[string][]string) map[string]struct{} {
	var queue []string
	for _, a := range g.Activities {
		if a.Type == api.NodeStartEvent {
			queue = append(queue, a.ID)
		}
	}
	if len(queue) == 0 {
		queue = append(queue, g.Activities[0].ID)
	}

	seen := make(map[string]struct{}, len(g.Activities))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		queue = append(queue, out[id]...)
	}
	return seen
}
