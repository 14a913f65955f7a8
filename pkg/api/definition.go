package api

// StepType classifies a definition step.
type StepType string

const (
	// StepAction is performed by a user or a system without branching.
	StepAction StepType = "ACTION"

	// StepDecision is a branching point, typically an approval or check.
	StepDecision StepType = "DECISION"
)

// ProcessStep is one entry of a process definition list.
type ProcessStep struct {
	StepID      string   `json:"stepId"`
	Name        string   `json:"name"`
	Role        string   `json:"role,omitempty"`
	Description string   `json:"description,omitempty"`
	Type        StepType `json:"type"`
}

// ProcessDefinition is the structured step list produced by the outline
// stage (or submitted directly by a client). It is the pre-graph business
// view of the process: a flat, ordered list with no topology yet.
type ProcessDefinition struct {
	Topic string        `json:"topic"`
	Steps []ProcessStep `json:"steps"`
}

// Empty reports whether the definition carries no usable steps.
func (d *ProcessDefinition) Empty() bool {
	return d == nil || len(d.Steps) == 0
}
