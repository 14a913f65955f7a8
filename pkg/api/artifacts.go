package api

// DataEntity is an atomic named field attributed to the node that produces
// it. SourceNodeID ties the entity back into the graph for upstream
// variable resolution.
type DataEntity struct {
	Alias       string `json:"alias"`
	Label       string `json:"label,omitempty"`
	Type        string `json:"type"`
	SourceNodeID string `json:"sourceNodeId"`
}

// EntityGroup clusters related entities for presentation.
type EntityGroup struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// DataModel is the data-entity artifact of a job.
type DataModel struct {
	Entities []DataEntity  `json:"entities"`
	Groups   []EntityGroup `json:"groups,omitempty"`
}

// FormField is a single input of a generated form.
type FormField struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Component   string `json:"component"`
	EntityAlias string `json:"entityAlias"`
	Required    bool   `json:"required,omitempty"`
}

// FieldGroup is a labeled section of a form.
type FieldGroup struct {
	Name   string      `json:"name"`
	Fields []FormField `json:"fields"`
}

// FormModel is the form artifact of a job.
type FormModel struct {
	FormName    string       `json:"formName"`
	FieldGroups []FieldGroup `json:"fieldGroups"`
}

// VariableRef describes one upstream variable available at a focus node,
// including the machine-bindable reference expression for input mapping.
type VariableRef struct {
	VariableName string `json:"variableName"`
	SourceNodeID string `json:"sourceNodeId"`
	Type         string `json:"type"`
	Description  string `json:"description,omitempty"`

	// Binding is the reference expression, "#{sourceNodeId.variableName}".
	Binding string `json:"bindingSyntax"`
}

// Suggestion is one candidate next node for a focus position in a graph.
type Suggestion struct {
	Type   NodeType `json:"type"`
	Name   string   `json:"name"`
	Reason string   `json:"reason,omitempty"`

	// InputMapping binds suggested node inputs to upstream variables using
	// the VariableRef binding syntax.
	InputMapping map[string]string `json:"inputMapping,omitempty"`

	Configuration *NodeConfig `json:"configuration,omitempty"`
}

// SuggestionResponse is the stateless suggest-next-steps result.
type SuggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}
