package rulebased

import (
	"context"
	"fmt"
	"strings"

	"github.com/petrijr/copilot/pkg/api"
)

// fieldTemplate is one atomic entity derived from a task.
type fieldTemplate struct {
	alias string
	label string
	typ   string
}

// domainFields maps task-name keywords to the atomic fields a form for
// that task would collect.
var domainFields = []struct {
	keyword string
	fields  []fieldTemplate
}{
	{"leave", []fieldTemplate{
		{"LeaveType", "Type of leave", "lookup"},
		{"StartDate", "First day of leave", "date"},
		{"EndDate", "Last day of leave", "date"},
		{"Reason", "Reason for the request", "string"},
	}},
	{"expense", []fieldTemplate{
		{"ExpenseDate", "Date of the expense", "date"},
		{"Category", "Expense category", "lookup"},
		{"Amount", "Amount claimed", "number"},
		{"ReceiptImage", "Receipt attachment", "file"},
	}},
}

// approvalFields are collected by any approval/review task.
var approvalFields = []fieldTemplate{
	{"Decision", "Approve or reject", "lookup"},
	{"Comment", "Reviewer comment", "string"},
}

// defaultFields cover tasks with no recognized domain.
var defaultFields = []fieldTemplate{
	{"Summary", "Short summary", "string"},
	{"Details", "Detailed description", "string"},
}

// ModelData explodes each user task of the graph into atomic data entities
// attributed to the producing node, grouped per source node.
func (p *Provider) ModelData(ctx context.Context, graph *api.ProcessGraph) (*api.DataModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if graph == nil || len(graph.Activities) == 0 {
		return nil, fmt.Errorf("rulebased: empty graph")
	}

	model := &api.DataModel{}

	for _, a := range graph.Activities {
		if a.Type != api.NodeUserTask {
			continue
		}

		templates := fieldsForTask(&a)
		group := api.EntityGroup{Name: a.Name}
		for _, tmpl := range templates {
			model.Entities = append(model.Entities, api.DataEntity{
				Alias:        tmpl.alias,
				Label:        tmpl.label,
				Type:         tmpl.typ,
				SourceNodeID: a.ID,
			})
			group.Aliases = append(group.Aliases, tmpl.alias)
		}
		model.Groups = append(model.Groups, group)
	}

	if len(model.Entities) == 0 {
		return nil, fmt.Errorf("rulebased: graph has no user tasks to model data for")
	}
	return model, nil
}

func fieldsForTask(a *api.Activity) []fieldTemplate {
	if isApprovalTask(a) {
		return approvalFields
	}
	name := strings.ToLower(a.Name)
	for _, d := range domainFields {
		if strings.Contains(name, d.keyword) {
			return d.fields
		}
	}
	return defaultFields
}

func isApprovalTask(a *api.Activity) bool {
	if a.Configuration != nil {
		if v, ok := a.Configuration.Params["isApproval"].(bool); ok && v {
			return true
		}
	}
	return isDecision(a.Name)
}

// componentFor maps an entity type to its form UI component.
func componentFor(entityType string) string {
	switch entityType {
	case "number":
		return "input_number"
	case "date":
		return "date_picker"
	case "lookup":
		return "dropdown"
	case "file":
		return "file_upload"
	default:
		return "input_text"
	}
}

// DesignForm builds one form model covering the graph's collected data,
// with a field group per entity group and components chosen by entity type.
func (p *Provider) DesignForm(ctx context.Context, graph *api.ProcessGraph, data *api.DataModel) (*api.FormModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if data == nil || len(data.Entities) == 0 {
		return nil, fmt.Errorf("rulebased: no data entities to design a form for")
	}

	byAlias := make(map[string]api.DataEntity, len(data.Entities))
	for _, e := range data.Entities {
		byAlias[e.Alias] = e
	}

	name := pascalCase(graph.Name)
	if name == "" {
		name = "GeneratedProcess"
	}

	form := &api.FormModel{FormName: name + "Form"}
	for _, g := range data.Groups {
		fg := api.FieldGroup{Name: g.Name}
		for _, alias := range g.Aliases {
			e, ok := byAlias[alias]
			if !ok {
				continue
			}
			fg.Fields = append(fg.Fields, api.FormField{
				ID:          "field_" + snakeCase(alias),
				Label:       e.Label,
				Component:   componentFor(e.Type),
				EntityAlias: e.Alias,
				Required:    e.Alias == "Decision",
			})
		}
		if len(fg.Fields) > 0 {
			form.FieldGroups = append(form.FieldGroups, fg)
		}
	}

	return form, nil
}
