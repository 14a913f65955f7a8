package rulebased

import (
	"context"
	"fmt"
	"strings"

	"github.com/petrijr/copilot/pkg/api"
)

// Outline drafts a step list by splitting the request into clauses. Each
// clause becomes one step; clauses containing approval or review language
// become DECISION steps.
func (p *Provider) Outline(ctx context.Context, freeText string) (*api.ProcessDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clauses := splitClauses(freeText)
	if len(clauses) == 0 {
		return nil, fmt.Errorf("rulebased: no process steps recognized in request")
	}

	def := &api.ProcessDefinition{
		Topic: titleCase(firstWords(freeText, 5)),
	}
	for i, clause := range clauses {
		stepType := api.StepAction
		if isDecision(clause) {
			stepType = api.StepDecision
		}
		def.Steps = append(def.Steps, api.ProcessStep{
			StepID:      fmt.Sprintf("step_%d", i+1),
			Name:        titleCase(clause),
			Role:        inferRole(clause),
			Description: clause,
			Type:        stepType,
		})
	}
	return def, nil
}

// splitClauses breaks free text into step-sized clauses on sentence
// punctuation and sequencing words.
func splitClauses(text string) []string {
	normalized := strings.NewReplacer(
		", then ", ". ",
		" then ", ". ",
		"; ", ". ",
		", ", ". ",
	).Replace(text)

	var clauses []string
	for _, part := range strings.Split(normalized, ".") {
		part = strings.TrimSpace(part)
		if part != "" {
			clauses = append(clauses, part)
		}
	}
	return clauses
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
