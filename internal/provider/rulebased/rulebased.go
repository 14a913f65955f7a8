// Package rulebased implements every capability-provider interface with
// deterministic rules. It exists so the server can run end to end without a
// remote model and so pipeline tests stay hermetic; the orchestrator treats
// it exactly like any other opaque provider.
package rulebased

import (
	"strings"
	"unicode"

	"github.com/petrijr/copilot/pkg/api"
)

// Provider implements api.Outliner, api.Transformer, api.DataModeler,
// api.FormDesigner and api.Suggester with pure, deterministic rules.
type Provider struct{}

// New returns an api.Providers bundle backed by one rule-based Provider.
func New() api.Providers {
	p := &Provider{}
	return api.Providers{
		Outliner:     p,
		Transformer:  p,
		DataModeler:  p,
		FormDesigner: p,
		Suggester:    p,
	}
}

var _ api.Outliner = (*Provider)(nil)
var _ api.Transformer = (*Provider)(nil)
var _ api.DataModeler = (*Provider)(nil)
var _ api.FormDesigner = (*Provider)(nil)
var _ api.Suggester = (*Provider)(nil)

// knownRoles maps leading clause words to swimlane roles.
var knownRoles = map[string]string{
	"employee":  "Employee",
	"manager":   "Manager",
	"user":      "User",
	"customer":  "Customer",
	"admin":     "Admin",
	"system":    "System",
	"finance":   "Finance Team",
	"hr":        "HR",
	"reviewer":  "Reviewer",
	"applicant": "Applicant",
}

// decisionHints flag a clause as a branching point.
var decisionHints = []string{
	"approve", "reject", "review", "decide", "check", "verify", "confirm",
}

func isDecision(clause string) bool {
	lower := strings.ToLower(clause)
	for _, hint := range decisionHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func inferRole(clause string) string {
	fields := strings.Fields(strings.ToLower(clause))
	if len(fields) == 0 {
		return "User"
	}
	if role, ok := knownRoles[fields[0]]; ok {
		return role
	}
	return "User"
}

// titleCase uppercases the first letter of each word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// pascalCase turns free text into a PascalCase identifier.
func pascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upper {
				b.WriteRune(unicode.ToUpper(r))
				upper = false
			} else {
				b.WriteRune(r)
			}
		default:
			upper = true
		}
	}
	return b.String()
}

// snakeCase turns free text into a snake_case identifier.
func snakeCase(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}
