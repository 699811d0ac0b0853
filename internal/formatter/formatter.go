// Package formatter renders a resolved principle list into the text body
// injected into a context file. Agents other than Claude can register their
// own Formatter; the Resolver is agnostic to the rendering beyond the
// contract below.
package formatter

import (
	"fmt"
	"strings"

	"cerno/internal/model"
)

// Options carries per-resolve overrides a Formatter may use.
type Options struct {
	Agent string
}

// Formatter renders a final principle list (already ordered, already
// carrying any "[CONFLICT] " content prefix) into injectable text.
type Formatter interface {
	FormatSections(principles []*model.Principle, opts Options) (string, error)
	MaxOutputTokens() int
}

var registry = map[string]Formatter{
	"claude": NewClaudeFormatter(),
}

// Get looks up a formatter by name (case-insensitive), defaulting to the
// Claude formatter when name is empty or unregistered.
func Get(name string) Formatter {
	key := strings.ToLower(strings.TrimSpace(name))
	if f, ok := registry[key]; ok {
		return f
	}
	return registry["claude"]
}

// ClaudeFormatter renders principles grouped by category as markdown
// bullets, annotated with confidence and rank so the consuming agent can
// weigh conflicting guidance.
type ClaudeFormatter struct{}

func NewClaudeFormatter() *ClaudeFormatter { return &ClaudeFormatter{} }

const claudeMaxOutputTokens = 4000

func (f *ClaudeFormatter) MaxOutputTokens() int { return claudeMaxOutputTokens }

func (f *ClaudeFormatter) FormatSections(principles []*model.Principle, opts Options) (string, error) {
	if len(principles) == 0 {
		return "No prior knowledge is associated with this file yet.", nil
	}

	grouped := make(map[model.PrincipleCategory][]*model.Principle)
	var order []model.PrincipleCategory
	for _, p := range principles {
		if _, ok := grouped[p.Category]; !ok {
			order = append(order, p.Category)
		}
		grouped[p.Category] = append(grouped[p.Category], p)
	}

	var b strings.Builder
	for _, cat := range order {
		fmt.Fprintf(&b, "### %s\n\n", categoryHeading(cat))
		for _, p := range grouped[cat] {
			fmt.Fprintf(&b, "- %s _(confidence %.2f, rank %.2f)_\n", p.Content, p.Confidence, p.Rank)
			if p.Elaboration != "" {
				fmt.Fprintf(&b, "  %s\n", p.Elaboration)
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func categoryHeading(c model.PrincipleCategory) string {
	switch c {
	case model.PrincipleCategoryAntiPattern:
		return "Anti-patterns"
	case model.PrincipleCategoryHeuristic:
		return "Heuristics"
	case model.PrincipleCategoryLearning:
		return "Learnings"
	case model.PrincipleCategoryMoral:
		return "Principles"
	case model.PrincipleCategoryPrinciple:
		return "Principles"
	default:
		return "Notes"
	}
}
