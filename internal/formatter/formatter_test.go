package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerno/internal/model"
)

func TestFormatSections_EmptyListReturnsPlaceholder(t *testing.T) {
	f := NewClaudeFormatter()
	out, err := f.FormatSections(nil, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "No prior knowledge")
}

func TestFormatSections_GroupsByCategoryAndIncludesConflictPrefix(t *testing.T) {
	f := NewClaudeFormatter()
	principles := []*model.Principle{
		{Content: "prefer small functions", Category: model.PrincipleCategoryHeuristic, Confidence: 0.9, Rank: 0.7},
		{Content: "[CONFLICT] never write small functions", Category: model.PrincipleCategoryHeuristic, Confidence: 0.6, Rank: 0.4},
	}
	out, err := f.FormatSections(principles, Options{Agent: "claude"})
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Heuristics"))
	assert.True(t, strings.Contains(out, "[CONFLICT] never write small functions"))
}

func TestGet_DefaultsToClaudeForUnknownName(t *testing.T) {
	assert.IsType(t, &ClaudeFormatter{}, Get("unknown-agent"))
	assert.IsType(t, &ClaudeFormatter{}, Get(""))
}
