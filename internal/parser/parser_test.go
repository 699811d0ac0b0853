package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyFile(t *testing.T) {
	fragments, err := Parse("proj/CONTEXT.md", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestParse_NoHeadings(t *testing.T) {
	fragments, err := Parse("proj/CONTEXT.md", []byte("Just a preamble.\nSecond line.\n"))
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "", fragments[0].SectionHeading)
	assert.Equal(t, 1, fragments[0].LineStart)
}

func TestParse_SplitsOnH2(t *testing.T) {
	content := "# Title\n\n## Rules\n\nAlways use pattern matching.\n\n## Warnings\n\nNever delete prod data.\n"
	fragments, err := Parse("proj/CONTEXT.md", []byte(content))
	require.NoError(t, err)
	require.Len(t, fragments, 3)
	assert.Equal(t, "", fragments[0].SectionHeading)
	assert.Equal(t, "Rules", fragments[1].SectionHeading)
	assert.Contains(t, fragments[1].Content, "Always use pattern matching.")
	assert.Equal(t, "Warnings", fragments[2].SectionHeading)
	assert.Contains(t, fragments[2].Content, "Never delete prod data.")
}

func TestParse_DropsEmptySections(t *testing.T) {
	content := "## Empty\n\n## Rules\n\nSomething.\n"
	fragments, err := Parse("proj/CONTEXT.md", []byte(content))
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "Rules", fragments[0].SectionHeading)
}

func TestFragmentID_Stable(t *testing.T) {
	fragments1, _ := Parse("a/CONTEXT.md", []byte("## X\n\nSame content.\n"))
	fragments2, _ := Parse("a/CONTEXT.md", []byte("## X\n\nSame content.\n"))
	require.Len(t, fragments1, 1)
	require.Len(t, fragments2, 1)
	assert.Equal(t, fragments1[0].ID, fragments2[0].ID)

	fragments3, _ := Parse("b/CONTEXT.md", []byte("## X\n\nSame content.\n"))
	assert.NotEqual(t, fragments1[0].ID, fragments3[0].ID)
}

func TestRegistry_UnknownFormat(t *testing.T) {
	r := NewRegistry()
	_, err := r.Parse("notes.txt", DefaultMaxFileSize)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
