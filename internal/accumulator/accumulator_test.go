package accumulator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerno/internal/config"
	"cerno/internal/embedding"
	"cerno/internal/parser"
	"cerno/internal/store"
)

func newTestAccumulator(t *testing.T) (*Accumulator, *store.Store) {
	t.Helper()
	st, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.DefaultConfig()
	cfg.Threshold.SemanticThreshold = 0.92
	engine := embedding.NewFakeEngine(16)
	acc := New(st, parser.NewRegistry(), engine, nil, cfg)
	return acc, st
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessPath_CreatesInsightsFromFragments(t *testing.T) {
	acc, st := newTestAccumulator(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "## Conventions\nAlways use contexts in Go.\n\n## Warnings\nNever ignore errors.\n")

	require.NoError(t, acc.ProcessPath(context.Background(), path))

	stats, err := st.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Insights)
}

func TestProcessPath_UnchangedFileIsFastPathSkipped(t *testing.T) {
	acc, st := newTestAccumulator(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "## Conventions\nAlways use contexts in Go.\n")

	require.NoError(t, acc.ProcessPath(context.Background(), path))
	// Clear the post-scan cooldown so the second call reaches the
	// unchanged-file check instead of being rejected with ErrBusy.
	acc.tracker = newPathTracker(0)
	require.NoError(t, acc.ProcessPath(context.Background(), path))

	stats, err := st.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Insights)
}

func TestProcessPath_ExactDuplicateContentReinforces(t *testing.T) {
	acc, st := newTestAccumulator(t)
	dir := t.TempDir()
	p1 := writeFile(t, dir, "a.md", "## Conventions\nAlways use contexts in Go.\n")
	p2 := writeFile(t, dir, "b.md", "## Conventions\nAlways use contexts in Go.\n")

	require.NoError(t, acc.ProcessPath(context.Background(), p1))
	require.NoError(t, acc.ProcessPath(context.Background(), p2))

	stats, err := st.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Insights)
}

func TestProcessPath_BusyPathRejected(t *testing.T) {
	acc, _ := newTestAccumulator(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "a.md", "## X\nsome content\n")

	ok := acc.tracker.tryBegin(path)
	require.True(t, ok)
	defer acc.tracker.finish(path)

	err := acc.ProcessPath(context.Background(), path)
	assert.ErrorIs(t, err, ErrBusy)
}
