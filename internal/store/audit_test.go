package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerno/internal/model"
)

func TestAccumulationRun_CreateCompleteAndList(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	id, err := s.CreateAccumulationRun("notes.md", now)
	require.NoError(t, err)
	assert.NotZero(t, id)

	err = s.CompleteAccumulationRun(id, model.RunCompleted, now.Add(time.Second), 3, 2, 1, 0, "")
	require.NoError(t, err)

	runs, err := s.ListAccumulationRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "notes.md", runs[0].SourcePath)
	assert.Equal(t, model.RunCompleted, runs[0].Status)
	assert.Equal(t, 2, runs[0].InsightsCreated)
	assert.False(t, runs[0].FinishedAt.IsZero())
}

func TestResolutionRun_CreateCompleteAndList(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	id, err := s.CreateResolutionRun("AGENTS.md", "claude", now)
	require.NoError(t, err)
	assert.NotZero(t, id)

	err = s.CompleteResolutionRun(id, model.RunCompleted, now.Add(time.Second), 5, 3, "")
	require.NoError(t, err)

	runs, err := s.ListResolutionRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "AGENTS.md", runs[0].TargetPath)
	assert.Equal(t, "claude", runs[0].Agent)
	assert.Equal(t, 5, runs[0].PrinciplesRetrieved)
	assert.Equal(t, 3, runs[0].PrinciplesInjected)
}

func TestListAccumulationRuns_OrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	id1, err := s.CreateAccumulationRun("first.md", now)
	require.NoError(t, err)
	id2, err := s.CreateAccumulationRun("second.md", now.Add(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, s.CompleteAccumulationRun(id1, model.RunCompleted, now, 1, 1, 0, 0, ""))
	require.NoError(t, s.CompleteAccumulationRun(id2, model.RunCompleted, now, 1, 1, 0, 0, ""))

	runs, err := s.ListAccumulationRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second.md", runs[0].SourcePath)
	assert.Equal(t, "first.md", runs[1].SourcePath)
}
