package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerno/internal/config"
	"cerno/internal/model"
	"cerno/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedPrinciple(t *testing.T, st *store.Store, content string, confidence, rank float64) *model.Principle {
	t.Helper()
	return seedPrincipleWithFrequency(t, st, content, confidence, rank, 1)
}

func seedPrincipleWithFrequency(t *testing.T, st *store.Store, content string, confidence, rank float64, frequency int) *model.Principle {
	t.Helper()
	p := &model.Principle{
		Content: content, ContentHash: content, Embedding: []float32{0.1, 0.2, 0.3},
		Category: model.PrincipleCategoryHeuristic, Confidence: confidence, Frequency: frequency,
		RecencyScore: 1.0, SourceQuality: 0.5, Rank: rank, Status: model.PrincipleActive,
	}
	// Derivation needs a real insight row to satisfy the foreign key.
	ins := model.NewInsight(content, p.Embedding, model.CategoryConvention, nil, "", time.Now())
	insightID, err := st.CreateInsight(ins, &model.InsightSource{SourcePath: "a.md", SourceProject: "proj", FragmentID: content})
	require.NoError(t, err)

	id, err := st.CreatePrinciple(p, &model.Derivation{InsightID: insightID, ContributionWeight: 1.0})
	require.NoError(t, err)
	p.ID = id
	return p
}

func TestRun_RecomputesRankAndPersistsWhenChanged(t *testing.T) {
	st := newTestStore(t)
	p := seedPrinciple(t, st, "write tests alongside code", 0.9, 0.0)

	cfg := config.DefaultConfig()
	l := New(st, cfg)

	res, err := l.Run()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.ScoresUpdated, 1)

	refreshed, err := st.GetPrinciple(p.ID)
	require.NoError(t, err)
	assert.Greater(t, refreshed.Rank, 0.0)
}

func TestRun_OldLowRankPrincipleIsPruned(t *testing.T) {
	st := newTestStore(t)
	// confidence=0.01, frequency=0, 400 days stale: recomputed rank lands
	// well under PruneThreshold (0.10), and age clears the 180-day gate.
	p := seedPrincipleWithFrequency(t, st, "a long-stale low rank idea", 0.01, 0.05, 0)
	require.NoError(t, st.SetPrincipleUpdatedAt(p.ID, time.Now().Add(-400*24*time.Hour)))

	cfg := config.DefaultConfig()
	l := New(st, cfg)

	res, err := l.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pruned)
	assert.Equal(t, 0, res.Decayed)

	refreshed, err := st.GetPrinciple(p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PrinciplePruned, refreshed.Status)
}

func TestRun_ModeratelyStaleLowRankPrincipleDecays(t *testing.T) {
	st := newTestStore(t)
	// confidence=0.02, frequency=0, 150 days stale: recomputed rank lands
	// between the decay and prune thresholds, and age is past the 90-day
	// decay gate but short of the 180-day prune gate.
	p := seedPrincipleWithFrequency(t, st, "a moderately stale low rank idea", 0.02, 0.05, 0)
	require.NoError(t, st.SetPrincipleUpdatedAt(p.ID, time.Now().Add(-150*24*time.Hour)))

	cfg := config.DefaultConfig()
	l := New(st, cfg)

	res, err := l.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, res.Pruned)
	assert.Equal(t, 1, res.Decayed)

	refreshed, err := st.GetPrinciple(p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PrincipleDecaying, refreshed.Status)
}

func TestRun_ScoreOnlyWriteDoesNotResetStalenessClock(t *testing.T) {
	st := newTestStore(t)
	p := seedPrinciple(t, st, "a long-stale but volatile-ranked idea", 0.9, 0.0)
	old := time.Now().Add(-200 * 24 * time.Hour)
	require.NoError(t, st.SetPrincipleUpdatedAt(p.ID, old))

	cfg := config.DefaultConfig()
	l := New(st, cfg)

	// decay() and rank() both persist via UpdatePrincipleScores ahead of
	// transition()'s own age check; if either touched updated_at, the age
	// transition() computes moments later would read as ~0 instead of 200d.
	_, err := l.Run()
	require.NoError(t, err)

	got, err := st.GetPrincipleUpdatedAt(p.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, old, got, time.Second)
}

func TestRun_LowRankRecentPrincipleIsUntouched(t *testing.T) {
	st := newTestStore(t)
	seedPrinciple(t, st, "a brand new low confidence idea", 0.1, 0.05)

	cfg := config.DefaultConfig()
	l := New(st, cfg)

	res, err := l.Run()
	require.NoError(t, err)
	// Freshly created rows are well within both age thresholds, so no
	// status transition should fire. The seeded rank is below both
	// thresholds, though Run recomputes it (to about 0.34) before the
	// transition step reads it.
	assert.Equal(t, 0, res.Pruned)
	assert.Equal(t, 0, res.Decayed)
}
