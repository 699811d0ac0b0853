package clusterer

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

// vec builds a 4-dimensional embedding with the given lead value, nudged
// slightly by noise so vectors in the same "direction" aren't bit-identical.
func vec(lead float32, noise float32) []float32 {
	return []float32{lead, noise, noise / 2, 0.1}
}

func seedInsight(t *testing.T, st *store.Store, content string, embedding []float32) *model.Insight {
	t.Helper()
	return seedInsightSeenAt(t, st, content, embedding, time.Now())
}

func seedInsightSeenAt(t *testing.T, st *store.Store, content string, embedding []float32, seenAt time.Time) *model.Insight {
	t.Helper()
	ins := model.NewInsight(content, embedding, model.CategoryConvention, []string{"go"}, "backend", seenAt)
	id, err := st.CreateInsight(ins, &model.InsightSource{
		SourcePath: "notes.md", SourceProject: "proj", FragmentID: content,
	})
	require.NoError(t, err)
	ins.ID = id
	return ins
}

func TestRun_GroupsSimilarInsightsIntoOneCluster(t *testing.T) {
	st := newTestStore(t)
	seedInsight(t, st, "always use contexts", vec(1.0, 0.01))
	seedInsight(t, st, "always pass contexts through", vec(1.0, 0.02))
	seedInsight(t, st, "never ignore errors", vec(-1.0, 0.01))

	cfg := config.DefaultConfig()
	cfg.Threshold.ClusterThreshold = 0.9
	c := New(st, cfg)

	res, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 3, res.InsightsClustered)
	assert.GreaterOrEqual(t, res.ClustersBuilt, 2)

	clusters, err := st.ListClusters()
	require.NoError(t, err)
	assert.Len(t, clusters, res.ClustersBuilt)

	var sawPair bool
	for _, cl := range clusters {
		if cl.InsightCount == 2 {
			sawPair = true
		}
	}
	assert.True(t, sawPair, "expected the two similar insights to land in the same cluster")
}

func TestRun_NoActiveInsightsIsNoop(t *testing.T) {
	st := newTestStore(t)
	cfg := config.DefaultConfig()
	c := New(st, cfg)

	res, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, res.ClustersBuilt)
}

func TestRun_AbsorbsNearDuplicateWithinCluster(t *testing.T) {
	st := newTestStore(t)
	winner := seedInsight(t, st, "prefer small functions", vec(1.0, 0.0))
	require.NoError(t, st.BumpInsightObservationCount(winner.ID, 5))
	loser := seedInsight(t, st, "keep functions small", vec(1.0, 0.0))

	cfg := config.DefaultConfig()
	cfg.Threshold.ClusterThreshold = 0.9
	c := New(st, cfg)

	res, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, res.DuplicatesAbsorbed)

	refreshed, err := st.GetInsight(loser.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InsightSuperseded, refreshed.Status)
}

func TestRun_AbsorbSetsWinnerLastSeenToTrueMaximum(t *testing.T) {
	st := newTestStore(t)
	base := time.Now().Add(-30 * 24 * time.Hour)
	winner := seedInsightSeenAt(t, st, "prefer small functions", vec(1.0, 0.0), base)
	require.NoError(t, st.BumpInsightObservationCount(winner.ID, 5))
	// loserA is absorbed first (higher observation_count than loserB) and
	// carries the true maximum last_seen_at. loserB is absorbed second and
	// is older than loserA but newer than the winner's original timestamp —
	// a winner.LastSeenAt that isn't updated in memory between absorbs would
	// let loserB's earlier time clobber loserA's later one.
	loserA := seedInsightSeenAt(t, st, "keep functions small", vec(1.0, 0.0), base.Add(20*24*time.Hour))
	require.NoError(t, st.BumpInsightObservationCount(loserA.ID, 2))
	loserB := seedInsightSeenAt(t, st, "functions should stay small", vec(1.0, 0.0), base.Add(10*24*time.Hour))
	require.NoError(t, st.BumpInsightObservationCount(loserB.ID, 1))

	cfg := config.DefaultConfig()
	cfg.Threshold.ClusterThreshold = 0.9
	c := New(st, cfg)

	res, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, res.DuplicatesAbsorbed)

	refreshed, err := st.GetInsight(winner.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, base.Add(20*24*time.Hour), refreshed.LastSeenAt, time.Second)
}

func TestRun_CrossClusterContradictionsSkipSupersededMembers(t *testing.T) {
	st := newTestStore(t)
	// a1 and a2 are near-identical and land in the same cluster; intra-cluster
	// dedup absorbs a2 into a1 before cross-cluster contradiction detection
	// runs. b sits in its own cluster, similar enough to a1/a2's centroid to
	// fall in the contradiction window, and opposes both on content. Only the
	// still-active a1 should produce a contradiction against b.
	seedInsight(t, st, "always validate input", []float32{1, 0, 0, 0})
	seedInsight(t, st, "always check all input", []float32{1, 0, 0, 0})
	seedInsight(t, st, "never validate input", []float32{0.75, 0.6614, 0, 0})

	cfg := config.DefaultConfig()
	c := New(st, cfg)

	res, err := c.Run()
	require.NoError(t, err)
	require.Equal(t, 1, res.DuplicatesAbsorbed)
	assert.Equal(t, 1, res.ContradictionsFound)
}
