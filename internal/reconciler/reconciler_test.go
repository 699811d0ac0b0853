package reconciler

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

func seedPromotable(t *testing.T, st *store.Store, content string, embedding []float32, confidence float64, observations int, firstSeen time.Time) *model.Insight {
	t.Helper()
	ins := model.NewInsight(content, embedding, model.CategoryConvention, nil, "backend", firstSeen)
	ins.Confidence = confidence
	ins.ObservationCount = observations
	ins.FirstSeenAt = firstSeen
	id, err := st.CreateInsight(ins, &model.InsightSource{SourcePath: "a.md", SourceProject: "proj", FragmentID: content})
	require.NoError(t, err)
	ins.ID = id
	return ins
}

func TestRun_IdentifiesPromotionCandidates(t *testing.T) {
	st := newTestStore(t)
	old := time.Now().AddDate(0, 0, -30)
	// Orthogonal embeddings keep the two seeds in separate clusters, so
	// intra-cluster dedup does not absorb one into the other.
	seedPromotable(t, st, "always validate input", []float32{0.1, 0.2, 0.3, 0.4}, 0.8, 5, old)
	seedPromotable(t, st, "too fresh to promote", []float32{0.4, -0.3, 0.2, -0.1}, 0.9, 10, time.Now())

	cfg := config.DefaultConfig()
	r := New(st, cfg, nil)

	res, err := r.Run()
	require.NoError(t, err)
	require.Len(t, res.PromotionCandidate, 1)
	assert.Equal(t, "always validate input", res.PromotionCandidate[0].Content)
}

func TestRun_RejectsReentrantCall(t *testing.T) {
	st := newTestStore(t)
	cfg := config.DefaultConfig()
	r := New(st, cfg, nil)
	r.running = 1

	_, err := r.Run()
	assert.ErrorIs(t, err, ErrBusy)
}

func TestRun_SkipsCandidateWithUnresolvedContradiction(t *testing.T) {
	st := newTestStore(t)
	old := time.Now().AddDate(0, 0, -30)
	a := seedPromotable(t, st, "use tabs for indentation", []float32{0.1, 0.2, 0.3, 0.4}, 0.8, 5, old)
	b := seedPromotable(t, st, "never use tabs for indentation", []float32{0.1, 0.2, 0.3, 0.4}, 0.8, 5, old)

	contr := model.NewContradiction(a.ID, b.ID, model.ContradictionDirect, "test", 0.6, "manual seed")
	_, err := st.CreateContradiction(contr)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	r := New(st, cfg, nil)

	res, err := r.Run()
	require.NoError(t, err)
	assert.Empty(t, res.PromotionCandidate)
}
