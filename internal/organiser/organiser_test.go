package organiser

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

func seedInsight(t *testing.T, st *store.Store, content string, embedding []float32) *model.Insight {
	t.Helper()
	ins := model.NewInsight(content, embedding, model.CategoryConvention, nil, "", time.Now())
	ins.Confidence = 0.9
	ins.ObservationCount = 5
	id, err := st.CreateInsight(ins, &model.InsightSource{SourcePath: "a.md", SourceProject: "proj", FragmentID: content})
	require.NoError(t, err)
	ins.ID = id
	return ins
}

func TestRun_PromotesLinksAndRunsLifecycleInOnePass(t *testing.T) {
	st := newTestStore(t)
	a := seedInsight(t, st, "write tests alongside code", []float32{0.9, 0.1, 0.0})
	b := seedInsight(t, st, "keep functions small and focused", []float32{0.1, 0.9, 0.0})

	cfg := config.DefaultConfig()
	o := New(st, cfg)

	res, err := o.Run([]*model.Insight{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Promotion.Created)

	principles, err := st.ListPrinciplesByStatus(model.PrincipleActive, model.PrincipleDecaying)
	require.NoError(t, err)
	assert.Len(t, principles, 2)
}

func TestRun_EmptyCandidatesStillRunsLinkingAndLifecycle(t *testing.T) {
	st := newTestStore(t)
	cfg := config.DefaultConfig()
	o := New(st, cfg)

	res, err := o.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Promotion.Created)
	assert.Equal(t, 0, res.Linking.LinksCreated)
}

func TestRun_RejectsReentrantCall(t *testing.T) {
	st := newTestStore(t)
	cfg := config.DefaultConfig()
	o := New(st, cfg)
	o.running = 1

	_, err := o.Run(nil)
	assert.ErrorIs(t, err, ErrBusy)
}
