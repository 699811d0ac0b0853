package promoter

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

func seedInsight(t *testing.T, st *store.Store, content string, embedding []float32, category model.InsightCategory) *model.Insight {
	t.Helper()
	ins := model.NewInsight(content, embedding, category, []string{"go"}, "backend", time.Now())
	ins.Confidence = 0.8
	ins.ObservationCount = 5
	id, err := st.CreateInsight(ins, &model.InsightSource{SourcePath: "a.md", SourceProject: "proj", FragmentID: content})
	require.NoError(t, err)
	ins.ID = id
	return ins
}

func TestPromote_CreatesNewPrincipleWithMappedCategory(t *testing.T) {
	st := newTestStore(t)
	ins := seedInsight(t, st, "always handle context cancellation", []float32{1, 0, 0, 0}, model.CategoryWarning)

	cfg := config.DefaultConfig()
	p := New(st, cfg)

	outcome, err := p.Promote(ins)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	principle, err := st.GetPrincipleByContentHash(ins.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, model.PrincipleCategoryAntiPattern, principle.Category)
	assert.Equal(t, []string{"backend"}, principle.Domains)
}

func TestPromote_ExactDuplicateEnsuresDerivationOnly(t *testing.T) {
	st := newTestStore(t)
	a := seedInsight(t, st, "prefer small functions", []float32{1, 0, 0, 0}, model.CategoryConvention)
	b := seedInsight(t, st, "prefer small functions, distinct fragment", []float32{1, 0, 0, 0}, model.CategoryConvention)
	// simulate the exact-dedup edge case: b resolves to a's already-promoted
	// content hash even though its own stored row has a distinct one.
	b.ContentHash = a.ContentHash

	cfg := config.DefaultConfig()
	p := New(st, cfg)

	first, err := p.Promote(a)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, first)

	second, err := p.Promote(b)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedExact, second)

	hasDerivation, err := st.InsightHasDerivation(b.ID)
	require.NoError(t, err)
	assert.True(t, hasDerivation)
}

func TestPromote_SemanticDuplicateSkipped(t *testing.T) {
	st := newTestStore(t)
	a := seedInsight(t, st, "always validate user input", []float32{1, 0, 0, 0}, model.CategoryConvention)
	b := seedInsight(t, st, "validate every user input always", []float32{1, 0.001, 0, 0}, model.CategoryConvention)

	cfg := config.DefaultConfig()
	p := New(st, cfg)

	_, err := p.Promote(a)
	require.NoError(t, err)

	outcome, err := p.Promote(b)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedSemantic, outcome)
}
