package retriever

import (
	"context"
	"errors"
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

// fakeEngine returns a fixed embedding for any input, or an error when
// failNext is set, to exercise the rank-only fallback path.
type fakeEngine struct {
	vector   []float32
	failNext bool
}

func (f *fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failNext {
		return nil, errors.New("embedding backend unreachable")
	}
	return f.vector, nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEngine) Dimensions() int { return len(f.vector) }
func (f *fakeEngine) Name() string    { return "fake" }

func seedPrinciple(t *testing.T, st *store.Store, content string, embedding []float32, rank float64, domains []string) *model.Principle {
	t.Helper()
	p := &model.Principle{
		Content: content, ContentHash: content, Embedding: embedding,
		Category: model.PrincipleCategoryHeuristic, Confidence: 0.8, Frequency: 3,
		RecencyScore: 1.0, SourceQuality: 0.5, Rank: rank, Status: model.PrincipleActive,
		Domains: domains,
	}
	ins := model.NewInsight(content, embedding, model.CategoryConvention, nil, "", time.Now())
	insightID, err := st.CreateInsight(ins, &model.InsightSource{SourcePath: "a.md", SourceProject: "proj", FragmentID: content})
	require.NoError(t, err)

	id, err := st.CreatePrinciple(p, &model.Derivation{InsightID: insightID, ContributionWeight: 1.0})
	require.NoError(t, err)
	p.ID = id
	return p
}

func TestRetrieveForFile_ScoresAndFiltersBelowThreshold(t *testing.T) {
	st := newTestStore(t)
	seedPrinciple(t, st, "prefer small functions in go code", []float32{0.9, 0.1, 0.0}, 0.8, []string{"go"})
	seedPrinciple(t, st, "unrelated principle about something else", []float32{-0.9, -0.1, 0.0}, 0.1, nil)

	cfg := config.DefaultConfig()
	engine := &fakeEngine{vector: []float32{0.9, 0.1, 0.0}}
	r := New(st, engine, cfg)

	scored, err := r.RetrieveForFile(context.Background(), "this file talks about golang conventions and go.mod")
	require.NoError(t, err)
	require.NotEmpty(t, scored)
	assert.Contains(t, scored[0].Principle.Content, "small functions")
}

func TestRetrieveForFile_FallsBackToRankOnlyWhenEmbedFails(t *testing.T) {
	st := newTestStore(t)
	seedPrinciple(t, st, "prefer small functions", []float32{0.9, 0.1, 0.0}, 0.9, nil)

	cfg := config.DefaultConfig()
	engine := &fakeEngine{vector: []float32{0.9, 0.1, 0.0}, failNext: true}
	r := New(st, engine, cfg)

	scored, err := r.RetrieveForFile(context.Background(), "any content")
	require.NoError(t, err)
	require.NotEmpty(t, scored)
}

func TestFilterAlreadyRepresented_DropsNearDuplicateAndFlagsConflict(t *testing.T) {
	st := newTestStore(t)
	cfg := config.DefaultConfig()
	r := New(st, &fakeEngine{}, cfg)

	dup := &model.Principle{Content: "always use small functions", Embedding: []float32{1, 0, 0}}
	conflict := &model.Principle{Content: "never use small functions", Embedding: []float32{0.6, 0.8, 0}}
	fresh := &model.Principle{Content: "use a layered architecture", Embedding: []float32{0, 0, 1}}

	scored := []Scored{{Principle: dup, Score: 0.9}, {Principle: conflict, Score: 0.8}, {Principle: fresh, Score: 0.7}}
	sections := [][]float32{{1, 0, 0}}

	kept, conflicts := r.FilterAlreadyRepresented(scored, sections)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "never use small functions", conflicts[0].Principle.Content)
	assertPrincipleKept(t, kept, "use a layered architecture")
	for _, s := range kept {
		assert.NotEqual(t, "always use small functions", s.Principle.Content)
	}
}

func assertPrincipleKept(t *testing.T, kept []Scored, content string) {
	t.Helper()
	for _, s := range kept {
		if s.Principle.Content == content {
			return
		}
	}
	t.Fatalf("expected %q among kept principles", content)
}
