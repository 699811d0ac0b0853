package linker

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

func seedPrinciple(t *testing.T, st *store.Store, content string, embedding []float32, domains, tags []string) *model.Principle {
	t.Helper()
	ins := model.NewInsight(content, embedding, model.CategoryConvention, tags, "", time.Now())
	insightID, err := st.CreateInsight(ins, &model.InsightSource{SourcePath: "a.md", SourceProject: "proj", FragmentID: content})
	require.NoError(t, err)

	p := &model.Principle{
		Content: content, ContentHash: content, Embedding: embedding,
		Category: model.PrincipleCategoryHeuristic, Tags: tags, Domains: domains,
		Confidence: 0.8, Frequency: 1, RecencyScore: 1.0, SourceQuality: 0.5, Rank: 0.5,
		Status: model.PrincipleActive,
	}
	id, err := st.CreatePrinciple(p, &model.Derivation{InsightID: insightID, ContributionWeight: 1.0})
	require.NoError(t, err)
	p.ID = id
	return p
}

func TestRun_ReinforcesNearIdenticalPrinciples(t *testing.T) {
	st := newTestStore(t)
	seedPrinciple(t, st, "always use contexts", []float32{1.0, 0.01, 0.0, 0.0}, []string{"go"}, []string{"go"})
	seedPrinciple(t, st, "always pass contexts", []float32{1.0, 0.02, 0.0, 0.0}, []string{"go"}, []string{"go"})

	cfg := config.DefaultConfig()
	l := New(st, cfg)

	res, err := l.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, res.LinksCreated)

	links, err := st.ListLinksForPrinciple(1)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, model.LinkReinforces, links[0].LinkType)
}

func TestRun_GeneralizesPointsFromMoreToFewerDomainsRegardlessOfID(t *testing.T) {
	st := newTestStore(t)
	// p1 (lower id) carries more domains than p2, shares a tag but no domain
	// with it, and the two embeddings hold their cosine similarity at 0.75 —
	// past the contradicts band but short of reinforces/related — landing the
	// pair in the generalizes/specializes branch. p1 should end up
	// generalizing p2 no matter which principle the linker happens to visit
	// first while walking nearest-neighbor candidates.
	p1 := seedPrinciple(t, st, "broad go testing guidance", []float32{1.0, 0.0, 0.0, 0.0}, []string{"go", "backend"}, []string{"shared"})
	p2 := seedPrinciple(t, st, "narrow python guidance", []float32{0.75, 0.6614, 0.0, 0.0}, []string{"python"}, []string{"shared"})
	require.Less(t, p1.ID, p2.ID)

	cfg := config.DefaultConfig()
	l := New(st, cfg)

	res, err := l.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, res.LinksCreated)

	links, err := st.ListLinksForPrinciple(p1.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, p1.ID, links[0].SourceID)
	assert.Equal(t, p2.ID, links[0].TargetID)
	assert.Equal(t, model.LinkGeneralizes, links[0].LinkType)
}

func TestRun_NoLinkBelowSimilarityFloor(t *testing.T) {
	st := newTestStore(t)
	seedPrinciple(t, st, "use tabs", []float32{1.0, 0.0, 0.0, 0.0}, []string{"go"}, nil)
	seedPrinciple(t, st, "prefer microservices", []float32{0.0, 1.0, 0.0, 0.0}, []string{"infra"}, nil)

	cfg := config.DefaultConfig()
	l := New(st, cfg)

	res, err := l.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, res.LinksCreated)
}
