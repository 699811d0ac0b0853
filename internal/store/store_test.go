package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerno/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateInsight_ExactDuplicateRejected(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	ins := model.NewInsight("always use contexts", []float32{0.1, 0.2}, model.CategoryConvention, []string{"go"}, "go", now)
	src := &model.InsightSource{FragmentID: "frag-1", SourcePath: "a.md", SourceProject: "proj"}

	id, err := s.CreateInsight(ins, src)
	require.NoError(t, err)
	assert.NotZero(t, id)

	dup := model.NewInsight("always use contexts", []float32{0.1, 0.2}, model.CategoryConvention, []string{"go"}, "go", now)
	dup.ContentHash = ins.ContentHash
	_, err = s.CreateInsight(dup, &model.InsightSource{FragmentID: "frag-2", SourcePath: "b.md", SourceProject: "proj"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateInsight_DuplicateFragmentRejected(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	ins1 := model.NewInsight("content one", nil, model.CategoryFact, nil, "", now)
	_, err := s.CreateInsight(ins1, &model.InsightSource{FragmentID: "dup-frag", SourcePath: "a.md", SourceProject: "proj"})
	require.NoError(t, err)

	ins2 := model.NewInsight("content two", nil, model.CategoryFact, nil, "", now)
	_, err = s.CreateInsight(ins2, &model.InsightSource{FragmentID: "dup-frag", SourcePath: "a.md", SourceProject: "proj"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestReinforceInsight_BumpsObservationCount(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	ins := model.NewInsight("some content", nil, model.CategoryFact, nil, "", now)
	id, err := s.CreateInsight(ins, &model.InsightSource{FragmentID: "f1", SourcePath: "a.md", SourceProject: "proj"})
	require.NoError(t, err)

	require.NoError(t, s.ReinforceInsight(id, now.Add(time.Hour)))

	got, err := s.GetInsight(id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ObservationCount)
}

func TestCreateContradiction_DuplicatePairSwallowed(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	a := model.NewInsight("always do x", nil, model.CategoryConvention, nil, "", now)
	idA, err := s.CreateInsight(a, &model.InsightSource{FragmentID: "ca", SourcePath: "a.md", SourceProject: "p"})
	require.NoError(t, err)
	b := model.NewInsight("never do x", nil, model.CategoryWarning, nil, "", now)
	idB, err := s.CreateInsight(b, &model.InsightSource{FragmentID: "cb", SourcePath: "b.md", SourceProject: "p"})
	require.NoError(t, err)

	c1 := model.NewContradiction(idA, idB, model.ContradictionDirect, "accumulator", 0.7, "negation")
	_, err = s.CreateContradiction(c1)
	require.NoError(t, err)

	c2 := model.NewContradiction(idB, idA, model.ContradictionDirect, "clusterer", 0.71, "negation")
	_, err = s.CreateContradiction(c2)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateLink_NormalizesOrderAndDedups(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	p1 := &model.Principle{Content: "p1", ContentHash: "h1", Category: model.PrincipleCategoryPrinciple, Status: model.PrincipleActive}
	id1, err := s.CreatePrinciple(p1, nil)
	require.NoError(t, err)
	p2 := &model.Principle{Content: "p2", ContentHash: "h2", Category: model.PrincipleCategoryPrinciple, Status: model.PrincipleActive}
	id2, err := s.CreatePrinciple(p2, nil)
	require.NoError(t, err)
	_ = now

	require.NoError(t, s.CreateLink(&model.PrincipleLink{SourceID: id2, TargetID: id1, LinkType: model.LinkRelated, Strength: 0.6}))
	require.NoError(t, s.CreateLink(&model.PrincipleLink{SourceID: id1, TargetID: id2, LinkType: model.LinkRelated, Strength: 0.6}))

	links, err := s.ListLinksForPrinciple(id1)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestCreateLink_FlipsDirectionalTypeOnSwap(t *testing.T) {
	s := newTestStore(t)
	p1 := &model.Principle{Content: "p1", ContentHash: "h1", Category: model.PrincipleCategoryPrinciple, Status: model.PrincipleActive}
	id1, err := s.CreatePrinciple(p1, nil)
	require.NoError(t, err)
	p2 := &model.Principle{Content: "p2", ContentHash: "h2", Category: model.PrincipleCategoryPrinciple, Status: model.PrincipleActive}
	id2, err := s.CreatePrinciple(p2, nil)
	require.NoError(t, err)
	require.Less(t, id1, id2)

	// id2 generalizes id1, submitted with the higher ID as source. CreateLink
	// must swap source/target to satisfy source_id < target_id and flip the
	// link_type so the stored row still reads "id2 generalizes id1".
	require.NoError(t, s.CreateLink(&model.PrincipleLink{SourceID: id2, TargetID: id1, LinkType: model.LinkGeneralizes, Strength: 0.75}))

	links, err := s.ListLinksForPrinciple(id1)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, id1, links[0].SourceID)
	assert.Equal(t, id2, links[0].TargetID)
	assert.Equal(t, model.LinkSpecializes, links[0].LinkType)
}

func TestReplaceClusters_FullRebuild(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	ins := model.NewInsight("clustered content", []float32{1, 0}, model.CategoryFact, nil, "", now)
	id, err := s.CreateInsight(ins, &model.InsightSource{FragmentID: "cl1", SourcePath: "a.md", SourceProject: "p"})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceClusters([]*model.Cluster{
		{Name: "cluster-0", Centroid: []float32{1, 0}, CoherenceScore: 1.0, InsightCount: 1, InsightIDs: []int64{id}},
	}))

	clusters, err := s.ListClusters()
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []int64{id}, clusters[0].InsightIDs)

	require.NoError(t, s.ReplaceClusters(nil))
	clusters, err = s.ListClusters()
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestEnsureDerivation_Idempotent(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	ins := model.NewInsight("promoted content", nil, model.CategoryFact, nil, "", now)
	insID, err := s.CreateInsight(ins, &model.InsightSource{FragmentID: "d1", SourcePath: "a.md", SourceProject: "p"})
	require.NoError(t, err)
	p := &model.Principle{Content: "promoted", ContentHash: "hp1", Category: model.PrincipleCategoryLearning, Status: model.PrincipleActive}
	pID, err := s.CreatePrinciple(p, &model.Derivation{InsightID: insID, ContributionWeight: 1.0})
	require.NoError(t, err)

	require.NoError(t, s.EnsureDerivation(pID, insID, 1.0))

	has, err := s.InsightHasDerivation(insID)
	require.NoError(t, err)
	assert.True(t, has)
}
