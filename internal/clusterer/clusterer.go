// Package clusterer groups active insights into connected components by
// embedding similarity, fully rebuilding the cluster set on every
// reconciliation run. The graph-build-then-BFS shape is grounded on the
// teacher's knowledge-graph traversal (queue of frontier nodes, visited
// set, breadth expansion), generalized from a directed relation graph to
// an undirected similarity graph.
package clusterer

import (
	"fmt"
	"sort"

	"cerno/internal/config"
	"cerno/internal/embedding"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/negation"
	"cerno/internal/store"
)

// Clusterer rebuilds the cluster set and performs intra-/cross-cluster
// dedup and contradiction detection over it.
type Clusterer struct {
	store *store.Store
	cfg   *config.Config
}

func New(st *store.Store, cfg *config.Config) *Clusterer {
	return &Clusterer{store: st, cfg: cfg}
}

// Result summarizes one clustering pass.
type Result struct {
	ClustersBuilt        int
	InsightsClustered    int
	DuplicatesAbsorbed   int
	ContradictionsFound  int
}

// Run loads active insights with embeddings, builds the similarity graph,
// computes connected components, persists the full rebuild, then runs
// intra-cluster dedup and cross-cluster contradiction detection against
// the freshly rebuilt clusters.
func (c *Clusterer) Run() (Result, error) {
	var res Result

	insights, err := c.store.ListActiveInsightsWithEmbeddings(c.cfg.Limits.ClusterLoadCap)
	if err != nil {
		return res, fmt.Errorf("clusterer: load insights: %w", err)
	}
	if len(insights) == 0 {
		logging.Clusterer("no active insights with embeddings, nothing to cluster")
		return res, nil
	}
	if len(insights) >= c.cfg.Limits.ClusterLoadCap {
		logging.ClustererWarn("insight load hit cap %d, some insights were not considered", c.cfg.Limits.ClusterLoadCap)
	}

	components := c.buildComponents(insights)
	clusters := make([]*model.Cluster, 0, len(components))
	for i, comp := range components {
		clusters = append(clusters, buildCluster(i, comp))
	}

	if err := c.store.ReplaceClusters(clusters); err != nil {
		return res, fmt.Errorf("clusterer: replace clusters: %w", err)
	}
	res.ClustersBuilt = len(clusters)
	res.InsightsClustered = len(insights)
	logging.Clusterer("rebuilt %d clusters over %d insights", len(clusters), len(insights))

	absorbed, err := c.dedupWithinClusters(clusters)
	if err != nil {
		return res, fmt.Errorf("clusterer: intra-cluster dedup: %w", err)
	}
	res.DuplicatesAbsorbed = absorbed

	found, err := c.crossClusterContradictions(clusters)
	if err != nil {
		return res, fmt.Errorf("clusterer: cross-cluster contradictions: %w", err)
	}
	res.ContradictionsFound = found

	return res, nil
}

// buildComponents constructs an undirected adjacency graph by querying
// each insight's nearest neighbors at the cluster threshold, symmetrizes
// it, then extracts connected components via BFS.
func (c *Clusterer) buildComponents(insights []*model.Insight) [][]*model.Insight {
	byID := make(map[int64]*model.Insight, len(insights))
	for _, ins := range insights {
		byID[ins.ID] = ins
	}

	adjacency := make(map[int64]map[int64]bool, len(insights))
	for _, ins := range insights {
		adjacency[ins.ID] = make(map[int64]bool)
	}

	for _, ins := range insights {
		neighbors, err := c.store.NearestInsights(ins.Embedding, c.cfg.Limits.ClusterNeighborCap)
		if err != nil {
			logging.ClustererWarn("neighbor query failed for insight %d: %v", ins.ID, err)
			continue
		}
		for _, n := range neighbors {
			if n.ID == ins.ID {
				continue
			}
			if _, ok := byID[n.ID]; !ok {
				continue // neighbor fell outside the active/embedded/cap set
			}
			if n.Similarity < c.cfg.Threshold.ClusterThreshold {
				continue
			}
			adjacency[ins.ID][n.ID] = true
			adjacency[n.ID][ins.ID] = true
		}
	}

	visited := make(map[int64]bool, len(insights))
	var components [][]*model.Insight

	// Deterministic traversal order keeps cluster numbering stable across
	// runs when the insight set hasn't changed.
	ordered := make([]*model.Insight, len(insights))
	copy(ordered, insights)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, ins := range ordered {
		if visited[ins.ID] {
			continue
		}
		queue := []int64{ins.ID}
		visited[ins.ID] = true
		var component []*model.Insight
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			component = append(component, byID[id])
			for neighbor := range adjacency[id] {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

func buildCluster(index int, members []*model.Insight) *model.Cluster {
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return &model.Cluster{
		Name:           fmt.Sprintf("cluster-%d", index),
		Centroid:       centroid(members),
		CoherenceScore: coherence(members),
		InsightCount:   len(members),
		InsightIDs:     ids,
	}
}

// centroid is the element-wise mean of member embeddings. Returns nil for
// an empty or dimensionless member set.
func centroid(members []*model.Insight) []float32 {
	if len(members) == 0 {
		return nil
	}
	dim := len(members[0].Embedding)
	if dim == 0 {
		return nil
	}
	sum := make([]float64, dim)
	for _, m := range members {
		if len(m.Embedding) != dim {
			continue
		}
		for i, v := range m.Embedding {
			sum[i] += float64(v)
		}
	}
	out := make([]float32, dim)
	for i, v := range sum {
		out[i] = float32(v / float64(len(members)))
	}
	return out
}

// coherence is the mean pairwise cosine similarity across members.
// A singleton cluster is defined to have coherence 1.0.
func coherence(members []*model.Insight) float64 {
	if len(members) <= 1 {
		return 1.0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sim, err := embedding.CosineSimilarity(members[i].Embedding, members[j].Embedding)
			if err != nil {
				continue
			}
			sum += sim
			pairs++
		}
	}
	if pairs == 0 {
		return 1.0
	}
	return sum / float64(pairs)
}

// dedupWithinClusters absorbs near-duplicate insights inside each cluster:
// within a cluster, insights are sorted by observation_count descending;
// a later insight is absorbed into an earlier (winning) one if its own
// observation_count does not exceed the winner's and their cosine
// similarity is at least the cluster threshold.
func (c *Clusterer) dedupWithinClusters(clusters []*model.Cluster) (int, error) {
	absorbed := 0
	for _, cluster := range clusters {
		members := make([]*model.Insight, 0, len(cluster.InsightIDs))
		for _, id := range cluster.InsightIDs {
			ins, err := c.store.GetInsight(id)
			if err != nil {
				continue
			}
			members = append(members, ins)
		}
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].ObservationCount > members[j].ObservationCount
		})

		winners := make([]*model.Insight, 0, len(members))
		for _, candidate := range members {
			absorbedInto := false
			for _, winner := range winners {
				if candidate.ObservationCount > winner.ObservationCount {
					continue
				}
				sim, err := embedding.CosineSimilarity(candidate.Embedding, winner.Embedding)
				if err != nil || sim < c.cfg.Threshold.ClusterThreshold {
					continue
				}
				if err := c.absorb(winner, candidate); err != nil {
					logging.ClustererWarn("absorb insight %d into %d failed: %v", candidate.ID, winner.ID, err)
					continue
				}
				absorbed++
				absorbedInto = true
				break
			}
			if !absorbedInto {
				winners = append(winners, candidate)
			}
		}
	}
	return absorbed, nil
}

// absorb folds loser into winner. winner.LastSeenAt is updated in place so
// that when multiple losers absorb into the same winner in sequence, each
// comparison is against the true running maximum rather than winner's
// original, now-stale in-memory value.
func (c *Clusterer) absorb(winner, loser *model.Insight) error {
	if err := c.store.BumpInsightObservationCount(winner.ID, loser.ObservationCount); err != nil {
		return err
	}
	if loser.LastSeenAt.After(winner.LastSeenAt) {
		if err := c.store.TouchInsightLastSeen(winner.ID, loser.LastSeenAt); err != nil {
			return err
		}
		winner.LastSeenAt = loser.LastSeenAt
	}
	return c.store.UpdateInsightStatus(loser.ID, model.InsightSuperseded)
}

// crossClusterContradictions scans cluster-centroid pairs that fall
// within the contradiction similarity window, then expands any hit into
// a member-by-member cross product, classifying each pair as a direct
// contradiction (negation match) or partial (similarity alone).
func (c *Clusterer) crossClusterContradictions(clusters []*model.Cluster) (int, error) {
	found := 0
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			a, b := clusters[i], clusters[j]
			sim, err := embedding.CosineSimilarity(a.Centroid, b.Centroid)
			if err != nil || sim < c.cfg.Threshold.ContradictionLow || sim > c.cfg.Threshold.ContradictionHigh {
				continue
			}
			hits, err := c.pairwiseContradictions(a, b)
			if err != nil {
				return found, err
			}
			found += hits
		}
	}
	return found, nil
}

func (c *Clusterer) pairwiseContradictions(a, b *model.Cluster) (int, error) {
	found := 0
	for _, aID := range a.InsightIDs {
		ai, err := c.store.GetInsight(aID)
		if err != nil || ai.Status == model.InsightSuperseded {
			continue
		}
		for _, bID := range b.InsightIDs {
			bi, err := c.store.GetInsight(bID)
			if err != nil || bi.Status == model.InsightSuperseded {
				continue
			}
			sim, err := embedding.CosineSimilarity(ai.Embedding, bi.Embedding)
			if err != nil || sim < c.cfg.Threshold.ContradictionLow || sim > c.cfg.Threshold.ContradictionHigh {
				continue
			}
			kind := model.ContradictionPartial
			if negation.HasOpposingPair(ai.Content, bi.Content) {
				kind = model.ContradictionDirect
			}
			contr := model.NewContradiction(ai.ID, bi.ID, kind, "clusterer", sim, "cross-cluster similarity scan")
			if _, err := c.store.CreateContradiction(contr); err != nil {
				if err == store.ErrDuplicate {
					continue
				}
				return found, err
			}
			found++
		}
	}
	return found, nil
}
