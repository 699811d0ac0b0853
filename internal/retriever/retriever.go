// Package retriever scores active principles against a context file's
// content, combining semantic similarity, rank, and domain overlap into a
// single hybrid score (spec §4.11), the same nearest-neighbor-then-score
// shape the accumulator and linker use one level up the knowledge ladder.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cerno/internal/classifier"
	"cerno/internal/config"
	"cerno/internal/embedding"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/negation"
	"cerno/internal/store"
)

const contentTruncateChars = 8000

// topDomainCount is how many of the file's detected domains are kept.
const topDomainCount = 3

// Scored pairs a principle with its hybrid score.
type Scored struct {
	Principle *model.Principle
	Score     float64
}

// Retriever scores and ranks principles against a file's content.
type Retriever struct {
	store  *store.Store
	engine embedding.EmbeddingEngine
	cfg    *config.Config
}

func New(st *store.Store, engine embedding.EmbeddingEngine, cfg *config.Config) *Retriever {
	return &Retriever{store: st, engine: engine, cfg: cfg}
}

// RetrieveForFile implements the §4.11 Retriever.retrieve_for_file contract.
func (r *Retriever) RetrieveForFile(ctx context.Context, content string) ([]Scored, error) {
	fileDomains := detectDomains(content)

	truncated := content
	if len(truncated) > contentTruncateChars {
		truncated = truncated[:contentTruncateChars]
	}

	emb, err := r.engine.Embed(ctx, truncated)
	if err != nil {
		logging.RetrieverDebug("embed failed, falling back to rank-only: %v", err)
		return r.rankOnly(fileDomains)
	}

	neighbors, err := r.store.NearestPrinciples(emb, r.cfg.Limits.RetrieverNearestCap)
	if err != nil {
		return nil, fmt.Errorf("retriever: nearest principles: %w", err)
	}

	byID := make(map[int64]float64, len(neighbors))
	ids := make([]int64, 0, len(neighbors))
	for _, n := range neighbors {
		byID[n.ID] = n.Similarity
		ids = append(ids, n.ID)
	}

	var scored []Scored
	for _, id := range ids {
		p, err := r.store.GetPrinciple(id)
		if err != nil {
			continue
		}
		if p.Status != model.PrincipleActive {
			continue
		}
		sim := byID[id]
		if sim < 0 {
			sim = 0
		}
		domainScore := domainOverlapScore(p.Domains, fileDomains)
		t := r.cfg.Threshold
		hybrid := t.HybridSimilarityWeight*sim + t.HybridRankWeight*p.Rank + t.HybridDomainWeight*domainScore
		scored = append(scored, Scored{Principle: p, Score: hybrid})
	}

	return r.filterAndCap(scored), nil
}

// rankOnly is the degraded path when embedding the file fails: score by
// rank and domain overlap alone, weighted by the same two hybrid weights
// (similarity's weight is simply absent from the denominator).
func (r *Retriever) rankOnly(fileDomains []string) ([]Scored, error) {
	principles, err := r.store.ListActivePrinciplesWithEmbeddings()
	if err != nil {
		return nil, fmt.Errorf("retriever: list active principles: %w", err)
	}
	t := r.cfg.Threshold
	weightSum := t.HybridRankWeight + t.HybridDomainWeight

	var scored []Scored
	for _, p := range principles {
		domainScore := domainOverlapScore(p.Domains, fileDomains)
		var score float64
		if weightSum > 0 {
			score = (t.HybridRankWeight*p.Rank + t.HybridDomainWeight*domainScore) / weightSum
		}
		scored = append(scored, Scored{Principle: p, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	var out []Scored
	for _, s := range scored {
		if s.Score < r.cfg.Threshold.MinHybridScore {
			continue
		}
		out = append(out, s)
		if len(out) >= r.cfg.Threshold.MaxPrinciples {
			break
		}
	}
	return out, nil
}

func (r *Retriever) filterAndCap(scored []Scored) []Scored {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	var out []Scored
	for _, s := range scored {
		if s.Score < r.cfg.Threshold.MinHybridScore {
			continue
		}
		out = append(out, s)
		if len(out) >= r.cfg.Threshold.MaxPrinciples {
			break
		}
	}
	return out
}

// FilterAlreadyRepresented splits scored candidates into kept and conflict
// sets against a file's section embeddings, per the §4.11 already-represented
// rule.
func (r *Retriever) FilterAlreadyRepresented(scored []Scored, sectionEmbeddings [][]float32) (kept, conflicts []Scored) {
	if len(sectionEmbeddings) == 0 {
		return scored, nil
	}
	for _, s := range scored {
		maxSim := 0.0
		for _, sec := range sectionEmbeddings {
			sim, err := embedding.CosineSimilarity(s.Principle.Embedding, sec)
			if err != nil {
				continue
			}
			if sim > maxSim {
				maxSim = sim
			}
		}
		switch {
		case maxSim >= r.cfg.Threshold.AlreadyRepresentedThreshold:
			continue
		case maxSim >= 0.5 && maxSim <= 0.7 && negation.ContainsAnyHalf(s.Principle.Content):
			conflicts = append(conflicts, s)
		default:
			kept = append(kept, s)
		}
	}
	return kept, conflicts
}

// detectDomains splits content on blank-line boundaries, classifies each
// paragraph, and keeps the top domains by hit count.
func detectDomains(content string) []string {
	paragraphs := splitParagraphs(content)
	counts := make(map[string]int)
	var order []string
	for _, p := range paragraphs {
		res := classifier.Classify(p, "")
		if res.Domain == "" {
			continue
		}
		if _, ok := counts[res.Domain]; !ok {
			order = append(order, res.Domain)
		}
		counts[res.Domain]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > topDomainCount {
		order = order[:topDomainCount]
	}
	return order
}

func splitParagraphs(content string) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	raw := strings.Split(normalized, "\n\n")
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func domainOverlapScore(principleDomains, fileDomains []string) float64 {
	if len(principleDomains) == 0 || len(fileDomains) == 0 {
		return 0.0
	}
	fileSet := make(map[string]bool, len(fileDomains))
	for _, d := range fileDomains {
		fileSet[d] = true
	}
	overlap := 0
	for _, d := range principleDomains {
		if fileSet[d] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(principleDomains))
}
