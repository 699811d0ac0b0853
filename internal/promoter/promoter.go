// Package promoter turns reconciler-identified promotion candidates into
// Principles, the same exact-then-semantic dedup shape the accumulator
// uses turning fragments into insights, one rung up the knowledge ladder.
package promoter

import (
	"math"

	"cerno/internal/config"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/store"
)

// categoryMap translates an insight's category into the principle
// category it promotes to.
var categoryMap = map[model.InsightCategory]model.PrincipleCategory{
	model.CategoryConvention: model.PrincipleCategoryHeuristic,
	model.CategoryPrinciple:  model.PrincipleCategoryPrinciple,
	model.CategoryTechnique:  model.PrincipleCategoryLearning,
	model.CategoryWarning:    model.PrincipleCategoryAntiPattern,
	model.CategoryPreference: model.PrincipleCategoryHeuristic,
	model.CategoryFact:       model.PrincipleCategoryLearning,
	model.CategoryPattern:    model.PrincipleCategoryPrinciple,
}

// Outcome classifies what Promote did with a single candidate.
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeSkippedExact    Outcome = "skipped_exact"
	OutcomeSkippedSemantic Outcome = "skipped_semantic"
)

// Promoter creates or dedups a Principle for each promotion candidate.
type Promoter struct {
	store *store.Store
	cfg   *config.Config
}

func New(st *store.Store, cfg *config.Config) *Promoter {
	return &Promoter{store: st, cfg: cfg}
}

// Result summarizes one promotion pass.
type Result struct {
	Created         int
	SkippedExact    int
	SkippedSemantic int
}

// Run promotes every candidate, returning aggregate counts.
func (p *Promoter) Run(candidates []*model.Insight) (Result, error) {
	var res Result
	for _, ins := range candidates {
		outcome, err := p.Promote(ins)
		if err != nil {
			logging.OrganiserWarn("promotion failed for insight %d: %v", ins.ID, err)
			continue
		}
		switch outcome {
		case OutcomeCreated:
			res.Created++
		case OutcomeSkippedExact:
			res.SkippedExact++
		case OutcomeSkippedSemantic:
			res.SkippedSemantic++
		}
	}
	return res, nil
}

// Promote runs the exact-dedup, semantic-dedup, create chain for a single
// insight.
func (p *Promoter) Promote(ins *model.Insight) (Outcome, error) {
	contentHash := ins.ContentHash
	if contentHash == "" {
		contentHash = model.ContentHash(ins.Content)
	}

	// Exact dedup.
	if existing, err := p.store.GetPrincipleByContentHash(contentHash); err == nil {
		if err := p.store.EnsureDerivation(existing.ID, ins.ID, 1.0); err != nil {
			return "", err
		}
		return OutcomeSkippedExact, nil
	} else if err != store.ErrNotFound {
		return "", err
	}

	// Semantic dedup, only possible with an embedding.
	if len(ins.Embedding) > 0 {
		neighbors, err := p.store.NearestPrinciples(ins.Embedding, 1)
		if err != nil {
			return "", err
		}
		if len(neighbors) > 0 && neighbors[0].Similarity >= 0.92 {
			if err := p.store.EnsureDerivation(neighbors[0].ID, ins.ID, 1.0); err != nil {
				return "", err
			}
			return OutcomeSkippedSemantic, nil
		}
	}

	category, ok := categoryMap[ins.Category]
	if !ok {
		category = model.PrincipleCategoryHeuristic
	}
	domains := []string{}
	if ins.Domain != "" {
		domains = []string{ins.Domain}
	}

	principle := &model.Principle{
		Content:       ins.Content,
		ContentHash:   contentHash,
		Embedding:     ins.Embedding,
		Category:      category,
		Tags:          ins.Tags,
		Domains:       domains,
		Confidence:    ins.Confidence,
		Frequency:     ins.ObservationCount,
		RecencyScore:  1.0,
		SourceQuality: 0.5,
		Status:        model.PrincipleActive,
	}
	principle.Rank = computeRank(principle, 0, p.cfg)

	id, err := p.store.CreatePrinciple(principle, &model.Derivation{InsightID: ins.ID, ContributionWeight: 1.0})
	if err != nil {
		if err == store.ErrDuplicate {
			// Lost a race against a concurrent promotion of the same
			// content hash; ensure the derivation and report the dedup.
			if existing, getErr := p.store.GetPrincipleByContentHash(contentHash); getErr == nil {
				if err := p.store.EnsureDerivation(existing.ID, ins.ID, 1.0); err != nil {
					return "", err
				}
				return OutcomeSkippedExact, nil
			}
		}
		return "", err
	}
	principle.ID = id
	logging.Organiser("promoted insight %d to principle %d (category=%s)", ins.ID, id, category)
	return OutcomeCreated, nil
}

// computeRank mirrors the lifecycle package's rank formula for a freshly
// created principle, where link_count is always 0.
func computeRank(p *model.Principle, linkCount int, cfg *config.Config) float64 {
	t := cfg.Threshold
	freqNorm := logNorm(float64(p.Frequency), 150)
	linkNorm := float64(linkCount) / 20
	if linkNorm > 1.0 {
		linkNorm = 1.0
	}
	rank := t.RankConfidenceWeight*p.Confidence +
		t.RankFrequencyWeight*freqNorm +
		t.RankRecencyWeight*p.RecencyScore +
		t.RankSourceQualityWeight*p.SourceQuality +
		t.RankLinkWeight*linkNorm
	return rank
}

func logNorm(value, base float64) float64 {
	if value <= 0 {
		return 0
	}
	norm := math.Log(1+value) / math.Log(base)
	if norm > 1.0 {
		return 1.0
	}
	return norm
}
