// Package linker discovers typed relationships between active/decaying
// principles, following the same nearest-neighbor-candidate-then-classify
// shape the accumulator uses for contradiction detection, generalized to
// a multi-way decision table instead of a single negation gate.
package linker

import (
	"fmt"

	"cerno/internal/config"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/negation"
	"cerno/internal/store"
)

// Linker classifies and persists relationships between principles.
type Linker struct {
	store *store.Store
	cfg   *config.Config
}

func New(st *store.Store, cfg *config.Config) *Linker {
	return &Linker{store: st, cfg: cfg}
}

// Result summarizes one linking pass.
type Result struct {
	PrinciplesScanned int
	LinksCreated      int
}

// Run scans every active/decaying principle with an embedding, finds its
// top candidate neighbors, classifies each pair above the base similarity
// floor, and persists the typed link.
func (l *Linker) Run() (Result, error) {
	var res Result

	principles, err := l.store.ListPrinciplesByStatus(model.PrincipleActive, model.PrincipleDecaying)
	if err != nil {
		return res, fmt.Errorf("linker: list principles: %w", err)
	}
	res.PrinciplesScanned = len(principles)

	byID := make(map[int64]*model.Principle, len(principles))
	for _, p := range principles {
		byID[p.ID] = p
	}

	seen := make(map[[2]int64]bool)
	for _, p := range principles {
		if len(p.Embedding) == 0 {
			continue
		}
		neighbors, err := l.store.NearestPrinciples(p.Embedding, l.cfg.Limits.LinkerCandidateCap)
		if err != nil {
			logging.LinkerDebug("neighbor query failed for principle %d: %v", p.ID, err)
			continue
		}
		for _, n := range neighbors {
			if n.ID == p.ID || n.Similarity <= 0.5 {
				continue
			}
			other, ok := byID[n.ID]
			if !ok {
				continue
			}
			pairKey := normalizedPair(p.ID, other.ID)
			if seen[pairKey] {
				continue
			}
			seen[pairKey] = true

			// classify's generalizes/specializes decision is directional in its
			// argument order, and links are stored with source_id < target_id, so
			// the pair must already be in ID order before it reaches classify —
			// otherwise a swap at storage time would leave the stored direction
			// backwards relative to what was just classified.
			lo, hi := p, other
			if lo.ID > hi.ID {
				lo, hi = hi, lo
			}
			kind, ok := classify(lo, hi, n.Similarity)
			if !ok {
				continue
			}
			link := &model.PrincipleLink{SourceID: lo.ID, TargetID: hi.ID, LinkType: kind, Strength: n.Similarity}
			if err := l.store.CreateLink(link); err != nil {
				logging.LinkerDebug("create link failed for %d<->%d: %v", p.ID, other.ID, err)
				continue
			}
			res.LinksCreated++
		}
	}

	logging.Linker("linking complete: %d principles scanned, %d links created", res.PrinciplesScanned, res.LinksCreated)
	return res, nil
}

func normalizedPair(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

// classify applies the relationship decision table to a candidate pair.
// similarity is assumed already > 0.5 by the caller.
func classify(a, b *model.Principle, similarity float64) (model.PrincipleLinkType, bool) {
	switch {
	case similarity > 0.85:
		return model.LinkReinforces, true
	case similarity >= 0.70 && domainsOverlap(a, b):
		return model.LinkRelated, true
	case similarity >= 0.50 && similarity < 0.70 && negation.HasOpposingPair(a.Content, b.Content):
		return model.LinkContradicts, true
	case tagsOverlap(a, b) && !domainsOverlap(a, b):
		if len(a.Domains) > len(b.Domains) {
			return model.LinkGeneralizes, true
		}
		return model.LinkSpecializes, true
	default:
		return model.LinkRelated, true
	}
}

func domainsOverlap(a, b *model.Principle) bool {
	set := make(map[string]bool, len(a.Domains))
	for _, d := range a.Domains {
		set[d] = true
	}
	for _, d := range b.Domains {
		if set[d] {
			return true
		}
	}
	return false
}

func tagsOverlap(a, b *model.Principle) bool {
	set := make(map[string]bool, len(a.Tags))
	for _, t := range a.Tags {
		set[t] = true
	}
	for _, t := range b.Tags {
		if set[t] {
			return true
		}
	}
	return false
}
