// Package lifecycle runs the third Organiser sub-step: decaying recency
// scores, recomputing rank, then pruning or demoting principles whose
// rank has fallen too low. The three-phase sequential pass mirrors the
// accumulator/clusterer's load-then-mutate shape, scaled to the whole
// principle table instead of one file or cluster.
package lifecycle

import (
	"fmt"
	"math"
	"time"

	"cerno/internal/config"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/store"
)

// scoreEpsilon is the minimum change worth persisting; smaller deltas are
// treated as noise and skipped to avoid needless writes.
const scoreEpsilon = 1e-3

// Lifecycle recomputes decay/rank and applies prune/decay transitions.
type Lifecycle struct {
	store *store.Store
	cfg   *config.Config
}

func New(st *store.Store, cfg *config.Config) *Lifecycle {
	return &Lifecycle{store: st, cfg: cfg}
}

// Result summarizes one lifecycle pass.
type Result struct {
	ScoresUpdated int
	Pruned        int
	Decayed       int
}

// Run executes decay, rank, then prune/decay transitions in sequence over
// every active/decaying principle.
func (l *Lifecycle) Run() (Result, error) {
	var res Result

	principles, err := l.store.ListPrinciplesByStatus(model.PrincipleActive, model.PrincipleDecaying)
	if err != nil {
		return res, fmt.Errorf("lifecycle: list principles: %w", err)
	}
	if len(principles) >= l.cfg.Limits.LifecycleScanCap {
		logging.LifecycleWarn("lifecycle scan hit cap %d", l.cfg.Limits.LifecycleScanCap)
	}

	now := time.Now()
	for _, p := range principles {
		updated, err := l.decay(p, now)
		if err != nil {
			return res, fmt.Errorf("lifecycle: decay principle %d: %w", p.ID, err)
		}
		if updated {
			res.ScoresUpdated++
		}
	}

	for _, p := range principles {
		updated, err := l.rank(p)
		if err != nil {
			return res, fmt.Errorf("lifecycle: rank principle %d: %w", p.ID, err)
		}
		if updated {
			res.ScoresUpdated++
		}
	}

	pruned, decayed, err := l.transition(principles, now)
	if err != nil {
		return res, fmt.Errorf("lifecycle: transition: %w", err)
	}
	res.Pruned = pruned
	res.Decayed = decayed

	logging.Lifecycle("lifecycle pass complete: %d scores updated, %d pruned, %d decayed",
		res.ScoresUpdated, res.Pruned, res.Decayed)
	return res, nil
}

// decay recomputes recency_score via frequency-weighted exponential decay
// and persists it (bundled with the other current scores, since
// UpdatePrincipleScores writes all four together).
func (l *Lifecycle) decay(p *model.Principle, now time.Time) (bool, error) {
	updatedAt, err := l.store.GetPrincipleUpdatedAt(p.ID)
	if err != nil {
		return false, err
	}
	days := now.Sub(updatedAt).Hours() / 24

	effectiveHalfLife := l.cfg.Threshold.HalfLifeDays / (1 + math.Log(math.Max(float64(p.Frequency), 1)))
	if effectiveHalfLife <= 0 {
		effectiveHalfLife = l.cfg.Threshold.HalfLifeDays
	}
	recency := math.Pow(2, -days/effectiveHalfLife)
	if recency < 0 {
		recency = 0
	}
	if recency > 1 {
		recency = 1
	}

	if math.Abs(recency-p.RecencyScore) < scoreEpsilon {
		return false, nil
	}
	p.RecencyScore = recency
	if err := l.store.UpdatePrincipleScores(p.ID, p.Confidence, p.RecencyScore, p.SourceQuality, p.Rank); err != nil {
		return false, err
	}
	return true, nil
}

// rank recomputes the weighted rank formula and persists it if changed.
func (l *Lifecycle) rank(p *model.Principle) (bool, error) {
	linkCount, err := l.store.CountPrincipleLinks(p.ID)
	if err != nil {
		return false, err
	}

	t := l.cfg.Threshold
	freqNorm := math.Min(math.Log(1+float64(p.Frequency))/math.Log(150), 1.0)
	linkNorm := math.Min(float64(linkCount)/20, 1.0)
	rank := t.RankConfidenceWeight*p.Confidence +
		t.RankFrequencyWeight*freqNorm +
		t.RankRecencyWeight*p.RecencyScore +
		t.RankSourceQualityWeight*p.SourceQuality +
		t.RankLinkWeight*linkNorm

	if math.Abs(rank-p.Rank) < scoreEpsilon {
		return false, nil
	}
	p.Rank = rank
	if err := l.store.UpdatePrincipleScores(p.ID, p.Confidence, p.RecencyScore, p.SourceQuality, p.Rank); err != nil {
		return false, err
	}
	return true, nil
}

// transition applies prune (stricter, first) then decay (looser, second)
// status changes so a qualifying principle reaches its final state in one
// pass, per spec order.
func (l *Lifecycle) transition(principles []*model.Principle, now time.Time) (int, int, error) {
	pruned, decayed := 0, 0
	alreadyPruned := make(map[int64]bool, len(principles))

	for _, p := range principles {
		if p.Status != model.PrincipleActive && p.Status != model.PrincipleDecaying {
			continue
		}
		updatedAt, err := l.store.GetPrincipleUpdatedAt(p.ID)
		if err != nil {
			return pruned, decayed, err
		}
		age := now.Sub(updatedAt)

		if p.Rank < l.cfg.Threshold.PruneThreshold && age > 180*24*time.Hour {
			if err := l.store.UpdatePrincipleStatus(p.ID, model.PrinciplePruned); err != nil {
				return pruned, decayed, err
			}
			alreadyPruned[p.ID] = true
			pruned++
		}
	}

	for _, p := range principles {
		if alreadyPruned[p.ID] || p.Status != model.PrincipleActive {
			continue
		}
		updatedAt, err := l.store.GetPrincipleUpdatedAt(p.ID)
		if err != nil {
			return pruned, decayed, err
		}
		age := now.Sub(updatedAt)

		if p.Rank < l.cfg.Threshold.DecayThreshold && age > 90*24*time.Hour {
			if err := l.store.UpdatePrincipleStatus(p.ID, model.PrincipleDecaying); err != nil {
				return pruned, decayed, err
			}
			decayed++
		}
	}
	return pruned, decayed, nil
}
