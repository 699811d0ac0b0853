package accumulator

import (
	"context"
	"time"

	"cerno/internal/classifier"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/negation"
	"cerno/internal/store"
)

// ingestOutcome records what ingestFragment actually did, so the caller
// can roll the per-file counters into the AccumulationRun record.
type ingestOutcome struct {
	created             bool
	reinforced          bool
	contradictionsFound int
}

// ingestFragment runs the five-step ingestion pipeline against a single
// fragment: exact dedup, embed, semantic dedup, create, contradiction
// probe. Each step is allowed to degrade rather than fail the run: an
// embedding failure, for instance, skips semantic dedup and contradiction
// detection but still creates the insight.
func (a *Accumulator) ingestFragment(ctx context.Context, frag model.Fragment) (ingestOutcome, error) {
	var outcome ingestOutcome

	// Guard: a fragment already linked to an insight (same source_path +
	// content identity) has nothing new to contribute.
	if _, err := a.store.FindInsightByFragmentID(frag.ID); err == nil {
		return outcome, nil
	} else if err != store.ErrNotFound {
		return outcome, err
	}

	result := classifier.Classify(frag.Content, frag.SectionHeading)
	contentHash := model.ContentHash(frag.Content)

	// Step A: exact dedup by content hash.
	if existing, err := a.store.GetInsightByContentHash(contentHash); err == nil {
		now := time.Now()
		if err := a.store.ReinforceInsight(existing.ID, now); err != nil {
			return outcome, err
		}
		if err := a.store.AddInsightSource(&model.InsightSource{
			InsightID: existing.ID, FragmentID: frag.ID, SourcePath: frag.SourcePath,
			SourceProject: frag.SourceProject, SectionHeading: frag.SectionHeading,
			LineStart: frag.LineStart, LineEnd: frag.LineEnd, FileHash: frag.FileHash,
		}); err != nil && err != store.ErrDuplicate {
			return outcome, err
		}
		outcome.reinforced = true
		logging.AccumulatorDebug("exact dedup: reinforced insight %d from %s", existing.ID, frag.SourcePath)
		return outcome, nil
	} else if err != store.ErrNotFound {
		return outcome, err
	}

	// Step B: embed. Failure degrades gracefully: no semantic dedup, no
	// contradiction probe, but the insight is still created without a
	// vector so it can still be retrieved by rank alone later.
	var embedding []float32
	if vec, err := a.engine.Embed(ctx, frag.Content); err != nil {
		logging.AccumulatorWarn("embedding failed for %s: %v", frag.SourcePath, err)
	} else {
		embedding = vec
	}

	// Step C: semantic dedup against the nearest active insight.
	if embedding != nil {
		neighbors, err := a.store.NearestInsights(embedding, 1)
		if err != nil {
			logging.AccumulatorWarn("nearest-neighbor lookup failed: %v", err)
		} else if len(neighbors) > 0 && neighbors[0].Similarity >= a.cfg.Threshold.SemanticThreshold {
			now := time.Now()
			if err := a.store.ReinforceInsight(neighbors[0].ID, now); err != nil {
				return outcome, err
			}
			if err := a.store.AddInsightSource(&model.InsightSource{
				InsightID: neighbors[0].ID, FragmentID: frag.ID, SourcePath: frag.SourcePath,
				SourceProject: frag.SourceProject, SectionHeading: frag.SectionHeading,
				LineStart: frag.LineStart, LineEnd: frag.LineEnd, FileHash: frag.FileHash,
			}); err != nil && err != store.ErrDuplicate {
				return outcome, err
			}
			outcome.reinforced = true
			logging.AccumulatorDebug("semantic dedup: merged into insight %d (sim=%.3f)", neighbors[0].ID, neighbors[0].Similarity)
			return outcome, nil
		}
	}

	// Step D: create the insight and its founding source.
	insight := model.NewInsight(frag.Content, embedding, result.Category, result.Tags, result.Domain, time.Now())
	source := &model.InsightSource{
		FragmentID: frag.ID, SourcePath: frag.SourcePath, SourceProject: frag.SourceProject,
		SectionHeading: frag.SectionHeading, LineStart: frag.LineStart, LineEnd: frag.LineEnd, FileHash: frag.FileHash,
	}
	newID, err := a.store.CreateInsight(insight, source)
	if err != nil {
		if err == store.ErrDuplicate {
			// Lost a race against a concurrent ingest of the identical
			// content; treat it as reinforcement rather than a failure.
			existing, getErr := a.store.GetInsightByContentHash(contentHash)
			if getErr != nil {
				return outcome, nil
			}
			if err := a.store.ReinforceInsight(existing.ID, time.Now()); err != nil {
				return outcome, err
			}
			source.InsightID = existing.ID
			if err := a.store.AddInsightSource(source); err != nil && err != store.ErrDuplicate {
				return outcome, err
			}
			outcome.reinforced = true
			return outcome, nil
		}
		return outcome, err
	}
	insight.ID = newID
	outcome.created = true
	logging.Accumulator("created insight %d from %s (category=%s)", newID, frag.SourcePath, result.Category)

	// Step E: contradiction probe within the similarity window, gated by
	// the negation heuristic, capped at the configured candidate count.
	if embedding != nil {
		found, err := a.probeContradictions(insight, embedding)
		if err != nil {
			logging.AccumulatorWarn("contradiction probe failed for insight %d: %v", newID, err)
		} else {
			outcome.contradictionsFound = found
		}
	}

	return outcome, nil
}

// probeContradictions looks for other active insights within the
// contradiction similarity window [Low, High] whose content negates the
// new insight's, capped at ContradictionCandidateCap candidates.
func (a *Accumulator) probeContradictions(insight *model.Insight, embedding []float32) (int, error) {
	candidateCap := a.cfg.Limits.ContradictionCandidateCap
	neighbors, err := a.store.NearestInsights(embedding, candidateCap)
	if err != nil {
		return 0, err
	}

	found := 0
	for _, n := range neighbors {
		if n.ID == insight.ID {
			continue
		}
		if n.Similarity < a.cfg.Threshold.ContradictionLow || n.Similarity > a.cfg.Threshold.ContradictionHigh {
			continue
		}
		other, err := a.store.GetInsight(n.ID)
		if err != nil {
			continue
		}
		if !negation.HasOpposingPair(insight.Content, other.Content) {
			continue
		}
		c := model.NewContradiction(insight.ID, other.ID, model.ContradictionDirect, "accumulator", n.Similarity, "negation-gated similarity match")
		if _, err := a.store.CreateContradiction(c); err != nil {
			if err == store.ErrDuplicate {
				continue
			}
			return found, err
		}
		found++
		logging.Accumulator("contradiction detected between insights %d and %d (sim=%.3f)", insight.ID, other.ID, n.Similarity)
	}
	return found, nil
}
