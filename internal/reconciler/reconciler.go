// Package reconciler runs the second pipeline stage: rebuilding clusters,
// recomputing confidence for every active insight, and surfacing the
// read-only promotion-candidate list the Organiser acts on next. Unlike the
// Accumulator, it is a single logical actor guarded by an in-progress
// flag rather than a per-path tracker, since reconciliation operates over
// the whole store rather than one file.
package reconciler

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"cerno/internal/clusterer"
	"cerno/internal/config"
	"cerno/internal/events"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/store"
)

// Reconciler recomputes confidence and identifies promotion candidates
// after every cluster rebuild.
type Reconciler struct {
	store     *store.Store
	clusterer *clusterer.Clusterer
	bus       *events.Bus
	cfg       *config.Config
	running   int32
}

func New(st *store.Store, cfg *config.Config, bus *events.Bus) *Reconciler {
	return &Reconciler{
		store:     st,
		clusterer: clusterer.New(st, cfg),
		bus:       bus,
		cfg:       cfg,
	}
}

// ErrBusy is returned when Run is called while a reconciliation is already
// in progress.
var ErrBusy = fmt.Errorf("reconciler: run already in progress")

// Result summarizes one reconciliation pass.
type Result struct {
	Clusters           clusterer.Result
	InsightsRescored   int
	PromotionCandidate []*model.Insight
}

// Run performs cluster rebuild, confidence adjustment, and promotion
// candidate discovery, publishing reconciliation:complete on success.
// Re-entrant calls while a run is already in progress are dropped.
func (r *Reconciler) Run() (Result, error) {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		logging.ReconcilerDebug("reconciliation already in progress, dropping request")
		return Result{}, ErrBusy
	}
	defer atomic.StoreInt32(&r.running, 0)

	var res Result

	clusterRes, err := r.clusterer.Run()
	if err != nil {
		return res, fmt.Errorf("reconciler: cluster rebuild: %w", err)
	}
	res.Clusters = clusterRes

	rescored, err := r.adjustConfidence()
	if err != nil {
		return res, fmt.Errorf("reconciler: confidence adjustment: %w", err)
	}
	res.InsightsRescored = rescored

	candidates, err := r.promotionCandidates()
	if err != nil {
		return res, fmt.Errorf("reconciler: promotion candidates: %w", err)
	}
	res.PromotionCandidate = candidates

	logging.Reconciler("reconciliation complete: %d clusters, %d insights rescored, %d promotion candidates",
		clusterRes.ClustersBuilt, rescored, len(candidates))

	if r.bus != nil {
		r.bus.Publish(events.TopicReconciliationComplete, events.ReconciliationCompletePayload{
			PromotionCandidateCount: len(candidates),
		})
	}
	return res, nil
}

// adjustConfidence recomputes confidence for every active insight using
// the four-step adjuster chain, persisting only when the value changed.
func (r *Reconciler) adjustConfidence() (int, error) {
	insights, err := r.store.ListActiveInsights(r.cfg.Limits.ConfidenceScanCap)
	if err != nil {
		return 0, err
	}
	if len(insights) >= r.cfg.Limits.ConfidenceScanCap {
		logging.ReconcilerWarn("confidence scan hit cap %d, some insights were not rescored", r.cfg.Limits.ConfidenceScanCap)
	}

	rescored := 0
	for _, ins := range insights {
		next, err := r.computeConfidence(ins)
		if err != nil {
			logging.ReconcilerWarn("confidence recompute failed for insight %d: %v", ins.ID, err)
			continue
		}
		if math.Abs(next-ins.Confidence) < 1e-9 {
			continue
		}
		if err := r.store.UpdateInsightConfidence(ins.ID, next); err != nil {
			return rescored, err
		}
		rescored++
	}
	return rescored, nil
}

func (r *Reconciler) computeConfidence(ins *model.Insight) (float64, error) {
	confidence := ins.Confidence

	// 1. Multi-project boost.
	projects, err := r.store.CountDistinctSourceProjects(ins.ID)
	if err != nil {
		return 0, err
	}
	if projects < 1 {
		projects = 1
	}
	confidence += 0.05 * float64(projects-1)
	if confidence > 1.0 {
		confidence = 1.0
	}

	// 2. Stale decay.
	if time.Since(ins.LastSeenAt) > 90*24*time.Hour {
		confidence *= 0.9
	}

	// 3. Contradiction penalty.
	hasContradiction, err := r.store.InsightHasUnresolvedContradiction(ins.ID)
	if err != nil {
		return 0, err
	}
	if hasContradiction {
		confidence *= 0.8
	}

	// 4. Observation floor.
	floor := math.Log(1+float64(ins.ObservationCount)) / math.Log(50)
	if floor > 0.6 {
		floor = 0.6
	}
	if confidence < floor {
		confidence = floor
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence, nil
}

// promotionCandidates returns active insights eligible for promotion:
// past the confidence/observation/age gate, with no unresolved
// contradiction, and not yet represented by any Derivation.
func (r *Reconciler) promotionCandidates() ([]*model.Insight, error) {
	cutoff := time.Now().AddDate(0, 0, -r.cfg.Threshold.MinAgeDays)
	rows, err := r.store.ListPromotionCandidates(
		r.cfg.Threshold.MinConfidence, r.cfg.Threshold.MinObservations, cutoff, r.cfg.Limits.PromotionCandidateCap)
	if err != nil {
		return nil, err
	}
	if len(rows) >= r.cfg.Limits.PromotionCandidateCap {
		logging.ReconcilerWarn("promotion candidate scan hit cap %d", r.cfg.Limits.PromotionCandidateCap)
	}

	candidates := make([]*model.Insight, 0, len(rows))
	for _, ins := range rows {
		hasContradiction, err := r.store.InsightHasUnresolvedContradiction(ins.ID)
		if err != nil {
			return nil, err
		}
		if hasContradiction {
			continue
		}
		hasDerivation, err := r.store.InsightHasDerivation(ins.ID)
		if err != nil {
			return nil, err
		}
		if hasDerivation {
			continue
		}
		candidates = append(candidates, ins)
	}
	return candidates, nil
}
