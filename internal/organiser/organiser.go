// Package organiser runs the third pipeline stage: Promotion, then
// Linking, then Lifecycle, triggered by reconciliation:complete or a
// manual invocation. It is a single logical actor guarded by its own
// in-progress flag, the same kind the reconciler uses, since organisation
// also operates over the whole store rather than one path.
package organiser

import (
	"fmt"
	"sync/atomic"

	"cerno/internal/config"
	"cerno/internal/lifecycle"
	"cerno/internal/linker"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/promoter"
	"cerno/internal/store"
)

// CandidateSource supplies the promotion candidates identified by the
// last reconciliation pass. The reconciler's Result.PromotionCandidate
// field has this type; Organiser doesn't import reconciler to avoid a cycle, so
// the caller (cmd/cerno) passes the slice directly. Organiser itself
// publishes nothing further; reconciliation:complete is the event that
// triggers it, wired by the caller.
type CandidateSource = []*model.Insight

// Organiser runs Promotion -> Linking -> Lifecycle in sequence.
type Organiser struct {
	promoter  *promoter.Promoter
	linker    *linker.Linker
	lifecycle *lifecycle.Lifecycle
	running   int32
}

func New(st *store.Store, cfg *config.Config) *Organiser {
	return &Organiser{
		promoter:  promoter.New(st, cfg),
		linker:    linker.New(st, cfg),
		lifecycle: lifecycle.New(st, cfg),
	}
}

// ErrBusy is returned when Run is called while an organisation pass is
// already in progress.
var ErrBusy = fmt.Errorf("organiser: run already in progress")

// Result aggregates the three sub-stage results.
type Result struct {
	Promotion promoter.Result
	Linking   linker.Result
	Lifecycle lifecycle.Result
}

// Run promotes the given candidates, links principles, then runs the
// lifecycle pass. Re-entrant calls are dropped while a run is in flight.
func (o *Organiser) Run(candidates CandidateSource) (Result, error) {
	if !atomic.CompareAndSwapInt32(&o.running, 0, 1) {
		logging.OrganiserDebug("organisation already in progress, dropping request")
		return Result{}, ErrBusy
	}
	defer atomic.StoreInt32(&o.running, 0)

	var res Result

	promotionRes, err := o.promoter.Run(candidates)
	if err != nil {
		return res, fmt.Errorf("organiser: promotion: %w", err)
	}
	res.Promotion = promotionRes

	linkRes, err := o.linker.Run()
	if err != nil {
		return res, fmt.Errorf("organiser: linking: %w", err)
	}
	res.Linking = linkRes

	lifecycleRes, err := o.lifecycle.Run()
	if err != nil {
		return res, fmt.Errorf("organiser: lifecycle: %w", err)
	}
	res.Lifecycle = lifecycleRes

	logging.Organiser("organisation complete: %d promoted, %d links created, %d pruned, %d decayed",
		promotionRes.Created, linkRes.LinksCreated, lifecycleRes.Pruned, lifecycleRes.Decayed)
	return res, nil
}
