// Package accumulator implements the first pipeline stage: turning a
// changed context file into Insights. It owns a per-path state machine
// (idle -> processing -> cooldown -> idle) so a burst of saves to the
// same file collapses into a single scan, the same in-flight-set +
// cooldown-window shape the teacher's file watchers use to avoid
// re-triggering work on their own debounce tail.
package accumulator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cerno/internal/config"
	"cerno/internal/embedding"
	"cerno/internal/events"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/parser"
	"cerno/internal/store"
)

// Accumulator ingests one context file at a time, producing or reinforcing
// Insights and recording an AccumulationRun for every scan attempted.
type Accumulator struct {
	store    *store.Store
	registry *parser.Registry
	engine   embedding.EmbeddingEngine
	bus      *events.Bus
	cfg      *config.Config
	tracker  *pathTracker
}

// New builds an Accumulator. bus may be nil if the caller doesn't need
// accumulation:complete notifications (e.g. a one-shot CLI scan).
func New(st *store.Store, reg *parser.Registry, engine embedding.EmbeddingEngine, bus *events.Bus, cfg *config.Config) *Accumulator {
	return &Accumulator{
		store:    st,
		registry: reg,
		engine:   engine,
		bus:      bus,
		cfg:      cfg,
		tracker:  newPathTracker(time.Duration(cfg.Limits.AccumulatorCooldownSec) * time.Second),
	}
}

// ErrBusy is returned when ProcessPath is called for a path that is
// already being scanned or is still in its post-scan cooldown window.
var ErrBusy = fmt.Errorf("accumulator: path busy")

// ProcessPath runs the full accumulation pipeline for a single file: it
// reads and hashes the file, returns early (the fast path) if the content
// is unchanged since the last scan, parses it into fragments, ingests each
// fragment in order, and records an AccumulationRun either way.
func (a *Accumulator) ProcessPath(ctx context.Context, path string) error {
	if !a.tracker.tryBegin(path) {
		logging.AccumulatorDebug("skipping %s: %v", path, ErrBusy)
		return ErrBusy
	}
	defer a.tracker.finish(path)

	startedAt := time.Now()
	runID, err := a.store.CreateAccumulationRun(path, startedAt)
	if err != nil {
		return fmt.Errorf("accumulator: create run: %w", err)
	}

	fragmentsSeen, created, reinforced, contradictions, runErr := a.run(ctx, path)

	status := model.RunCompleted
	errMsg := ""
	if runErr != nil {
		status = model.RunFailed
		errMsg = runErr.Error()
		logging.AccumulatorError("accumulation failed for %s: %v", path, runErr)
	}
	if err := a.store.CompleteAccumulationRun(runID, status, time.Now(), fragmentsSeen, created, reinforced, contradictions, errMsg); err != nil {
		return fmt.Errorf("accumulator: complete run: %w", err)
	}

	if runErr == nil && a.bus != nil {
		a.bus.Publish(events.TopicAccumulationComplete, events.AccumulationCompletePayload{Path: path})
	}
	return runErr
}

func (a *Accumulator) run(ctx context.Context, path string) (fragmentsSeen, created, reinforced, contradictions int, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return 0, 0, 0, 0, fmt.Errorf("accumulator: read %s: %w", path, readErr)
	}
	fileHash := model.FileHash(data)

	projectName := filepath.Base(filepath.Dir(path))
	if wp, wpErr := a.store.GetWatchedProject(path); wpErr == nil && wp.FileHash == fileHash {
		logging.AccumulatorDebug("unchanged file, skipping scan: %s", path)
		return 0, 0, 0, 0, nil
	}

	fragments, parseErr := a.registry.Parse(path, a.cfg.Store.MaxFileSize)
	if parseErr != nil {
		// A parse error fails this run but must not take down the
		// accumulator: the run is recorded as failed and processing moves on.
		return 0, 0, 0, 0, fmt.Errorf("accumulator: parse %s: %w", path, parseErr)
	}
	fragmentsSeen = len(fragments)

	for _, frag := range fragments {
		outcome, ingestErr := a.ingestFragment(ctx, frag)
		if ingestErr != nil {
			logging.AccumulatorWarn("ingest failed for fragment in %s: %v", path, ingestErr)
			continue
		}
		if outcome.created {
			created++
		}
		if outcome.reinforced {
			reinforced++
		}
		contradictions += outcome.contradictionsFound
	}

	if upErr := a.store.UpsertWatchedProject(&model.WatchedProject{
		Name: projectName, Path: path, LastScannedAt: time.Now(), FileHash: fileHash, Active: true,
	}); upErr != nil {
		logging.AccumulatorWarn("failed to update watched project state for %s: %v", path, upErr)
	}

	return fragmentsSeen, created, reinforced, contradictions, nil
}
