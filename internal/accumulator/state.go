package accumulator

import (
	"sync"
	"time"
)

// pathState is the per-path lifecycle the Accumulator enforces: a path is
// idle, being processed, or cooling down after a just-finished scan so a
// rapid sequence of saves doesn't re-trigger the whole pipeline.
type pathState int

const (
	stateIdle pathState = iota
	stateProcessing
	stateCooldown
)

// pathTracker is the Accumulator's mutual-exclusion and rate-limit guard,
// one instance shared across every watched path.
type pathTracker struct {
	mu       sync.Mutex
	inFlight map[string]bool
	cooldown map[string]time.Time
	cooldownDur time.Duration
}

func newPathTracker(cooldownDur time.Duration) *pathTracker {
	return &pathTracker{
		inFlight: make(map[string]bool),
		cooldown: make(map[string]time.Time),
		cooldownDur: cooldownDur,
	}
}

// tryBegin attempts to move path from idle to processing. It returns false
// (refusing the scan) if the path is already in flight or still cooling
// down from a previous scan.
func (t *pathTracker) tryBegin(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.inFlight[path] {
		return false
	}
	if until, ok := t.cooldown[path]; ok && time.Now().Before(until) {
		return false
	}
	t.inFlight[path] = true
	return true
}

// finish moves path from processing into cooldown.
func (t *pathTracker) finish(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inFlight, path)
	t.cooldown[path] = time.Now().Add(t.cooldownDur)
}

func (t *pathTracker) state(path string) pathState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight[path] {
		return stateProcessing
	}
	if until, ok := t.cooldown[path]; ok && time.Now().Before(until) {
		return stateCooldown
	}
	return stateIdle
}
