// Package resolver orchestrates the Retriever and Formatter against one
// target context file and injects the resolved section back into it,
// the single-actor "read, compute, write, audit" shape described for the
// Resolver in the concurrency model (serialized per invocation by its
// caller, not internally).
package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"cerno/internal/config"
	"cerno/internal/embedding"
	"cerno/internal/formatter"
	"cerno/internal/logging"
	"cerno/internal/model"
	"cerno/internal/retriever"
	"cerno/internal/store"
)

// ErrSymlinkNotAllowed is returned when the target path is a symlink.
var ErrSymlinkNotAllowed = errors.New("resolver: symlink not allowed")

const resolvedHeading = "## Resolved Knowledge from Cerno"

var sectionHeading = regexp.MustCompile(`(?m)^##\s+.*$`)

// Options carries per-resolve overrides.
type Options struct {
	Agent  string
	DryRun bool
}

// Resolver ties the Retriever and Formatter together for one file.
type Resolver struct {
	store     *store.Store
	retriever *retriever.Retriever
	engine    embedding.EmbeddingEngine
	cfg       *config.Config
}

func New(st *store.Store, ret *retriever.Retriever, engine embedding.EmbeddingEngine, cfg *config.Config) *Resolver {
	return &Resolver{store: st, retriever: ret, engine: engine, cfg: cfg}
}

// Resolve implements the §4.12 Resolver.resolve contract.
func (r *Resolver) Resolve(ctx context.Context, path string, opts Options) (string, error) {
	agentName := strings.ToLower(strings.TrimSpace(opts.Agent))
	if agentName == "" {
		agentName = "claude"
	}

	if !opts.DryRun {
		if err := validateTarget(path); err != nil {
			return "", err
		}
	}

	startedAt := time.Now()
	runID, err := r.store.CreateResolutionRun(path, agentName, startedAt)
	if err != nil {
		return "", fmt.Errorf("resolver: create run: %w", err)
	}

	text, retrieved, injected, resolveErr := r.resolveInner(ctx, path, agentName, opts)

	status := model.RunCompleted
	errMsg := ""
	if resolveErr != nil {
		status = model.RunFailed
		errMsg = resolveErr.Error()
	}
	if err := r.store.CompleteResolutionRun(runID, status, time.Now(), retrieved, injected, errMsg); err != nil {
		logging.ResolverWarn("failed to complete resolution run %d: %v", runID, err)
	}
	if resolveErr != nil {
		return "", resolveErr
	}
	return text, nil
}

func (r *Resolver) resolveInner(ctx context.Context, path, agentName string, opts Options) (string, int, int, error) {
	content, err := readOrEmpty(path)
	if err != nil {
		return "", 0, 0, err
	}

	scored, err := r.retriever.RetrieveForFile(ctx, content)
	if err != nil {
		return "", 0, 0, fmt.Errorf("resolver: retrieve: %w", err)
	}

	kept, conflicts := r.embedSectionsAndFilter(ctx, content, scored)

	final := make([]*model.Principle, 0, len(kept)+len(conflicts))
	for _, s := range kept {
		final = append(final, s.Principle)
	}
	for _, s := range conflicts {
		flagged := *s.Principle
		flagged.Content = "[CONFLICT] " + flagged.Content
		final = append(final, &flagged)
	}

	f := formatter.Get(agentName)
	text, err := f.FormatSections(final, formatter.Options{Agent: agentName})
	if err != nil {
		return "", 0, 0, fmt.Errorf("resolver: format: %w", err)
	}

	if opts.DryRun {
		return text, len(kept), len(conflicts), nil
	}
	if err := injectInto(path, text); err != nil {
		return "", 0, 0, err
	}
	return text, len(kept), len(conflicts), nil
}

// embedSectionsAndFilter splits content on H2 headings and embeds each
// section, then applies already-represented filtering. On embedding
// failure it keeps every scored candidate and reports no conflicts,
// per §4.12 step 5.
func (r *Resolver) embedSectionsAndFilter(ctx context.Context, content string, scored []retriever.Scored) (kept, conflicts []retriever.Scored) {
	sections := splitSections(stripResolvedBlock(content))
	if len(sections) == 0 {
		return scored, nil
	}
	embeddings, err := r.engine.EmbedBatch(ctx, sections)
	if err != nil {
		logging.ResolverDebug("section embedding failed, skipping already-represented filter: %v", err)
		return scored, nil
	}
	return r.retriever.FilterAlreadyRepresented(scored, embeddings)
}

// stripResolvedBlock removes a previously-injected resolved-knowledge block
// (marker through the next H2 heading or EOF) before section embeddings are
// computed, so a principle already injected on a prior resolve doesn't
// collide with itself in the already-represented filter.
func stripResolvedBlock(content string) string {
	before, _, tail, found := splitResolvedBlock(content)
	if !found {
		return content
	}
	return before + tail
}

func splitSections(content string) []string {
	var sections []string
	locs := sectionHeading.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed != "" {
			sections = append(sections, trimmed)
		}
		return sections
	}
	for i, loc := range locs {
		start := loc[1]
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(content[start:end])
		if body != "" {
			sections = append(sections, body)
		}
	}
	return sections
}

func validateTarget(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("resolver: stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return ErrSymlinkNotAllowed
	}
	return nil
}

func readOrEmpty(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("resolver: read %s: %w", path, err)
	}
	return string(data), nil
}

// injectInto writes the resolved section into path, replacing an existing
// marked block in place or appending a new one, leaving everything else
// untouched.
func injectInto(path, resolvedText string) error {
	existing, err := readOrEmpty(path)
	if err != nil {
		return err
	}

	block := resolvedHeading + "\n\n" + "_This section is maintained by Cerno. Do not edit by hand._\n\n" + resolvedText

	next := replaceResolvedBlock(existing, block)
	return os.WriteFile(path, []byte(next), 0o644)
}

// replaceResolvedBlock replaces the marked section in existing with block,
// or appends block if no marker is present.
func replaceResolvedBlock(existing, block string) string {
	before, _, tail, found := splitResolvedBlock(existing)
	if !found {
		trimmed := strings.TrimRight(existing, "\n")
		if trimmed == "" {
			return block + "\n"
		}
		return trimmed + "\n\n" + block + "\n"
	}

	if tail == "" {
		return before + block + "\n"
	}
	return before + block + "\n\n" + tail
}

// splitResolvedBlock locates the resolved-knowledge marker in content and
// splits it into everything before the marker, the marked block itself
// (marker through the next H2 heading or EOF), and everything after. found
// is false if no marker is present, in which case before/marked/tail are
// meaningless.
func splitResolvedBlock(content string) (before, marked, tail string, found bool) {
	markerIdx := strings.Index(content, resolvedHeading)
	if markerIdx == -1 {
		return "", "", "", false
	}
	after := content[markerIdx+len(resolvedHeading):]
	nextHeading := sectionHeading.FindStringIndex(after)
	if nextHeading != nil {
		tail = after[nextHeading[0]:]
		marked = content[markerIdx : markerIdx+len(resolvedHeading)+nextHeading[0]]
	} else {
		marked = content[markerIdx:]
	}
	before = content[:markerIdx]
	return before, marked, tail, true
}
