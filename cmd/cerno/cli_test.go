package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func TestRunInit_CreatesConfigAndStore(t *testing.T) {
	logger = zap.NewNop()
	ws := t.TempDir()
	workspace = ws
	defer func() { workspace = "" }()

	cmd := &cobra.Command{}

	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws, ".cerno", "cerno.yaml")); os.IsNotExist(err) {
		t.Error("cerno.yaml was not created")
	}
	if _, err := os.Stat(filepath.Join(ws, ".cerno", "cerno.db")); os.IsNotExist(err) {
		t.Error("cerno.db was not created")
	}

	// second run without --force should not error
	if err := runInit(cmd, nil); err != nil {
		t.Errorf("second runInit failed: %v", err)
	}
}

func TestRunScan_EmptyWorkspaceIsNotAnError(t *testing.T) {
	logger = zap.NewNop()
	ws := t.TempDir()
	workspace = ws
	defer func() { workspace = "" }()

	cmd := &cobra.Command{}
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	if err := runScan(cmd, nil); err != nil {
		t.Fatalf("runScan failed on empty workspace: %v", err)
	}
}

func TestRunScan_IngestsContextFile(t *testing.T) {
	logger = zap.NewNop()
	ws := t.TempDir()
	workspace = ws
	defer func() { workspace = "" }()

	cmd := &cobra.Command{}
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	ctxFile := filepath.Join(ws, "notes.md")
	content := "## Learnings\n\nAlways validate input at the boundary.\n"
	if err := os.WriteFile(ctxFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write context file: %v", err)
	}

	if err := runScan(cmd, nil); err != nil {
		t.Fatalf("runScan failed: %v", err)
	}

	app, err := bootApp()
	if err != nil {
		t.Fatalf("bootApp failed: %v", err)
	}
	defer app.closeAll()

	stats, err := app.store.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Insights == 0 {
		t.Error("expected at least one insight after scan")
	}
}

func TestRunStatus_DoesNotErrorOnFreshWorkspace(t *testing.T) {
	logger = zap.NewNop()
	ws := t.TempDir()
	workspace = ws
	defer func() { workspace = "" }()

	cmd := &cobra.Command{}
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	if err := runStatus(cmd, nil); err != nil {
		t.Fatalf("runStatus failed: %v", err)
	}
}

func TestRunResolve_DryRunOnMissingTargetDoesNotError(t *testing.T) {
	logger = zap.NewNop()
	ws := t.TempDir()
	workspace = ws
	resolveDryRun = true
	defer func() {
		workspace = ""
		resolveDryRun = false
	}()

	cmd := &cobra.Command{}
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	target := filepath.Join(ws, "AGENTS.md")
	if err := runResolve(cmd, []string{target}); err != nil {
		t.Fatalf("runResolve failed: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("dry-run resolve should not create the target file")
	}
}
