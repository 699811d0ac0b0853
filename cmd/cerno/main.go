// Package main implements the Cerno CLI - a bidirectional knowledge-memory
// system for AI coding agents.
//
// This file is the entry point and command registration hub. Command
// implementations are split across cmd_*.go files for maintainability,
// mirroring the teacher CLI's file layout.
//
// # File Index
//
//   - main.go       - Entry point, rootCmd, global flags, init()
//   - cmd_init.go   - initCmd, runInit()
//   - cmd_scan.go   - scanCmd, runScan()
//   - cmd_resolve.go - resolveCmd, runResolve()
//   - cmd_status.go - statusCmd, insightsCmd, principlesCmd
//   - cmd_pipeline.go - reconcileCmd, organiseCmd
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cerno/internal/logging"
)

var (
	verbose   bool
	workspace string
	cfgPath   string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cerno",
	Short: "Cerno - bidirectional knowledge-memory for AI coding agents",
	Long: `Cerno observes context files written by AI coding agents, distills
durable Principles out of repeated Insights, and resolves that knowledge
back into a target file on request.

Run 'cerno init' once per project, then 'cerno scan' to ingest context
files and 'cerno resolve <path>' to inject accumulated knowledge.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Configure(ws, verbose, "info", false, nil); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to cerno.yaml (default: <workspace>/.cerno/cerno.yaml)")

	rootCmd.AddCommand(
		initCmd,
		scanCmd,
		resolveCmd,
		statusCmd,
		insightsCmd,
		principlesCmd,
		reconcileCmd,
		organiseCmd,
	)
}

func resolveWorkspace() string {
	if workspace != "" {
		abs, err := filepath.Abs(workspace)
		if err == nil {
			return abs
		}
		return workspace
	}
	cwd, _ := os.Getwd()
	return cwd
}

func resolveConfigPath(ws string) string {
	if cfgPath != "" {
		return cfgPath
	}
	return filepath.Join(ws, ".cerno", "cerno.yaml")
}

func resolveDBPath(ws string) string {
	return filepath.Join(ws, ".cerno", "cerno.db")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
