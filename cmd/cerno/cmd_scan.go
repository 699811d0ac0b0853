package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cerno/internal/accumulator"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Ingest context files under a path (default: workspace root)",
	Long: `Walks path for recognized context files, parses each into
fragments, and runs the Accumulator over every fragment, creating or
reinforcing Insights as it goes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	target := ws
	if len(args) == 1 {
		target = args[0]
	}

	app, err := bootApp()
	if err != nil {
		return err
	}
	defer app.closeAll()

	fragments, err := app.parsers.ParseDir(target, app.cfg.Store.MaxFileSize)
	if err != nil {
		return fmt.Errorf("scan %s: %w", target, err)
	}
	if len(fragments) == 0 {
		fmt.Printf("No recognized context files found under %s\n", target)
		return nil
	}

	acc := accumulator.New(app.store, app.parsers, app.engine, app.bus, app.cfg)

	seen := make(map[string]bool)
	ctx := context.Background()
	var errCount int
	for _, frag := range fragments {
		if seen[frag.SourcePath] {
			continue
		}
		seen[frag.SourcePath] = true
		if err := acc.ProcessPath(ctx, frag.SourcePath); err != nil {
			fmt.Printf("  ! %s: %v\n", frag.SourcePath, err)
			errCount++
		}
	}

	fmt.Printf("Scanned %d file(s), %d fragment(s)\n", len(seen), len(fragments))
	if errCount > 0 {
		fmt.Printf("%d file(s) failed to accumulate\n", errCount)
	}
	return nil
}
