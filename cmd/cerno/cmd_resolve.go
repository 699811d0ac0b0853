package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cerno/internal/resolver"
	"cerno/internal/retriever"
)

var (
	resolveAgent  string
	resolveDryRun bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Inject accumulated knowledge into a target file",
	Long: `Retrieves the Principles most relevant to the target file, filters
out anything the file already covers, and injects the result under a
"Resolved Knowledge from Cerno" section.

With --dry-run, prints the resolved text instead of writing the file.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveAgent, "agent", "claude", "Target agent format (e.g. claude)")
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "Print the resolved text instead of writing it")
}

func runResolve(cmd *cobra.Command, args []string) error {
	target := args[0]

	app, err := bootApp()
	if err != nil {
		return err
	}
	defer app.closeAll()

	ret := retriever.New(app.store, app.engine, app.cfg)
	res := resolver.New(app.store, ret, app.engine, app.cfg)

	text, err := res.Resolve(context.Background(), target, resolver.Options{
		Agent:  resolveAgent,
		DryRun: resolveDryRun,
	})
	if err != nil {
		return fmt.Errorf("resolve %s: %w", target, err)
	}

	if resolveDryRun {
		fmt.Println(text)
		return nil
	}

	fmt.Printf("Resolved knowledge injected into %s\n", target)
	return nil
}
