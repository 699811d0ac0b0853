package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cerno/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print store-wide counts",
	RunE:  runStatus,
}

var insightsLimit int

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "List active insights",
	RunE:  runInsights,
}

var principlesCmd = &cobra.Command{
	Use:   "principles",
	Short: "List active and decaying principles",
	RunE:  runPrinciples,
}

func init() {
	insightsCmd.Flags().IntVar(&insightsLimit, "limit", 20, "Maximum insights to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := bootApp()
	if err != nil {
		return err
	}
	defer app.closeAll()

	stats, err := app.store.GetStats()
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	fmt.Printf("Insights:       %d\n", stats.Insights)
	fmt.Printf("Principles:     %d\n", stats.Principles)
	fmt.Printf("Contradictions: %d\n", stats.Contradictions)
	fmt.Printf("Clusters:       %d\n", stats.Clusters)
	fmt.Printf("Watched files:  %d\n", stats.WatchedFiles)
	fmt.Printf("Vector index:   %v\n", stats.VectorIndex)

	accRuns, err := app.store.ListAccumulationRuns(5)
	if err != nil {
		return fmt.Errorf("list accumulation runs: %w", err)
	}
	if len(accRuns) > 0 {
		fmt.Println("\nRecent accumulation runs:")
		for _, r := range accRuns {
			fmt.Printf("  #%-4d [%s] %s  +%d created  +%d reinforced\n",
				r.ID, r.Status, r.SourcePath, r.InsightsCreated, r.InsightsReinforced)
		}
	}

	resRuns, err := app.store.ListResolutionRuns(5)
	if err != nil {
		return fmt.Errorf("list resolution runs: %w", err)
	}
	if len(resRuns) > 0 {
		fmt.Println("\nRecent resolution runs:")
		for _, r := range resRuns {
			fmt.Printf("  #%-4d [%s] %s (%s)  retrieved=%d injected=%d\n",
				r.ID, r.Status, r.TargetPath, r.Agent, r.PrinciplesRetrieved, r.PrinciplesInjected)
		}
	}

	return nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	app, err := bootApp()
	if err != nil {
		return err
	}
	defer app.closeAll()

	insights, err := app.store.ListActiveInsights(insightsLimit)
	if err != nil {
		return fmt.Errorf("list insights: %w", err)
	}
	if len(insights) == 0 {
		fmt.Println("No active insights.")
		return nil
	}
	for _, ins := range insights {
		fmt.Printf("#%-5d [%s] conf=%.2f obs=%d  %s\n", ins.ID, ins.Category, ins.Confidence, ins.ObservationCount, truncate(ins.Content, 80))
	}
	return nil
}

func runPrinciples(cmd *cobra.Command, args []string) error {
	app, err := bootApp()
	if err != nil {
		return err
	}
	defer app.closeAll()

	principles, err := app.store.ListPrinciplesByStatus(model.PrincipleActive, model.PrincipleDecaying)
	if err != nil {
		return fmt.Errorf("list principles: %w", err)
	}
	if len(principles) == 0 {
		fmt.Println("No principles yet.")
		return nil
	}
	for _, p := range principles {
		fmt.Printf("#%-5d [%s/%s] rank=%.3f conf=%.2f  %s\n", p.ID, p.Category, p.Status, p.Rank, p.Confidence, truncate(p.Content, 80))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
