package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cerno/internal/organiser"
	"cerno/internal/reconciler"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Rebuild clusters, rescore confidence, and discover promotion candidates",
	RunE:  runReconcile,
}

var organiseCmd = &cobra.Command{
	Use:   "organise",
	Short: "Reconcile, then promote, link, and run lifecycle decay/pruning",
	Long: `Runs a full Reconciler pass to rebuild clusters and discover
promotion candidates, then hands those candidates to the Organiser for
promotion, linking, and lifecycle maintenance.`,
	RunE: runOrganise,
}

func init() {
	organiseCmd.Aliases = []string{"organize"}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	app, err := bootApp()
	if err != nil {
		return err
	}
	defer app.closeAll()

	rec := reconciler.New(app.store, app.cfg, app.bus)
	res, err := rec.Run()
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	fmt.Printf("Clusters rebuilt:       %d\n", res.Clusters.ClustersBuilt)
	fmt.Printf("Insights rescored:      %d\n", res.InsightsRescored)
	fmt.Printf("Promotion candidates:   %d\n", len(res.PromotionCandidate))
	return nil
}

func runOrganise(cmd *cobra.Command, args []string) error {
	app, err := bootApp()
	if err != nil {
		return err
	}
	defer app.closeAll()

	rec := reconciler.New(app.store, app.cfg, app.bus)
	recRes, err := rec.Run()
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	org := organiser.New(app.store, app.cfg)
	orgRes, err := org.Run(recRes.PromotionCandidate)
	if err != nil {
		return fmt.Errorf("organise: %w", err)
	}

	fmt.Printf("Promoted:   %d\n", orgRes.Promotion.Created)
	fmt.Printf("Links:      %d\n", orgRes.Linking.LinksCreated)
	fmt.Printf("Pruned:     %d\n", orgRes.Lifecycle.Pruned)
	fmt.Printf("Decayed:    %d\n", orgRes.Lifecycle.Decayed)
	return nil
}
