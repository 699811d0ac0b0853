package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cerno/internal/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize Cerno in the current workspace",
	Long: `Creates the .cerno/ directory, a default cerno.yaml, and the
knowledge store for the current workspace.

Run this once per project before 'cerno scan'.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing .cerno/cerno.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	cernoDir := filepath.Join(ws, ".cerno")
	if err := os.MkdirAll(cernoDir, 0o755); err != nil {
		return fmt.Errorf("create .cerno directory: %w", err)
	}

	cfgFile := resolveConfigPath(ws)
	if _, err := os.Stat(cfgFile); err == nil && !forceInit {
		fmt.Printf("Already initialized: %s\n", cfgFile)
		fmt.Println("Use 'cerno init --force' to overwrite the existing config.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(cfgFile); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	app, err := bootApp()
	if err != nil {
		return err
	}
	defer app.closeAll()

	fmt.Printf("Initialized Cerno in %s\n", cernoDir)
	fmt.Printf("  config: %s\n", cfgFile)
	fmt.Printf("  store:  %s\n", resolveDBPath(ws))
	return nil
}
