package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/categories"
	"github.com/bankfeed-dev/bankfeed/internal/config"
	"github.com/bankfeed-dev/bankfeed/internal/store"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new bankfeed project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(absDir)
		},
	}
	return cmd
}

func runInit(dir string) error {
	cfg := config.Default()

	dirs := []string{
		cfg.ImportDir,
		filepath.Join(cfg.ImportDir, "processed"),
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	configPath := filepath.Join(dir, defaultConfigFile)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	// Create the database and schema up front, seeded with the starter
	// category catalog.
	st, err := store.Open(filepath.Join(dir, cfg.DatabasePath))
	if err != nil {
		return err
	}
	for _, cat := range categories.DefaultCatalog() {
		if err := st.AddCategory(context.Background(), cat); err != nil {
			st.Close()
			return fmt.Errorf("seeding category %s: %w", cat.ID, err)
		}
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	fmt.Printf("Initialized bankfeed project in %s\n", dir)
	fmt.Printf("Drop bank exports into %s and run `bankfeed import`.\n", filepath.Join(dir, cfg.ImportDir))
	return nil
}
