package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/analyzer"
	"github.com/bankfeed-dev/bankfeed/internal/categories"
	"github.com/bankfeed-dev/bankfeed/internal/config"
	"github.com/bankfeed-dev/bankfeed/internal/dedup"
	"github.com/bankfeed-dev/bankfeed/internal/logger"
	"github.com/bankfeed-dev/bankfeed/internal/pipeline"
	"github.com/bankfeed-dev/bankfeed/internal/store"
)

const defaultConfigFile = "bankfeed.yaml"

// runtime bundles the opened collaborators for a command invocation.
type runtime struct {
	cfg   *config.Config
	store *store.Store
	pipe  *pipeline.Service
	log   zerolog.Logger
	// dataDir is the directory the config file lives in; the audit log and
	// relative paths resolve against it.
	dataDir string
}

// openRuntime loads config and wires the pipeline. Call close when done.
func openRuntime(cmd *cobra.Command) (*runtime, func(), error) {
	configPath, _ := cmd.Flags().GetString("config")
	if env := os.Getenv("BANKFEED_CONFIG"); env != "" && !cmd.Flags().Changed("config") {
		configPath = env
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s (run `bankfeed init` first): %w", configPath, err)
	}

	dataDir := filepath.Dir(configPath)
	dbPath := cfg.DatabasePath
	if env := os.Getenv("BANKFEED_DB"); env != "" {
		dbPath = env
	}
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(dataDir, dbPath)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New()

	var suggester categories.Suggester
	if cfg.CategorizerURL != "" {
		suggester = categories.NewHTTPSuggester(cfg.CategorizerURL)
	}

	cats, err := st.ListCategories(cmd.Context())
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	pipe := pipeline.NewService(pipeline.Options{
		Batches:       st,
		Templates:     st,
		Analyzer:      analyzer.New(cfg.Thresholds.AnalyzerThresholds()),
		Detector:      dedup.NewDetector(st),
		Suggester:     suggester,
		Catalog:       categories.NewService(cats),
		Log:           log,
		RetryAttempts: cfg.Retry.Attempts,
		RetryBackoff:  time.Duration(cfg.Retry.BackoffMS) * time.Millisecond,
	})

	rt := &runtime{cfg: cfg, store: st, pipe: pipe, log: log, dataDir: dataDir}
	return rt, func() { st.Close() }, nil
}

// importDir resolves the configured import directory against the data dir.
func (rt *runtime) importDir() string {
	if filepath.IsAbs(rt.cfg.ImportDir) {
		return rt.cfg.ImportDir
	}
	return filepath.Join(rt.dataDir, rt.cfg.ImportDir)
}
