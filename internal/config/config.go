package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bankfeed-dev/bankfeed/internal/analyzer"
)

// Config represents the top-level bankfeed.yaml configuration.
type Config struct {
	DatabasePath   string           `yaml:"database_path"`
	ImportDir      string           `yaml:"import_dir"`
	CategorizerURL string           `yaml:"categorizer_url,omitempty"`
	Thresholds     ThresholdsConfig `yaml:"thresholds"`
	Retry          RetryConfig      `yaml:"retry"`
}

// ThresholdsConfig exposes the classifier's tuned decision constants. The
// defaults are empirically tuned; override with care and validate against
// real bank-export samples.
type ThresholdsConfig struct {
	AutoAccept        float64 `yaml:"auto_accept"`
	Assignment        float64 `yaml:"assignment"`
	Unknown           float64 `yaml:"unknown"`
	DebitCreditHeader float64 `yaml:"debit_credit_header"`
	ContentDecisive   float64 `yaml:"content_decisive"`
	ContentStrong     float64 `yaml:"content_strong"`
}

// RetryConfig controls the bounded retry when loading a staged batch.
type RetryConfig struct {
	Attempts  int `yaml:"attempts"`
	BackoffMS int `yaml:"backoff_ms"`
}

// AnalyzerThresholds converts the config values for the analyzer.
func (c ThresholdsConfig) AnalyzerThresholds() analyzer.Thresholds {
	return analyzer.Thresholds{
		AutoAccept:        c.AutoAccept,
		Assignment:        c.Assignment,
		Unknown:           c.Unknown,
		DebitCreditHeader: c.DebitCreditHeader,
		ContentDecisive:   c.ContentDecisive,
		ContentStrong:     c.ContentStrong,
	}
}

// Load reads a bankfeed.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	th := analyzer.DefaultThresholds()
	return &Config{
		DatabasePath: "bankfeed.db",
		ImportDir:    "import",
		Thresholds: ThresholdsConfig{
			AutoAccept:        th.AutoAccept,
			Assignment:        th.Assignment,
			Unknown:           th.Unknown,
			DebitCreditHeader: th.DebitCreditHeader,
			ContentDecisive:   th.ContentDecisive,
			ContentStrong:     th.ContentStrong,
		},
		Retry: RetryConfig{
			Attempts:  3,
			BackoffMS: 200,
		},
	}
}
