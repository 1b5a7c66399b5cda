// Package config defines the canonical, JSON-serializable configuration
// model for a pipeline run. It is intentionally small, explicit, and
// dependency-free: a run config is loaded from disk with encoding/json and
// passed through the program without additional glue code.
//
// Example (config/pipeline_config.json):
//
//	{
//	  "job": "retail_sales",
//	  "num_files": 10,
//	  "records_per_file": 1000,
//	  "raw_data_dir": "data/raw",
//	  "processed_data_dir": "data/processed",
//	  "curated_data_dir": "data/curated",
//	  "backend": "memory",
//	  "runtime": { "workers": 4, "partitions": 8 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory  = "memory"
	BackendCluster = "cluster"
)

// Config describes one full pipeline run.
type Config struct {
	// Job names the run for metrics labeling and log lines.
	Job string `json:"job"`

	// NumFiles and RecordsPerFile size the synthetic generation stage.
	NumFiles       int `json:"num_files"`
	RecordsPerFile int `json:"records_per_file"`

	// Seed makes generation reproducible. Zero seeds from the clock.
	Seed int64 `json:"seed"`

	// RawDir receives generated JSON; ProcessedDir the converted CSV;
	// CuratedDir the normalized data and aggregation views. The cluster
	// backend writes to CuratedDir + "_cluster" so both backends' outputs
	// can coexist for comparison.
	RawDir       string `json:"raw_data_dir"`
	ProcessedDir string `json:"processed_data_dir"`
	CuratedDir   string `json:"curated_data_dir"`

	// Backend selects the aggregation engine: "memory" or "cluster".
	Backend string `json:"backend"`

	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls the cluster backend's concurrency. Zero values
// let the compute context pick its defaults.
type RuntimeConfig struct {
	Workers    int `json:"workers"`
	Partitions int `json:"partitions"`
}

// Default returns the fallback configuration used when no config file is
// present.
func Default() Config {
	return Config{
		Job:            "retail_sales",
		NumFiles:       10,
		RecordsPerFile: 1000,
		RawDir:         "data/raw",
		ProcessedDir:   "data/processed",
		CuratedDir:     "data/curated",
		Backend:        BackendMemory,
	}
}

// Load decodes a Config from the JSON file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var c Config
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return c, nil
}

// OutputDir resolves the curated output directory for the configured
// backend.
func (c Config) OutputDir() string {
	if c.Backend == BackendCluster {
		return c.CuratedDir + "_cluster"
	}
	return c.CuratedDir
}
