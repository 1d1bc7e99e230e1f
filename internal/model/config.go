package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds every tunable of a qcacontra run
type Config struct {
	Filter      FilterConfig      `yaml:"filter" mapstructure:"filter"`
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// FilterConfig controls the contradiction filter
type FilterConfig struct {
	Rows    string `yaml:"rows" mapstructure:"rows"`       // consistent, inconsistent or both
	Policy  string `yaml:"policy" mapstructure:"policy"`   // strict or lenient handling of unknown case labels
	Outcome string `yaml:"outcome" mapstructure:"outcome"` // Overrides the outcome named by the truth table
}

// InputConfig controls how datasets are read
type InputConfig struct {
	LabelColumn string `yaml:"label_column" mapstructure:"label_column"` // Empty means the first column
	Sheet       string `yaml:"sheet" mapstructure:"sheet"`               // XLSX sheet, empty means the first sheet
}

// OutputConfig controls rendering
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // table, json, yaml or markdown
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// CacheConfig controls the result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "qcacontra-cache")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "qcacontra")
	}

	return &Config{
		Filter: FilterConfig{
			Rows:   "both",
			Policy: "strict",
		},
		Output: OutputConfig{
			Format: "table",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}
