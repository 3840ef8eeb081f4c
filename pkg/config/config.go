// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/user/framefetch/pkg/adapters/indexstore"
	"github.com/user/framefetch/pkg/adapters/smartdecoder"
	"github.com/user/framefetch/pkg/indexer"
	"github.com/user/framefetch/pkg/orchestrator"
	"github.com/user/framefetch/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for framefetch.
type Config struct {
	// Decoding
	Decoder    string `yaml:"decoder"`     // auto, software or accelerated
	FFmpegPath string `yaml:"ffmpeg_path"` // Empty searches PATH and common locations
	Workers    int    `yaml:"workers"`     // Intervals decoded at once

	// Planning
	MergeGap int64 `yaml:"merge_gap"`

	// Indexing
	MaxRead           uint64 `yaml:"max_read"`    // Largest single read, 0 = unlimited
	HeaderRead        uint64 `yaml:"header_read"` // Read-ahead for box headers
	IndexCacheDir     string `yaml:"index_cache_dir"`
	IndexCacheEntries int    `yaml:"index_cache_entries"`

	// Output
	LogLevel    string `yaml:"log_level"`
	ImageFormat string `yaml:"image_format"` // png or bmp

	// S3 sources
	Region string `yaml:"region"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Decoder: string(smartdecoder.ModeAuto),
		Workers: runtime.NumCPU(),

		HeaderRead:        indexer.DefaultHeaderRead,
		IndexCacheDir:     defaultCacheDir(),
		IndexCacheEntries: indexstore.DefaultEntries,

		LogLevel:    "info",
		ImageFormat: "png",

		DebugDir: "./debug",
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "framefetch", "index")
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values no component accepts.
func (c Config) Validate() error {
	if _, err := smartdecoder.ParseMode(c.Decoder); err != nil {
		return err
	}
	switch c.ImageFormat {
	case "png", "bmp":
	default:
		return fmt.Errorf("config: unknown image format %q", c.ImageFormat)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if c.MergeGap < 0 {
		return fmt.Errorf("config: merge_gap must not be negative, got %d", c.MergeGap)
	}
	if _, ok := ports.LookupLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	if c.IndexCacheEntries < 1 {
		return fmt.Errorf("config: index_cache_entries must be at least 1, got %d", c.IndexCacheEntries)
	}
	return nil
}

// IndexerOptions returns the options for building indexes.
func (c Config) IndexerOptions() indexer.Options {
	return indexer.Options{
		HeaderRead: c.HeaderRead,
		MaxRead:    c.MaxRead,
	}
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		MergeGap: c.MergeGap,
	}
}
