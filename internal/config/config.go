// Package config loads phylotree settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"phylotree/internal/tree"
)

// Config holds every setting the CLI needs. Zero values are replaced by
// defaults in OrDefault.
type Config struct {
	Database  string `yaml:"database"`
	Workers   int    `yaml:"workers"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Kmers KmerConfig  `yaml:"kmers"`
	Index IndexConfig `yaml:"index"`
}

// KmerConfig controls k-mer sampling.
type KmerConfig struct {
	Size  int `yaml:"size"`
	Count int `yaml:"count"`
}

// IndexConfig mirrors tree.Config.
type IndexConfig struct {
	SearchHeads         int     `yaml:"search_heads"`
	ExhaustiveLimit     int     `yaml:"exhaustive_limit"`
	PairRatio           float64 `yaml:"pair_ratio"`
	SiblingRatio        float64 `yaml:"sibling_ratio"`
	MaxNodeID           uint32  `yaml:"max_node_id"`
	MaxNarrowIterations int     `yaml:"max_narrow_iterations"`
	Seed                uint64  `yaml:"seed"`
}

// DefaultDatabase returns ~/.phylotree/tree.db, or tree.db in the working
// directory when the home directory is unknown.
func DefaultDatabase() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tree.db"
	}
	return filepath.Join(home, ".phylotree", "tree.db")
}

// Default returns the default configuration.
func Default() *Config {
	ic := tree.DefaultConfig()
	return &Config{
		Database:  DefaultDatabase(),
		Workers:   8,
		LogLevel:  "warn",
		LogFormat: "text",
		Kmers: KmerConfig{
			Size:  16,
			Count: 64,
		},
		Index: IndexConfig{
			SearchHeads:         ic.SearchHeads,
			ExhaustiveLimit:     ic.ExhaustiveLimit,
			PairRatio:           ic.PairRatio,
			SiblingRatio:        ic.SiblingRatio,
			MaxNodeID:           ic.MaxNodeID,
			MaxNarrowIterations: ic.MaxNarrowIterations,
		},
	}
}

// OrDefault returns Default if c is nil, otherwise fills unset fields.
func (c *Config) OrDefault() *Config {
	if c == nil {
		return Default()
	}
	d := Default()
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.Kmers.Size <= 0 {
		c.Kmers.Size = d.Kmers.Size
	}
	if c.Kmers.Count <= 0 {
		c.Kmers.Count = d.Kmers.Count
	}
	return c
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Index.PairRatio < 0 || c.Index.SiblingRatio < 0 {
		return errors.New("ratios must not be negative")
	}
	if c.Index.PairRatio > 0 && c.Index.SiblingRatio > 0 && c.Index.PairRatio >= c.Index.SiblingRatio {
		return fmt.Errorf("pair_ratio %.2f must be below sibling_ratio %.2f", c.Index.PairRatio, c.Index.SiblingRatio)
	}
	if c.Index.SearchHeads > 0 && c.Index.ExhaustiveLimit > 0 && c.Index.ExhaustiveLimit <= c.Index.SearchHeads {
		return fmt.Errorf("exhaustive_limit %d must exceed search_heads %d", c.Index.ExhaustiveLimit, c.Index.SearchHeads)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Tree returns the index configuration, normalized by tree.Config.OrDefault.
func (c *Config) Tree() *tree.Config {
	tc := &tree.Config{
		SearchHeads:         c.Index.SearchHeads,
		ExhaustiveLimit:     c.Index.ExhaustiveLimit,
		PairRatio:           c.Index.PairRatio,
		SiblingRatio:        c.Index.SiblingRatio,
		MaxNodeID:           c.Index.MaxNodeID,
		MaxNarrowIterations: c.Index.MaxNarrowIterations,
		Seed:                c.Index.Seed,
	}
	return tc.OrDefault()
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg = cfg.OrDefault()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Write saves cfg as YAML.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
