package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Workers)
	}
	if cfg.Kmers.Size != 16 || cfg.Kmers.Count != 64 {
		t.Errorf("kmers = %+v, want {16 64}", cfg.Kmers)
	}
	if cfg.Index.PairRatio != 0.85 || cfg.Index.SiblingRatio != 1.17 {
		t.Errorf("ratios = (%v, %v), want (0.85, 1.17)", cfg.Index.PairRatio, cfg.Index.SiblingRatio)
	}
	if cfg.Database == "" {
		t.Error("database should have a default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Index.SearchHeads != 8 {
		t.Errorf("search heads = %d, want 8", cfg.Index.SearchHeads)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phylotree.yaml")
	data := `
database: /tmp/genomes.db
workers: 3
kmers:
  size: 21
index:
  max_node_id: 255
  seed: 42
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database != "/tmp/genomes.db" {
		t.Errorf("database = %s, want /tmp/genomes.db", cfg.Database)
	}
	if cfg.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Workers)
	}
	if cfg.Kmers.Size != 21 || cfg.Kmers.Count != 64 {
		t.Errorf("kmers = %+v, want {21 64}", cfg.Kmers)
	}

	tc := cfg.Tree()
	if tc.MaxNodeID != 255 || tc.Seed != 42 {
		t.Errorf("tree config = %+v, want max id 255 and seed 42", tc)
	}
	if tc.SearchHeads != 8 || tc.PairRatio != 0.85 {
		t.Errorf("unset tree fields were not defaulted: %+v", tc)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "workers: [1, 2"},
		{"ratios reversed", "index:\n  pair_ratio: 1.5\n  sibling_ratio: 1.2\n"},
		{"limit too small", "index:\n  search_heads: 8\n  exhaustive_limit: 4\n"},
		{"log format", "log_format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "phylotree.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOrDefault(t *testing.T) {
	var nilCfg *Config
	if nilCfg.OrDefault() == nil {
		t.Fatal("OrDefault on nil should return defaults")
	}

	cfg := (&Config{Workers: -2, Kmers: KmerConfig{Size: 9}}).OrDefault()
	if cfg.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Workers)
	}
	if cfg.Kmers.Size != 9 || cfg.Kmers.Count != 64 {
		t.Errorf("kmers = %+v, want {9 64}", cfg.Kmers)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phylotree.yaml")
	cfg := Default()
	cfg.Workers = 5
	cfg.Index.Seed = 77

	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Workers != 5 || loaded.Index.Seed != 77 {
		t.Errorf("loaded = %+v", loaded)
	}
}
