package sequence

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"", "ACGT", 4},
		{"ACGT", "", 4},
		{"ACGT", "ACGT", 0},
		{"kitten", "sitting", 3},
		{"kit", "glimmen", 6},
		{"kitten", "alderkitten", 5},
		{"alderkitten", "kitten", 5},
		{"AAAA", "AATA", 1},
		{"GATTACA", "GCATGCU", 4},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			got := Levenshtein([]byte(tt.a), []byte(tt.b))
			if got != tt.expected {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
			if back := Levenshtein([]byte(tt.b), []byte(tt.a)); back != got {
				t.Errorf("Levenshtein not symmetric: %d vs %d", got, back)
			}
		})
	}
}

func TestIsSupportedGenome(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"genome.fna", true},
		{"genome.FNA", true},
		{"genome.fa", true},
		{"genome.fasta", true},
		{"genome.ffn", true},
		{"genome.fna.gz", true},
		{"genome.fasta.GZ", true},
		{"genome.gz", false},
		{"report.jsonl", false},
		{"notes.txt", false},
		{"noextension", false},
		{"/data/E_coli/GCF_000005845.2.fna", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := IsSupportedGenome(tt.path)
			if got != tt.expected {
				t.Errorf("IsSupportedGenome(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestReadFASTA(t *testing.T) {
	input := ">NC_000913.3 Escherichia coli\nacgtACGT\n; comment\n\nTTGG  \n>second record\nNNA\n"
	seq, err := ReadFASTA(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadFASTA failed: %v", err)
	}
	if string(seq) != "ACGTACGTTTGGNNA" {
		t.Errorf("ReadFASTA = %q, want %q", seq, "ACGTACGTTTGGNNA")
	}

	_, err = ReadFASTA(strings.NewReader(">only a header\n"))
	if !errors.Is(err, ErrEmptySequence) {
		t.Errorf("expected ErrEmptySequence, got %v", err)
	}
}

func TestReadFile_Gzip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "genome.fna.gz")

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(">header\nACGT\nAC\n")); err != nil {
		t.Fatalf("failed to compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to compress: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	seq, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(seq) != "ACGTAC" {
		t.Errorf("ReadFile = %q, want ACGTAC", seq)
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.fna"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadKmers(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	seq := []byte("ACGTACGTTTGGCCAA")

	kmers, err := LoadKmers(seq, 4, 20, rng)
	if err != nil {
		t.Fatalf("LoadKmers failed: %v", err)
	}
	if len(kmers) != 20 {
		t.Fatalf("got %d kmers, want 20", len(kmers))
	}
	for _, km := range kmers {
		if len(km) != 4 || !bytes.Contains(seq, []byte(km)) {
			t.Errorf("kmer %q is not a 4-long substring of the sequence", km)
		}
	}

	// a sequence exactly k long has a single k-mer
	kmers, err = LoadKmers([]byte("ACGT"), 4, 3, rng)
	if err != nil {
		t.Fatalf("LoadKmers failed: %v", err)
	}
	for _, km := range kmers {
		if km != "ACGT" {
			t.Errorf("kmer = %q, want ACGT", km)
		}
	}

	_, err = LoadKmers([]byte("ACG"), 4, 3, rng)
	if !errors.Is(err, ErrSequenceTooShort) {
		t.Errorf("expected ErrSequenceTooShort, got %v", err)
	}
}

func TestApproxMatch(t *testing.T) {
	seq := []byte("ACGTACGTTTGG")
	tests := []struct {
		name     string
		kmers    []string
		expected int
	}{
		{"none", nil, 0},
		{"all present", []string{"ACGT", "TTGG", "GTAC"}, 3},
		{"some present", []string{"ACGT", "CCCC", "GGGG"}, 1},
		{"duplicates counted", []string{"ACGT", "ACGT"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ApproxMatch(tt.kmers, seq); got != tt.expected {
				t.Errorf("ApproxMatch = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/genomes/Escherichia_coli/GCF_1.fna", "Escherichia_coli"},
		{"genomes/Homo_sapiens_2/x.fna", "Homo_sapiens_2"},
		{"x.fna", "x.fna"},
	}
	for _, tt := range tests {
		if got := Label(tt.path); got != tt.expected {
			t.Errorf("Label(%q) = %q, want %q", tt.path, got, tt.expected)
		}
	}
}

func TestStore_CachesContent(t *testing.T) {
	var reads atomic.Int32
	s := NewStore(WithReader(func(path string) ([]byte, error) {
		reads.Add(1)
		return []byte(path), nil
	}))

	for range 3 {
		seq, err := s.Content(context.Background(), "ACGT")
		if err != nil {
			t.Fatalf("Content failed: %v", err)
		}
		if string(seq) != "ACGT" {
			t.Errorf("Content = %q, want ACGT", seq)
		}
	}
	if reads.Load() != 1 {
		t.Errorf("reads = %d, want 1", reads.Load())
	}
}

func TestStore_Eviction(t *testing.T) {
	var reads atomic.Int32
	s := NewStore(WithCacheSize(2), WithReader(func(path string) ([]byte, error) {
		reads.Add(1)
		return []byte(path), nil
	}))
	ctx := context.Background()

	for _, src := range []string{"a", "b", "c", "a"} {
		if _, err := s.Content(ctx, src); err != nil {
			t.Fatalf("Content failed: %v", err)
		}
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	// "a" was evicted by "c" and read again
	if reads.Load() != 4 {
		t.Errorf("reads = %d, want 4", reads.Load())
	}
}

func TestStore_Error(t *testing.T) {
	s := NewStore(WithReader(func(path string) ([]byte, error) {
		return nil, os.ErrNotExist
	}))
	_, err := s.Content(context.Background(), "missing")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("failed reads must not be cached")
	}
}

func TestStore_CanceledContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	s := NewStore(WithReader(func(path string) ([]byte, error) {
		<-block
		return nil, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Content(ctx, "slow"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
