package scan

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"phylotree/internal/logging"
	"phylotree/internal/models"
	"phylotree/internal/sequence"
)

// Scanner finds genome files and prepares their records for insertion
type Scanner struct {
	store      *sequence.Store
	workers    int
	kmerSize   int
	kmerCount  int
	seed       uint64
	log        *logging.Logger
	progressFn func(scanned, total int, current string)
}

// Option configures a Scanner
type Option func(*Scanner)

// WithWorkers sets the number of parallel workers
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithKmers sets the k-mer length and how many k-mers are sampled per genome
func WithKmers(k, count int) Option {
	return func(s *Scanner) {
		if k > 0 {
			s.kmerSize = k
		}
		if count > 0 {
			s.kmerCount = count
		}
	}
}

// WithSeed makes k-mer sampling reproducible
func WithSeed(seed uint64) Option {
	return func(s *Scanner) {
		s.seed = seed
	}
}

// WithStore sets the sequence store files are read through
func WithStore(store *sequence.Store) Option {
	return func(s *Scanner) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets the logger skipped files are reported to
func WithLogger(l *logging.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProgress sets a progress callback
func WithProgress(fn func(scanned, total int, current string)) Option {
	return func(s *Scanner) {
		s.progressFn = fn
	}
}

// NewScanner creates a new Scanner
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		workers:   8,
		kmerSize:  16,
		kmerCount: 64,
		log:       logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = sequence.NewStore()
	}
	if s.seed == 0 {
		s.seed = rand.Uint64()
	}
	return s
}

// Skipped is a file that could not be prepared
type Skipped struct {
	Path string
	Err  error
}

// Result holds the genomes prepared from a folder, sorted by path
type Result struct {
	Genomes []*models.Genome
	Skipped []Skipped
}

// FindGenomes returns every supported genome file below folder, sorted
func FindGenomes(folder string) ([]string, error) {
	var paths []string
	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() {
			return nil
		}
		if sequence.IsSupportedGenome(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk folder: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ScanFolder finds genome files in a folder and prepares them
func (s *Scanner) ScanFolder(ctx context.Context, folder string) (*Result, error) {
	paths, err := FindGenomes(folder)
	if err != nil {
		return nil, err
	}
	return s.ScanFiles(ctx, paths)
}

// ScanFiles prepares the given genome files in parallel. Files that cannot
// be read are reported in Result.Skipped; only cancellation fails the scan.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) (*Result, error) {
	if len(paths) == 0 {
		return &Result{}, nil
	}

	var (
		genomes   = make([]*models.Genome, len(paths))
		skipped   []Skipped
		skippedMu sync.Mutex
		scanned   int64
		total     = len(paths)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			genome, err := s.prepare(gctx, path, uint64(i))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.WithSource(path).WarnContext(gctx, "skipping genome", "error", err)
				skippedMu.Lock()
				skipped = append(skipped, Skipped{Path: path, Err: err})
				skippedMu.Unlock()
			} else {
				genomes[i] = genome
			}

			n := atomic.AddInt64(&scanned, 1)
			if s.progressFn != nil {
				s.progressFn(int(n), total, path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Genomes: make([]*models.Genome, 0, len(paths)), Skipped: skipped}
	for _, genome := range genomes {
		if genome != nil {
			res.Genomes = append(res.Genomes, genome)
		}
	}
	sort.Slice(res.Skipped, func(i, j int) bool {
		return res.Skipped[i].Path < res.Skipped[j].Path
	})
	return res, nil
}

// PrepareFile reads one genome file and samples its k-mers
func (s *Scanner) PrepareFile(ctx context.Context, path string) (*models.Genome, error) {
	return s.prepare(ctx, path, rand.Uint64())
}

func (s *Scanner) prepare(ctx context.Context, path string, stream uint64) (*models.Genome, error) {
	seq, err := s.store.Content(ctx, path)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(s.seed, stream))
	kmers, err := sequence.LoadKmers(seq, s.kmerSize, s.kmerCount, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to sample k-mers from %s: %w", path, err)
	}

	genome := models.NewGenome(path, kmers)
	genome.Label = sequence.Label(path)
	genome.Length = len(seq)
	return genome, nil
}

// Store returns the sequence store the scanner reads through
func (s *Scanner) Store() *sequence.Store {
	return s.store
}
