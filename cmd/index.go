package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"phylotree/internal/models"
	"phylotree/internal/scan"
	"phylotree/internal/sequence"
	"phylotree/internal/storage"
	"phylotree/internal/tree"
)

// session is an open database with its index loaded
type session struct {
	store   *storage.Storage
	seqs    *sequence.Store
	index   *tree.Index
	kmers   [2]int // size, count
	indexed map[string]bool
}

// openSession opens the database and restores the saved tree, or starts an
// empty one when fresh is set.
func openSession(fresh bool) (*session, error) {
	store, err := storage.NewStorage(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &session{
		store: store,
		seqs:  sequence.NewStore(sequence.WithCacheSize(4 * cfg.Workers)),
	}
	if err := s.loadKmerSettings(fresh); err != nil {
		store.Close()
		return nil, err
	}

	opts := []tree.Option{tree.WithLogger(logger)}
	if fresh {
		s.index = tree.New(s.seqs, cfg.Tree(), opts...)
	} else {
		s.index, err = store.LoadSnapshot(s.seqs, cfg.Tree(), opts...)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to load tree: %w", err)
		}
	}

	s.indexed = make(map[string]bool, s.index.Len())
	for _, g := range s.index.Genomes() {
		s.indexed[g.Source] = true
	}
	return s, nil
}

// loadKmerSettings keeps the k-mer size and count of an existing tree, so
// genomes added later are sampled the same way.
func (s *session) loadKmerSettings(fresh bool) error {
	s.kmers = [2]int{cfg.Kmers.Size, cfg.Kmers.Count}
	if fresh {
		return nil
	}
	for i, key := range []string{storage.MetaKmerSize, storage.MetaKmerCount} {
		value, ok, err := s.store.GetMeta(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q in database: %w", key, value, err)
		}
		if n != s.kmers[i] {
			logger.Warn("using k-mer setting of the existing tree", "setting", key, "stored", n, "configured", s.kmers[i])
		}
		s.kmers[i] = n
	}
	return nil
}

func (s *session) scanner(opts ...scan.Option) *scan.Scanner {
	base := []scan.Option{
		scan.WithStore(s.seqs),
		scan.WithWorkers(cfg.Workers),
		scan.WithKmers(s.kmers[0], s.kmers[1]),
		scan.WithSeed(cfg.Index.Seed),
		scan.WithLogger(logger),
	}
	return scan.NewScanner(append(base, opts...)...)
}

// insertAll inserts genomes in order, skipping sources already in the tree.
// Failed insertions leave the tree unchanged and are counted in run.
func (s *session) insertAll(ctx context.Context, genomes []*models.Genome, run *models.BuildRun, progress func(done, total int, current string)) error {
	for i, g := range genomes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.indexed[g.Source] {
			logger.Info("genome already indexed", "source", g.Source)
			continue
		}
		p, err := s.index.Insert(ctx, g)
		switch {
		case err == nil:
			s.indexed[g.Source] = true
			run.Record(p)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			// the index logs the failure
			run.Failed++
		}
		if progress != nil {
			progress(i+1, len(genomes), g.Source)
		}
	}
	return nil
}

// save stores the tree, the k-mer settings and the run summary.
func (s *session) save(ctx context.Context, run *models.BuildRun) error {
	if err := s.store.SaveSnapshot(s.index); err != nil {
		return fmt.Errorf("failed to save tree: %w", err)
	}
	if err := s.store.SetMeta(storage.MetaKmerSize, strconv.Itoa(s.kmers[0])); err != nil {
		return err
	}
	if err := s.store.SetMeta(storage.MetaKmerCount, strconv.Itoa(s.kmers[1])); err != nil {
		return err
	}
	run.Total = s.index.Len()
	if err := s.store.RecordRun(run); err != nil {
		return err
	}
	logger.LogBuild(ctx, run.Folder, run.Inserted, run.Failed, run.Total)
	return nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// progressLine rewrites a single status line on stdout. It is safe for
// concurrent use by the scan workers.
type progressLine struct {
	mu    sync.Mutex
	label string
	last  string
}

func (p *progressLine) update(done, total int, current string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
	p.last = fmt.Sprintf("%s: %d/%d  %s", p.label, done, total, shortenPath(current, 50))
	fmt.Print(p.last)
}

func (p *progressLine) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
}

func (p *progressLine) clearLocked() {
	if p.last != "" {
		fmt.Print("\r" + strings.Repeat(" ", len(p.last)) + "\r")
		p.last = ""
	}
}

func printRunSummary(title string, run *models.BuildRun) {
	fmt.Println()
	fmt.Printf("=== %s ===\n", title)
	fmt.Printf("Inserted:         %d\n", run.Inserted)
	fmt.Printf("  paired:         %d\n", run.Pairs)
	fmt.Printf("  own bucket:     %d\n", run.Siblings)
	fmt.Printf("  joined bucket:  %d\n", run.Buckets)
	fmt.Printf("Failed:           %d\n", run.Failed)
	fmt.Printf("Genomes in tree:  %d\n", run.Total)
}

func shortenPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	// Try to show filename and as much of the path as possible
	dir, file := filepath.Split(path)
	if len(file) >= maxLen-3 {
		return "..." + file[len(file)-(maxLen-3):]
	}

	remaining := maxLen - len(file) - 4 // 4 for ".../"
	if remaining > 0 && len(dir) > remaining {
		dir = dir[len(dir)-remaining:]
	}
	return "..." + dir + file
}
