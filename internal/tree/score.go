package tree

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"phylotree/internal/models"
)

// Match is the exact distance between the new genome and one candidate.
type Match struct {
	Distance int
	Path     []uint32
}

// score computes the exact distance between content and every candidate,
// one goroutine per candidate. Any failure fails the whole call.
func (ix *Index) score(ctx context.Context, content []byte, candidates []*models.Genome) ([]Match, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	matches := make([]Match, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(candidates))
	for i, c := range candidates {
		path := slices.Clone(c.Path)
		g.Go(func() error {
			seq, err := ix.seqs.Content(gctx, c.Source)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", c.Source, err)
			}
			matches[i] = Match{Distance: ix.distance(content, seq), Path: path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

// closest returns the match with the smallest distance, the first one on ties.
func closest(matches []Match) (Match, error) {
	if len(matches) == 0 {
		return Match{}, ErrNoCandidates
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Distance < best.Distance {
			best = m
		}
	}
	return best, nil
}
