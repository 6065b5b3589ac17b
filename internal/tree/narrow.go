package tree

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"phylotree/internal/models"
	"phylotree/internal/sequence"
)

// narrow descends from the root towards the subtree holding the genomes
// that share the most k-mers with g, until the subtree is small enough to
// compare exhaustively. It returns at most SearchHeads candidates.
func (ix *Index) narrow(ctx context.Context, g *models.Genome) ([]*models.Genome, error) {
	heads := ix.cfg.SearchHeads
	current := RootID
	checked := roaring.New()
	checked.Add(current)

	for range ix.cfg.MaxNarrowIterations {
		n := ix.nodes[current]
		candidates := ix.Sample(current, heads)
		ix.log.LogNarrow(ctx, current, n.Count, len(candidates))
		if ix.narrowHook != nil {
			ix.narrowHook(current, n.Count)
		}
		if n.Count < ix.cfg.ExhaustiveLimit {
			return candidates, nil
		}

		best, err := ix.mostSimilar(ctx, g, candidates)
		if err != nil {
			return nil, err
		}
		chain, err := ix.Ancestors(best.Path)
		if err != nil {
			return nil, err
		}

		next, ok := ix.nextRegion(chain, checked, n.Count/heads)
		if !ok {
			// current is a bucket larger than the exhaustive limit
			return candidates, nil
		}
		checked.Add(next)
		current = next
	}
	return nil, fmt.Errorf("%w after %d iterations", ErrNarrowingDiverged, ix.cfg.MaxNarrowIterations)
}

// nextRegion walks chain root first and returns the first unchecked node
// that is either below threshold itself or followed by a node below it.
// Nodes that are still too broad on both counts are passed through.
func (ix *Index) nextRegion(chain []NodeID, checked *roaring.Bitmap, threshold int) (NodeID, bool) {
	for i, id := range chain {
		if checked.Contains(id) {
			continue
		}
		broad := ix.nodes[id].Count >= threshold
		nextBroad := i+1 < len(chain) && ix.nodes[chain[i+1]].Count >= threshold
		if broad && nextBroad {
			continue
		}
		return id, true
	}
	return 0, false
}

// mostSimilar returns the candidate whose sequence contains the most of
// g's k-mers; ties go to the earlier candidate.
func (ix *Index) mostSimilar(ctx context.Context, g *models.Genome, candidates []*models.Genome) (*models.Genome, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	var best *models.Genome
	bestScore := -1
	for _, c := range candidates {
		seq, err := ix.seqs.Content(ctx, c.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", c.Source, err)
		}
		if score := sequence.ApproxMatch(g.Kmers, seq); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, nil
}
