package tree

import (
	"math/rand/v2"

	"phylotree/internal/models"
)

// WeightedPick draws rounds items at random, each with probability
// proportional to its weight. It behaves like drawing from a pool holding
// every item once per unit of weight:
//
//   - withReplacement: drawn entries go back into the pool, so exactly
//     rounds items are returned and weights only set the odds.
//   - !withReplacement: drawn entries are removed, so no item is returned
//     more often than its weight.
//
// It returns nil when items and weights differ in length, a weight is
// negative, the total weight is zero, or !withReplacement and rounds
// exceeds the total weight.
func WeightedPick[T any](items []T, weights []int, rounds int, withReplacement bool, rng *rand.Rand) []T {
	if len(items) != len(weights) || rounds <= 0 {
		return nil
	}
	total := 0
	for _, w := range weights {
		if w < 0 {
			return nil
		}
		total += w
	}
	if total == 0 || (!withReplacement && rounds > total) {
		return nil
	}

	remaining := make([]int, len(weights))
	copy(remaining, weights)

	picks := make([]T, 0, rounds)
	for range rounds {
		r := rng.IntN(total)
		for i, w := range remaining {
			if r >= w {
				r -= w
				continue
			}
			picks = append(picks, items[i])
			if !withReplacement {
				remaining[i]--
				total--
			}
			break
		}
	}
	return picks
}

// Sample returns up to heads distinct genomes from the subtree of node id.
// Heads are spread over children in proportion to their counts, and each
// bucket reached contributes a uniform draw without replacement.
func (ix *Index) Sample(id NodeID, heads int) []*models.Genome {
	if int(id) >= len(ix.nodes) {
		return nil
	}
	var out []*models.Genome
	ix.sample(id, heads, &out)
	return out
}

func (ix *Index) sample(id NodeID, heads int, out *[]*models.Genome) {
	n := ix.nodes[id]
	heads = min(heads, n.Count)
	if heads <= 0 {
		return
	}

	switch n.Kind {
	case KindBucket:
		heads = min(heads, len(n.Items))
		for _, slot := range ix.rng.Perm(len(n.Items))[:heads] {
			*out = append(*out, n.Items[slot])
		}
	case KindBranch:
		positions := make([]int, len(n.Children))
		weights := make([]int, len(n.Children))
		for i, c := range n.Children {
			positions[i] = i
			weights[i] = ix.nodes[c].Count
		}
		alloc := make([]int, len(n.Children))
		for _, p := range WeightedPick(positions, weights, heads, false, ix.rng) {
			alloc[p]++
		}
		for i, c := range n.Children {
			if alloc[i] > 0 {
				ix.sample(c, alloc[i], out)
			}
		}
	}
}
