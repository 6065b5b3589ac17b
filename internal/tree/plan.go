package tree

import (
	"fmt"
	"slices"

	"phylotree/internal/models"
)

// place puts g next to the genome at best.Path. The relative distance
// best.Distance / closest.BestDistance picks the case:
//
//	<= PairRatio     split the bucket; g and closest form a new bucket
//	>= SiblingRatio  split the bucket; g gets a bucket of its own
//	otherwise        append g to closest's bucket
//
// Every lookup and the id budget are checked before the tree is touched.
func (ix *Index) place(g *models.Genome, best Match) (models.Placement, error) {
	closest, err := ix.ResolveGenome(best.Path)
	if err != nil {
		return 0, err
	}
	chain, err := ix.Ancestors(best.Path)
	if err != nil {
		return 0, err
	}
	bucket := ix.nodes[chain[len(chain)-1]]

	relative := float64(best.Distance) / float64(closest.BestDistance)
	if relative <= ix.cfg.PairRatio && len(bucket.Items) == 1 {
		// nothing would be left behind in the old bucket
		relative = 1.0
	}

	placement := models.PlacedBucket
	switch {
	case relative <= ix.cfg.PairRatio:
		placement = models.PlacedPair
	case relative >= ix.cfg.SiblingRatio:
		placement = models.PlacedSibling
	}
	if placement != models.PlacedBucket && !ix.canAllocate(2) {
		return 0, fmt.Errorf("%w: next id %d, limit %d", ErrIDSpaceExhausted, ix.nextID, ix.cfg.MaxNodeID)
	}

	parent, err := ix.ResolveParentAndIncrement(best.Path)
	if err != nil {
		return 0, err
	}
	if parent != RootID {
		ix.nodes[RootID].Count++
	}
	prefix := slices.Clone(best.Path[:len(best.Path)-1])

	switch placement {
	case models.PlacedPair:
		ix.pair(ix.nodes[parent], prefix, g, closest)
		closest.BestDistance = best.Distance
	case models.PlacedSibling:
		ix.sibling(ix.nodes[parent], prefix, g)
	case models.PlacedBucket:
		ix.append(ix.nodes[parent], prefix, g)
		if best.Distance < closest.BestDistance {
			closest.BestDistance = best.Distance
		}
	}
	if best.Distance < g.BestDistance {
		g.BestDistance = best.Distance
	}
	return placement, nil
}

// pair turns bucket into a branch with two new buckets: the old members
// except closest, and {g, closest}.
func (ix *Index) pair(bucket *Node, prefix []uint32, g, closest *models.Genome) {
	rest := make([]*models.Genome, 0, len(bucket.Items)-1)
	for _, it := range bucket.Items {
		if it != closest {
			rest = append(rest, it)
		}
	}
	ix.split(bucket, prefix, rest, []*models.Genome{g, closest})
}

// sibling turns bucket into a branch holding the unchanged old bucket one
// level deeper and a new bucket with only g.
func (ix *Index) sibling(bucket *Node, prefix []uint32, g *models.Genome) {
	ix.split(bucket, prefix, bucket.Items, []*models.Genome{g})
}

// append adds g to the end of bucket.
func (ix *Index) append(bucket *Node, prefix []uint32, g *models.Genome) {
	bucket.Items = append(bucket.Items, g)
	bucket.Count = len(bucket.Items)
	g.Path = genomePath(prefix, len(bucket.Items)-1)
}

// split converts n into a branch with two new bucket children and rewrites
// the paths of every genome moved.
func (ix *Index) split(n *Node, prefix []uint32, first, second []*models.Genome) {
	left := newBucket(ix.allocate(), first)
	right := newBucket(ix.allocate(), second)
	ix.nodes = append(ix.nodes, left, right)

	n.Kind = KindBranch
	n.Items = nil
	n.Children = []NodeID{left.ID, right.ID}
	n.Count = left.Count + right.Count

	for _, child := range []*Node{left, right} {
		childPrefix := append(slices.Clone(prefix), child.ID)
		for slot, it := range child.Items {
			it.Path = genomePath(childPrefix, slot)
		}
	}
}

func genomePath(prefix []uint32, slot int) []uint32 {
	path := make([]uint32, len(prefix)+1)
	copy(path, prefix)
	path[len(prefix)] = uint32(slot)
	return path
}
