package tree

import (
	"fmt"

	"phylotree/internal/models"
)

// Visitor receives the tree in depth-first order.
type Visitor interface {
	EnterBranch(id NodeID, count int) error
	LeaveBranch(id NodeID) error
	Bucket(id NodeID, items []*models.Genome) error
}

// Walk traverses the tree from the root, calling v for every node. Children
// are visited in order. The first error returned by v stops the walk.
func (ix *Index) Walk(v Visitor) error {
	return ix.walk(RootID, v)
}

func (ix *Index) walk(id NodeID, v Visitor) error {
	n := ix.nodes[id]
	switch n.Kind {
	case KindBranch:
		if err := v.EnterBranch(id, n.Count); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := ix.walk(c, v); err != nil {
				return err
			}
		}
		return v.LeaveBranch(id)
	case KindBucket:
		return v.Bucket(id, n.Items)
	default:
		return fmt.Errorf("%w: node %d has unknown kind %d", ErrCorruptPath, id, n.Kind)
	}
}

// Genomes returns every genome in the index in tree order.
func (ix *Index) Genomes() []*models.Genome {
	out := make([]*models.Genome, 0, ix.Len())
	collector := genomeCollector{out: &out}
	_ = ix.Walk(collector)
	return out
}

type genomeCollector struct {
	out *[]*models.Genome
}

func (genomeCollector) EnterBranch(NodeID, int) error { return nil }
func (genomeCollector) LeaveBranch(NodeID) error      { return nil }

func (c genomeCollector) Bucket(_ NodeID, items []*models.Genome) error {
	*c.out = append(*c.out, items...)
	return nil
}
