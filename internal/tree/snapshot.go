package tree

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"phylotree/internal/models"
)

// Snapshot is a flat copy of the tree structure. Counts and genome paths are
// derived data and are rebuilt by Restore.
type Snapshot struct {
	NextID NodeID
	Nodes  []SnapshotNode // ordered by id
}

// SnapshotNode is one node of a Snapshot.
type SnapshotNode struct {
	ID       NodeID
	Kind     Kind
	Children []NodeID
	Items    []*models.Genome
}

// Snapshot returns the current structure of the index. Genome records are
// shared, not copied.
func (ix *Index) Snapshot() *Snapshot {
	snap := &Snapshot{NextID: ix.nextID, Nodes: make([]SnapshotNode, len(ix.nodes))}
	for i, n := range ix.nodes {
		snap.Nodes[i] = SnapshotNode{
			ID:       n.ID,
			Kind:     n.Kind,
			Children: slices.Clone(n.Children),
			Items:    slices.Clone(n.Items),
		}
	}
	return snap
}

// Restore rebuilds an index from a snapshot, recomputing counts and genome
// paths, and verifies the result with Check.
func Restore(seqs Sequences, cfg *Config, snap *Snapshot, opts ...Option) (*Index, error) {
	if snap == nil || len(snap.Nodes) == 0 {
		return New(seqs, cfg, opts...), nil
	}
	if int(snap.NextID) != len(snap.Nodes) {
		return nil, fmt.Errorf("%w: snapshot has %d nodes but next id %d", ErrCorruptPath, len(snap.Nodes), snap.NextID)
	}

	ix := newIndex(seqs, cfg, opts...)
	ix.nodes = make([]*Node, len(snap.Nodes))
	for _, sn := range snap.Nodes {
		if int(sn.ID) >= len(ix.nodes) || ix.nodes[sn.ID] != nil {
			return nil, fmt.Errorf("%w: duplicate or out of range node id %d", ErrCorruptPath, sn.ID)
		}
		n := &Node{ID: sn.ID, Kind: sn.Kind}
		switch sn.Kind {
		case KindBranch:
			n.Children = slices.Clone(sn.Children)
		case KindBucket:
			n.Items = slices.Clone(sn.Items)
		default:
			return nil, fmt.Errorf("%w: node %d has unknown kind %d", ErrCorruptPath, sn.ID, sn.Kind)
		}
		ix.nodes[sn.ID] = n
	}
	ix.nextID = snap.NextID

	if _, err := ix.rebuild(RootID, []uint32{RootID}, roaring.New()); err != nil {
		return nil, err
	}
	if err := ix.Check(); err != nil {
		return nil, err
	}
	return ix, nil
}

// rebuild recomputes counts and genome paths below id and returns the
// subtree count.
func (ix *Index) rebuild(id NodeID, prefix []uint32, seen *roaring.Bitmap) (int, error) {
	if !seen.CheckedAdd(id) {
		return 0, fmt.Errorf("%w: node %d reachable twice", ErrCorruptPath, id)
	}
	n := ix.nodes[id]
	switch n.Kind {
	case KindBranch:
		n.Count = 0
		for _, c := range n.Children {
			if int(c) >= len(ix.nodes) {
				return 0, fmt.Errorf("%w: node %d names missing child %d", ErrCorruptPath, id, c)
			}
			cnt, err := ix.rebuild(c, append(slices.Clone(prefix), c), seen)
			if err != nil {
				return 0, err
			}
			n.Count += cnt
		}
	case KindBucket:
		for slot, g := range n.Items {
			g.Path = genomePath(prefix, slot)
		}
		n.Count = len(n.Items)
	}
	return n.Count, nil
}

// Check verifies the structural invariants: every allocated id names
// exactly one node reachable from the root, counts add up, and every
// genome's path resolves to itself.
func (ix *Index) Check() error {
	if len(ix.nodes) != int(ix.nextID) {
		return fmt.Errorf("%w: %d nodes but next id %d", ErrCorruptPath, len(ix.nodes), ix.nextID)
	}
	seen := roaring.New()
	if _, err := ix.check(RootID, []uint32{RootID}, seen); err != nil {
		return err
	}
	if seen.GetCardinality() != uint64(len(ix.nodes)) {
		return fmt.Errorf("%w: %d of %d nodes reachable", ErrCorruptPath, seen.GetCardinality(), len(ix.nodes))
	}
	return nil
}

func (ix *Index) check(id NodeID, path []uint32, seen *roaring.Bitmap) (int, error) {
	n := ix.nodes[id]
	if n == nil || n.ID != id {
		return 0, fmt.Errorf("%w: arena slot %d holds the wrong node", ErrCorruptPath, id)
	}
	if got, err := ix.ResolveNode(path); err != nil {
		return 0, err
	} else if got != n {
		return 0, fmt.Errorf("%w: node path %v resolves to node %d, want %d", ErrCorruptPath, path, got.ID, id)
	}
	if !seen.CheckedAdd(id) {
		return 0, fmt.Errorf("%w: node %d reachable twice", ErrCorruptPath, id)
	}
	total := 0
	switch n.Kind {
	case KindBranch:
		for _, c := range n.Children {
			if int(c) >= len(ix.nodes) {
				return 0, fmt.Errorf("%w: node %d names missing child %d", ErrCorruptPath, id, c)
			}
			cnt, err := ix.check(c, append(slices.Clone(path), c), seen)
			if err != nil {
				return 0, err
			}
			total += cnt
		}
	case KindBucket:
		for slot, g := range n.Items {
			got, err := ix.ResolveGenome(g.Path)
			if err != nil {
				return 0, err
			}
			if got != g || n.indexOf(g) != slot {
				return 0, fmt.Errorf("%w: genome %s path %v resolves elsewhere", ErrCorruptPath, g.Source, g.Path)
			}
		}
		total = len(n.Items)
	default:
		return 0, fmt.Errorf("%w: node %d has unknown kind %d", ErrCorruptPath, id, n.Kind)
	}
	if n.Count != total {
		return 0, fmt.Errorf("%w: node %d count %d, want %d", ErrCorruptPath, id, n.Count, total)
	}
	return total, nil
}
