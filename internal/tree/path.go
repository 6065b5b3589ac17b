package tree

import "phylotree/internal/models"

// ResolveGenome returns the genome addressed by path: the node ids from the
// root to a bucket followed by the slot in that bucket.
func (ix *Index) ResolveGenome(path []uint32) (*models.Genome, error) {
	chain, err := ix.Ancestors(path)
	if err != nil {
		return nil, err
	}
	last := len(path) - 1
	n := ix.nodes[chain[len(chain)-1]]
	switch n.Kind {
	case KindBucket:
		slot := int(path[last])
		if slot >= len(n.Items) {
			return nil, pathError(path, last, "bucket %d has no slot %d", n.ID, slot)
		}
		return n.Items[slot], nil
	case KindBranch:
		return nil, pathError(path, last, "node %d is a branch, expected a bucket", n.ID)
	default:
		return nil, pathError(path, last, "node %d has unknown kind %d", n.ID, n.Kind)
	}
}

// ResolveNode returns the node addressed by a node path, whose last element
// is a node id.
func (ix *Index) ResolveNode(path []uint32) (*Node, error) {
	if len(path) == 1 {
		if path[0] != RootID {
			return nil, pathError(path, 0, "root id is %d", RootID)
		}
		return ix.nodes[RootID], nil
	}
	chain, err := ix.Ancestors(path)
	if err != nil {
		return nil, err
	}
	id, err := ix.child(chain[len(chain)-1], path, len(path)-1)
	if err != nil {
		return nil, err
	}
	return ix.nodes[id], nil
}

// Ancestors returns the ids of the nodes named by every element of path
// except the last, root first. It fails if the path leaves the tree.
func (ix *Index) Ancestors(path []uint32) ([]NodeID, error) {
	if len(path) < 2 {
		return nil, pathError(path, 0, "path too short")
	}
	if path[0] != RootID {
		return nil, pathError(path, 0, "root id is %d", RootID)
	}

	chain := make([]NodeID, 1, len(path)-1)
	chain[0] = RootID
	for depth := 1; depth < len(path)-1; depth++ {
		id, err := ix.child(chain[depth-1], path, depth)
		if err != nil {
			return nil, err
		}
		chain = append(chain, id)
	}
	return chain, nil
}

// ResolveParentAndIncrement validates path like Ancestors, then increments
// the count of every node strictly between the root and the last ancestor,
// and returns that last ancestor: the parent of the addressed element.
// The caller accounts for the root and the returned node itself.
func (ix *Index) ResolveParentAndIncrement(path []uint32) (NodeID, error) {
	chain, err := ix.Ancestors(path)
	if err != nil {
		return 0, err
	}
	last := len(chain) - 1
	for i := 1; i < last; i++ {
		ix.nodes[chain[i]].Count++
	}
	return chain[last], nil
}

// child returns the child of parent named by path[depth].
func (ix *Index) child(parent NodeID, path []uint32, depth int) (NodeID, error) {
	n := ix.nodes[parent]
	switch n.Kind {
	case KindBranch:
		id := path[depth]
		if n.childIndex(id) < 0 {
			return 0, pathError(path, depth, "node %d has no child %d", parent, id)
		}
		return id, nil
	case KindBucket:
		return 0, pathError(path, depth, "node %d is a bucket, expected a branch", parent)
	default:
		return 0, pathError(path, depth, "node %d has unknown kind %d", parent, n.Kind)
	}
}
