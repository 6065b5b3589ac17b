package tree

import "phylotree/internal/models"

// NodeID identifies a node. Ids are allocated in increasing order and never
// reused; the root is always RootID.
type NodeID = uint32

// RootID is the id of the root node.
const RootID NodeID = 0

// Kind tells whether a node holds child nodes or genomes.
type Kind uint8

const (
	KindBucket Kind = iota // holds genomes
	KindBranch             // holds child nodes
)

func (k Kind) String() string {
	switch k {
	case KindBucket:
		return "bucket"
	case KindBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// Node is a branch or a bucket. Count is the number of genomes in the
// subtree: the sum of the children's counts for a branch, len(Items) for a
// bucket.
type Node struct {
	ID       NodeID
	Kind     Kind
	Count    int
	Children []NodeID        // KindBranch only
	Items    []*models.Genome // KindBucket only
}

func newBucket(id NodeID, items []*models.Genome) *Node {
	return &Node{ID: id, Kind: KindBucket, Count: len(items), Items: items}
}

// indexOf returns the slot of g in a bucket, or -1.
func (n *Node) indexOf(g *models.Genome) int {
	for i, it := range n.Items {
		if it == g {
			return i
		}
	}
	return -1
}

// childIndex returns the position of child id in a branch, or -1.
func (n *Node) childIndex(id NodeID) int {
	for i, c := range n.Children {
		if c == id {
			return i
		}
	}
	return -1
}
