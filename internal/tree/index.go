package tree

import (
	"context"
	"fmt"
	"math/rand/v2"

	"phylotree/internal/logging"
	"phylotree/internal/models"
	"phylotree/internal/sequence"
)

// Sequences provides the sequence content genomes are compared by.
type Sequences interface {
	Content(ctx context.Context, source string) ([]byte, error)
}

// DistanceFunc computes the exact distance between two sequences.
type DistanceFunc func(a, b []byte) int

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for insert and narrowing events.
func WithLogger(l *logging.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.log = l
		}
	}
}

// WithDistance replaces the exact distance function (default Levenshtein).
func WithDistance(fn DistanceFunc) Option {
	return func(ix *Index) {
		if fn != nil {
			ix.distance = fn
		}
	}
}

// Index is the genome clustering tree. Nodes live in an arena indexed by
// their id, so node references are plain ids that stay valid across
// mutations.
type Index struct {
	cfg      *Config
	seqs     Sequences
	distance DistanceFunc
	rng      *rand.Rand
	log      *logging.Logger

	nodes  []*Node // nodes[id] is the node with that id
	nextID NodeID

	narrowHook func(id NodeID, count int) // observes every narrowing step
}

// New creates an empty index whose root is an empty bucket.
// Uses default config if cfg is nil.
func New(seqs Sequences, cfg *Config, opts ...Option) *Index {
	ix := newIndex(seqs, cfg, opts...)
	ix.nodes = []*Node{newBucket(RootID, nil)}
	ix.nextID = RootID + 1
	return ix
}

func newIndex(seqs Sequences, cfg *Config, opts ...Option) *Index {
	cfg = cfg.OrDefault()
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	ix := &Index{
		cfg:      cfg,
		seqs:     seqs,
		distance: sequence.Levenshtein,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Config returns the current configuration.
func (ix *Index) Config() *Config {
	return ix.cfg
}

// Len returns the number of genomes in the index.
func (ix *Index) Len() int {
	return ix.nodes[RootID].Count
}

// NextID returns the id the next allocated node will get.
func (ix *Index) NextID() NodeID {
	return ix.nextID
}

// NodeCount returns the number of nodes in the index.
func (ix *Index) NodeCount() int {
	return len(ix.nodes)
}

// Node returns the node with the given id, or nil.
// The returned node must not be modified.
func (ix *Index) Node(id NodeID) *Node {
	if int(id) >= len(ix.nodes) {
		return nil
	}
	return ix.nodes[id]
}

// Insert adds g to the index and returns how it was placed. On error the
// tree is left unchanged.
func (ix *Index) Insert(ctx context.Context, g *models.Genome) (models.Placement, error) {
	placement, best, err := ix.insert(ctx, g)
	if g != nil {
		ix.log.LogInsert(ctx, g.Source, placement.String(), best, g.Path, err)
	}
	return placement, err
}

func (ix *Index) insert(ctx context.Context, g *models.Genome) (models.Placement, int, error) {
	if g == nil {
		return 0, 0, fmt.Errorf("nil genome")
	}
	if g.Path != nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrAlreadyIndexed, g.Source)
	}

	root := ix.nodes[RootID]
	if root.Count == 0 {
		switch root.Kind {
		case KindBucket:
			g.Path = []uint32{RootID, 0}
			root.Items = append(root.Items, g)
			root.Count = 1
			return models.PlacedFirst, models.NoDistance, nil
		case KindBranch:
			return 0, 0, pathError([]uint32{RootID}, 0, "empty root is a branch")
		}
	}

	content, err := ix.seqs.Content(ctx, g.Source)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load %s: %w", g.Source, err)
	}

	candidates, err := ix.narrow(ctx, g)
	if err != nil {
		return 0, 0, err
	}

	matches, err := ix.score(ctx, content, candidates)
	if err != nil {
		return 0, 0, err
	}

	best, err := closest(matches)
	if err != nil {
		return 0, 0, err
	}

	placement, err := ix.place(g, best)
	if err != nil {
		return 0, 0, err
	}
	return placement, best.Distance, nil
}

// allocate hands out the next node id.
func (ix *Index) allocate() NodeID {
	id := ix.nextID
	ix.nextID++
	return id
}

// canAllocate reports whether n more ids fit in the configured id space.
// A next id of RootID means the id counter has wrapped.
func (ix *Index) canAllocate(n int) bool {
	if ix.nextID == RootID {
		return false
	}
	return uint64(ix.nextID)+uint64(n)-1 <= uint64(ix.cfg.MaxNodeID)
}
