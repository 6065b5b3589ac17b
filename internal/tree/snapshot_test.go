package tree

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phylotree/internal/models"
)

func TestSnapshotRestore(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 22))
	seqs := memSequences{}
	ix := New(seqs, testConfig())
	for i, seq := range randomFamily(rng, 3, 30, 40) {
		src := string(rune('A' + i))
		seqs[src] = seq
		_, err := ix.Insert(t.Context(), genomeFor(t, src, seq, rng))
		require.NoError(t, err)
	}

	snap := ix.Snapshot()
	paths := map[*models.Genome][]uint32{}
	for _, g := range ix.Genomes() {
		paths[g] = g.Path
		g.Path = nil // Restore must rebuild them
	}

	restored, err := Restore(seqs, testConfig(), snap)
	require.NoError(t, err)
	assert.Equal(t, ix.Len(), restored.Len())
	assert.Equal(t, ix.NextID(), restored.NextID())
	for g, want := range paths {
		assert.Equal(t, want, g.Path)
	}

	// the restored index keeps growing
	extra := randomFamily(rng, 1, 1, 40)[0]
	seqs["extra"] = extra
	_, err = restored.Insert(t.Context(), genomeFor(t, "extra", extra, rng))
	require.NoError(t, err)
	assert.Equal(t, 31, restored.Len())
	assert.NoError(t, restored.Check())
}

func TestRestore_Empty(t *testing.T) {
	ix, err := Restore(memSequences{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, NodeID(1), ix.NextID())
}

func TestRestore_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		snap *Snapshot
	}{
		{
			name: "next id mismatch",
			snap: &Snapshot{NextID: 3, Nodes: []SnapshotNode{{ID: 0, Kind: KindBucket}}},
		},
		{
			name: "duplicate id",
			snap: &Snapshot{NextID: 2, Nodes: []SnapshotNode{
				{ID: 0, Kind: KindBranch, Children: []NodeID{1}},
				{ID: 0, Kind: KindBucket},
			}},
		},
		{
			name: "unreachable node",
			snap: &Snapshot{NextID: 2, Nodes: []SnapshotNode{
				{ID: 0, Kind: KindBucket},
				{ID: 1, Kind: KindBucket},
			}},
		},
		{
			name: "child listed twice",
			snap: &Snapshot{NextID: 2, Nodes: []SnapshotNode{
				{ID: 0, Kind: KindBranch, Children: []NodeID{1, 1}},
				{ID: 1, Kind: KindBucket},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(memSequences{}, nil, tt.snap)
			assert.ErrorIs(t, err, ErrCorruptPath)
		})
	}
}

type textVisitor struct {
	b     strings.Builder
	depth int
}

func (v *textVisitor) EnterBranch(NodeID, int) error {
	v.b.WriteString(strings.Repeat(" ", v.depth) + "split\n")
	v.depth++
	return nil
}

func (v *textVisitor) LeaveBranch(NodeID) error {
	v.depth--
	return nil
}

func (v *textVisitor) Bucket(_ NodeID, items []*models.Genome) error {
	v.b.WriteString(strings.Repeat(" ", v.depth) + "floor")
	for _, g := range items {
		v.b.WriteString(" " + g.Source)
	}
	v.b.WriteString("\n")
	return nil
}

func TestWalk(t *testing.T) {
	ix := buildSplitTree(t)

	v := &textVisitor{}
	require.NoError(t, ix.Walk(v))
	assert.Equal(t, "split\n floor B\n floor C A\n", v.b.String())

	var sources []string
	for _, g := range ix.Genomes() {
		sources = append(sources, g.Source)
	}
	assert.Equal(t, []string{"B", "C", "A"}, sources)
}
