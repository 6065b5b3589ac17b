package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phylotree/internal/models"
	"phylotree/internal/tree"
)

func genome(source string, best int) *models.Genome {
	g := models.NewGenome(source, nil)
	if best >= 0 {
		g.BestDistance = best
	}
	return g
}

// splitTree is a root branch over the buckets [B] and [C A].
func splitTree(t *testing.T) *tree.Index {
	t.Helper()
	snap := &tree.Snapshot{
		NextID: 3,
		Nodes: []tree.SnapshotNode{
			{ID: 0, Kind: tree.KindBranch, Children: []tree.NodeID{1, 2}},
			{ID: 1, Kind: tree.KindBucket, Items: []*models.Genome{genome("/g/B/genome.fna", 7)}},
			{ID: 2, Kind: tree.KindBucket, Items: []*models.Genome{genome("/g/C/genome.fna", 3), genome("/g/A/genome.fna", -1)}},
		},
	}
	ix, err := tree.Restore(nil, nil, snap)
	require.NoError(t, err)
	return ix
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, splitTree(t)))

	want := "split:\n" +
		"    floor:\n" +
		"        B\n" +
		"    floor:\n" +
		"        C\n" +
		"        A\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, tree.New(nil, nil)))
	assert.Equal(t, "floor:\n", buf.String())
}

func TestWriteText_PrefersLabel(t *testing.T) {
	g := genome("/g/x/genome.fna", -1)
	g.Label = "Escherichia_coli"
	ix, err := tree.Restore(nil, nil, &tree.Snapshot{
		NextID: 1,
		Nodes:  []tree.SnapshotNode{{ID: 0, Kind: tree.KindBucket, Items: []*models.Genome{g}}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, ix))
	assert.Equal(t, "floor:\n    Escherichia_coli\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, splitTree(t)))

	var root Node
	require.NoError(t, json.Unmarshal(buf.Bytes(), &root))

	assert.Equal(t, "branch", root.Kind)
	assert.Equal(t, 3, root.Count)
	require.Len(t, root.Children, 2)

	right := root.Children[1]
	assert.Equal(t, uint32(2), right.ID)
	assert.Equal(t, "bucket", right.Kind)
	require.Len(t, right.Genomes, 2)
	assert.Equal(t, "C", right.Genomes[0].Label)
	assert.Equal(t, []uint32{0, 2, 0}, right.Genomes[0].Path)
	require.NotNil(t, right.Genomes[0].BestDistance)
	assert.Equal(t, 3, *right.Genomes[0].BestDistance)
	assert.Nil(t, right.Genomes[1].BestDistance)
}

func TestCollect(t *testing.T) {
	stats, err := Collect(splitTree(t))
	require.NoError(t, err)
	assert.Equal(t, Stats{Genomes: 3, Branches: 1, Buckets: 2, MaxDepth: 1, LargestBucket: 2}, stats)
}
