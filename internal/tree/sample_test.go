package tree

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phylotree/internal/models"
)

func TestWeightedPick_Limited(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	items := []string{"a", "b", "c"}
	weights := []int{1, 2, 3}

	for range 100 {
		picks := WeightedPick(items, weights, 6, false, rng)
		require.Len(t, picks, 6)

		counts := map[string]int{}
		for _, p := range picks {
			counts[p]++
		}
		assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, counts)
	}
}

func TestWeightedPick_LimitedNeverExceedsWeight(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	weights := []int{5, 0, 1, 7}
	items := []int{0, 1, 2, 3}

	for range 200 {
		counts := make([]int, len(items))
		for _, p := range WeightedPick(items, weights, 4, false, rng) {
			counts[p]++
		}
		for i := range counts {
			assert.LessOrEqual(t, counts[i], weights[i])
		}
	}
}

func TestWeightedPick_Limitless(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	picks := WeightedPick([]string{"x", "y"}, []int{1, 1}, 10, true, rng)
	assert.Len(t, picks, 10)

	// an item with zero weight is never drawn
	picks = WeightedPick([]string{"x", "y"}, []int{0, 3}, 5, true, rng)
	assert.Equal(t, []string{"y", "y", "y", "y", "y"}, picks)
}

func TestWeightedPick_InvalidInput(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))

	tests := []struct {
		name            string
		items           []int
		weights         []int
		rounds          int
		withReplacement bool
	}{
		{"length mismatch", []int{1, 2}, []int{1}, 1, true},
		{"rounds above total", []int{1, 2}, []int{1, 1}, 3, false},
		{"negative weight", []int{1, 2}, []int{-1, 4}, 1, true},
		{"zero total", []int{1, 2}, []int{0, 0}, 1, true},
		{"zero rounds", []int{1}, []int{1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, WeightedPick(tt.items, tt.weights, tt.rounds, tt.withReplacement, rng))
		})
	}
}

func TestSample_DistinctSubset(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	seqs := memSequences{}
	ix := New(seqs, testConfig())

	for i, seq := range randomFamily(rng, 4, 60, 48) {
		src := string(rune('A'+i%26)) + string(rune('a'+i/26))
		seqs[src] = seq
		_, err := ix.Insert(t.Context(), genomeFor(t, src, seq, rng))
		require.NoError(t, err)
	}

	all := map[*models.Genome]bool{}
	for _, g := range ix.Genomes() {
		all[g] = true
	}
	require.Len(t, all, 60)

	for _, heads := range []int{1, 8, 20, 60, 100} {
		sample := ix.Sample(RootID, heads)
		assert.Len(t, sample, min(heads, 60))

		seen := map[*models.Genome]bool{}
		for _, g := range sample {
			assert.True(t, all[g], "sampled genome not in tree")
			assert.False(t, seen[g], "genome sampled twice")
			seen[g] = true
		}
	}
}

func TestSample_SmallSubtreeIsExhaustive(t *testing.T) {
	seqs := memSequences{"a": []byte("AAAA"), "b": []byte("AAAT"), "c": []byte("AATT")}
	ix := New(seqs, testConfig(), WithDistance(distanceTable(map[[2]string]int{
		{"AAAT", "AAAA"}: 1,
		{"AATT", "AAAA"}: 2,
		{"AATT", "AAAT"}: 1,
	})))
	insert(t, ix, "a")
	insert(t, ix, "b")
	insert(t, ix, "c")

	assert.Len(t, ix.Sample(RootID, 8), 3)
	assert.Nil(t, ix.Sample(99, 8))
}
