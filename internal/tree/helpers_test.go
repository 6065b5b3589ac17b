package tree

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"phylotree/internal/models"
	"phylotree/internal/sequence"
)

// memSequences serves sequence content from memory.
type memSequences map[string][]byte

func (m memSequences) Content(_ context.Context, source string) ([]byte, error) {
	seq, ok := m[source]
	if !ok {
		return nil, fmt.Errorf("no such sequence: %s", source)
	}
	return seq, nil
}

// distanceTable returns a DistanceFunc that looks distances up by the
// content of both sequences, in either order.
func distanceTable(pairs map[[2]string]int) DistanceFunc {
	return func(a, b []byte) int {
		if d, ok := pairs[[2]string{string(a), string(b)}]; ok {
			return d
		}
		if d, ok := pairs[[2]string{string(b), string(a)}]; ok {
			return d
		}
		panic(fmt.Sprintf("no distance for %s/%s", a, b))
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	return cfg
}

func insert(t *testing.T, ix *Index, source string) (*models.Genome, models.Placement) {
	t.Helper()
	g := models.NewGenome(source, nil)
	p, err := ix.Insert(context.Background(), g)
	require.NoError(t, err)
	require.NoError(t, ix.Check())
	return g, p
}

// randomFamily returns n sequences mutated from a few random ancestors.
func randomFamily(rng *rand.Rand, families, n, length int) [][]byte {
	const bases = "ACGT"
	ancestors := make([][]byte, families)
	for i := range ancestors {
		seq := make([]byte, length)
		for j := range seq {
			seq[j] = bases[rng.IntN(4)]
		}
		ancestors[i] = seq
	}
	out := make([][]byte, n)
	for i := range out {
		seq := append([]byte(nil), ancestors[rng.IntN(families)]...)
		for range rng.IntN(length / 8) {
			seq[rng.IntN(length)] = bases[rng.IntN(4)]
		}
		out[i] = seq
	}
	return out
}

func genomeFor(t *testing.T, source string, seq []byte, rng *rand.Rand) *models.Genome {
	t.Helper()
	kmers, err := sequence.LoadKmers(seq, 6, 12, rng)
	require.NoError(t, err)
	return models.NewGenome(source, kmers)
}
