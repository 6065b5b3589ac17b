// Package tree implements the incremental genome clustering index.
//
// Genomes are inserted one at a time. Each insertion samples candidates
// from the tree weighted by subtree size, narrows towards the region whose
// candidates share the most k-mers with the new genome, computes exact edit
// distances to at most a handful of genomes concurrently and then reshapes
// the tree locally:
//
//	pair     the new genome is much closer to its match than the match's own
//	         best relative: both move into a new bucket
//	sibling  the new genome is much farther: it gets its own bucket
//	bucket   otherwise it joins its match's bucket
//
// Quick start:
//
//	ix := tree.New(sequence.NewStore(), tree.DefaultConfig())
//	placement, err := ix.Insert(ctx, models.NewGenome(path, kmers))
//
// The index is single-writer: Insert calls must be serialized by the caller.
package tree
