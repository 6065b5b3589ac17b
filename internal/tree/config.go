package tree

import "math"

// Config holds index parameters.
type Config struct {
	SearchHeads         int     // candidates sampled per narrowing step, default 8
	ExhaustiveLimit     int     // subtrees below this count are compared exhaustively, default 9
	PairRatio           float64 // relative distance at or below which genomes are paired, default 0.85
	SiblingRatio        float64 // relative distance at or above which a sibling bucket is made, default 1.17
	MaxNodeID           uint32  // largest node id that may be allocated, default math.MaxUint32
	MaxNarrowIterations int     // narrowing steps before giving up, default 64
	Seed                uint64  // random seed for sampling; 0 picks one at random
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SearchHeads:         8,
		ExhaustiveLimit:     9,
		PairRatio:           0.85,
		SiblingRatio:        1.17,
		MaxNodeID:           math.MaxUint32,
		MaxNarrowIterations: 64,
	}
}

// OrDefault returns DefaultConfig if c is nil, otherwise normalizes c.
func (c *Config) OrDefault() *Config {
	if c == nil {
		return DefaultConfig()
	}
	if c.SearchHeads <= 0 {
		c.SearchHeads = 8
	}
	if c.ExhaustiveLimit <= 0 {
		c.ExhaustiveLimit = c.SearchHeads + 1
	}
	if c.PairRatio <= 0 {
		c.PairRatio = 0.85
	}
	if c.SiblingRatio <= 0 {
		c.SiblingRatio = 1.17
	}
	if c.MaxNodeID == 0 {
		c.MaxNodeID = math.MaxUint32
	}
	if c.MaxNarrowIterations <= 0 {
		c.MaxNarrowIterations = 64
	}
	return c
}
