package models

import (
	"math"
	"time"
)

// NoDistance is the best distance of a genome that has never been compared
const NoDistance = math.MaxInt

// Genome holds the identity and sampled k-mers of one indexed sequence
type Genome struct {
	Path         []uint32 `json:"path"`          // Node ids from the root, bucket slot last
	Source       string   `json:"source"`        // File the sequence is read from
	Label        string   `json:"label"`         // Display name (organism folder)
	Length       int      `json:"length"`        // Sequence length in bases
	Kmers        []string `json:"kmers"`         // Sampled k-mers for approximate scoring
	BestDistance int      `json:"best_distance"` // Smallest exact distance recorded at insertion time
}

// NewGenome creates a genome record that has not been compared yet
func NewGenome(source string, kmers []string) *Genome {
	return &Genome{
		Source:       source,
		Kmers:        kmers,
		BestDistance: NoDistance,
	}
}

// HasDistance reports whether the genome has ever been matched
func (g *Genome) HasDistance() bool {
	return g.BestDistance != NoDistance
}

// Placement describes where an insertion put a genome
type Placement int

const (
	PlacedFirst   Placement = iota // Inserted into an empty tree
	PlacedPair                     // Paired with its closest match in a new bucket
	PlacedSibling                  // Given its own bucket next to the closest match's
	PlacedBucket                   // Appended to the closest match's bucket
)

// String returns the name used in logs and run summaries
func (p Placement) String() string {
	switch p {
	case PlacedFirst:
		return "first"
	case PlacedPair:
		return "pair"
	case PlacedSibling:
		return "sibling"
	case PlacedBucket:
		return "bucket"
	default:
		return "unknown"
	}
}

// BuildRun holds the summary of one build or add invocation
type BuildRun struct {
	ID        string    `json:"id"`
	Folder    string    `json:"folder"`
	StartedAt time.Time `json:"started_at"`
	Inserted  int       `json:"inserted"`
	Failed    int       `json:"failed"`
	Pairs     int       `json:"pairs"`
	Siblings  int       `json:"siblings"`
	Buckets   int       `json:"buckets"`
	Total     int       `json:"total"` // Genomes in the tree after the run
}

// Record counts one placement in the run summary
func (r *BuildRun) Record(p Placement) {
	r.Inserted++
	switch p {
	case PlacedPair:
		r.Pairs++
	case PlacedSibling:
		r.Siblings++
	case PlacedBucket, PlacedFirst:
		r.Buckets++
	}
}
