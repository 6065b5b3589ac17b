// Package report renders an index as text or JSON.
package report

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"phylotree/internal/models"
	"phylotree/internal/sequence"
	"phylotree/internal/tree"
)

const indent = "    "

// WriteText writes the tree as nested "split:" and "floor:" lines, four
// spaces per level, with the genome labels one level below their floor.
func WriteText(w io.Writer, ix *tree.Index) error {
	bw := bufio.NewWriter(w)
	if err := ix.Walk(&textWriter{w: bw}); err != nil {
		return err
	}
	return bw.Flush()
}

type textWriter struct {
	w     *bufio.Writer
	depth int
}

func (t *textWriter) line(depth int, s string) error {
	if _, err := t.w.WriteString(strings.Repeat(indent, depth)); err != nil {
		return err
	}
	_, err := t.w.WriteString(s + "\n")
	return err
}

func (t *textWriter) EnterBranch(tree.NodeID, int) error {
	err := t.line(t.depth, "split:")
	t.depth++
	return err
}

func (t *textWriter) LeaveBranch(tree.NodeID) error {
	t.depth--
	return nil
}

func (t *textWriter) Bucket(_ tree.NodeID, items []*models.Genome) error {
	if err := t.line(t.depth, "floor:"); err != nil {
		return err
	}
	for _, g := range items {
		if err := t.line(t.depth+1, Label(g)); err != nil {
			return err
		}
	}
	return nil
}

// Label returns the display name of a genome: its label, or the name of
// the directory holding its file.
func Label(g *models.Genome) string {
	if g.Label != "" {
		return g.Label
	}
	return sequence.Label(g.Source)
}

// Node is the JSON form of a tree node
type Node struct {
	ID       uint32    `json:"id"`
	Kind     string    `json:"kind"`
	Count    int       `json:"count"`
	Children []*Node   `json:"children,omitempty"`
	Genomes  []*Genome `json:"genomes,omitempty"`
}

// Genome is the JSON form of an indexed genome
type Genome struct {
	Label        string   `json:"label"`
	Source       string   `json:"source"`
	Path         []uint32 `json:"path"`
	Length       int      `json:"length,omitempty"`
	BestDistance *int     `json:"best_distance,omitempty"`
}

// Build converts the index into its JSON form.
func Build(ix *tree.Index) (*Node, error) {
	b := &builder{}
	if err := ix.Walk(b); err != nil {
		return nil, err
	}
	return b.root, nil
}

// WriteJSON writes the tree as indented JSON.
func WriteJSON(w io.Writer, ix *tree.Index) error {
	root, err := Build(ix)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(root)
}

type builder struct {
	root  *Node
	stack []*Node
}

func (b *builder) add(n *Node) {
	if len(b.stack) == 0 {
		b.root = n
		return
	}
	parent := b.stack[len(b.stack)-1]
	parent.Children = append(parent.Children, n)
}

func (b *builder) EnterBranch(id tree.NodeID, count int) error {
	n := &Node{ID: id, Kind: tree.KindBranch.String(), Count: count}
	b.add(n)
	b.stack = append(b.stack, n)
	return nil
}

func (b *builder) LeaveBranch(tree.NodeID) error {
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

func (b *builder) Bucket(id tree.NodeID, items []*models.Genome) error {
	n := &Node{ID: id, Kind: tree.KindBucket.String(), Count: len(items)}
	for _, g := range items {
		jg := &Genome{
			Label:  Label(g),
			Source: g.Source,
			Path:   g.Path,
			Length: g.Length,
		}
		if g.HasDistance() {
			d := g.BestDistance
			jg.BestDistance = &d
		}
		n.Genomes = append(n.Genomes, jg)
	}
	b.add(n)
	return nil
}

// Stats summarizes the shape of a tree
type Stats struct {
	Genomes       int
	Branches      int
	Buckets       int
	MaxDepth      int
	LargestBucket int
}

// Collect walks the index and returns its stats.
func Collect(ix *tree.Index) (Stats, error) {
	c := &statsCollector{}
	err := ix.Walk(c)
	return c.s, err
}

type statsCollector struct {
	s     Stats
	depth int
}

func (c *statsCollector) EnterBranch(tree.NodeID, int) error {
	c.s.Branches++
	c.depth++
	return nil
}

func (c *statsCollector) LeaveBranch(tree.NodeID) error {
	c.depth--
	return nil
}

func (c *statsCollector) Bucket(_ tree.NodeID, items []*models.Genome) error {
	c.s.Buckets++
	c.s.Genomes += len(items)
	c.s.MaxDepth = max(c.s.MaxDepth, c.depth)
	c.s.LargestBucket = max(c.s.LargestBucket, len(items))
	return nil
}
