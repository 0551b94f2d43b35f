// Package relation records the pairwise ordering of the chords of a measure.
package relation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

// Rel is the relation from one chord to another.
type Rel int

const (
	None Rel = iota
	Before
	After
	Equal
	Close
)

// Inverse is the tag of the reverse edge.
func (r Rel) Inverse() Rel {
	switch r {
	case Before:
		return After
	case After:
		return Before
	default:
		return r
	}
}

// String uses the mnemonics of the debug matrix.
func (r Rel) String() string {
	switch r {
	case Before:
		return "<"
	case After:
		return ">"
	case Equal:
		return "="
	case Close:
		return "~"
	default:
		return "."
	}
}

// Name is the long form, used in logs and reports.
func (r Rel) Name() string {
	switch r {
	case Before:
		return "BEFORE"
	case After:
		return "AFTER"
	case Equal:
		return "EQUAL"
	case Close:
		return "CLOSE"
	default:
		return "NONE"
	}
}

type edge struct {
	from, to int
}

// Graph holds at most one tag per ordered chord pair. Every Set writes the
// inverse edge too, so the graph is always symmetric.
type Graph struct {
	chords []*score.Chord
	rels   map[edge]Rel
}

// NewGraph creates an empty graph over the chords, kept in the given order.
func NewGraph(chords []*score.Chord) *Graph {
	return &Graph{
		chords: slices.Clone(chords),
		rels:   make(map[edge]Rel),
	}
}

// Chords returns the graph vertices in their current order.
func (g *Graph) Chords() []*score.Chord {
	return g.chords
}

func (g *Graph) Rel(from, to int) Rel {
	return g.rels[edge{from, to}]
}

// Set records rel from -> to and its inverse to -> from. Self edges are ignored.
func (g *Graph) Set(from, to int, rel Rel) {
	if from == to || rel == None {
		return
	}
	g.rels[edge{from, to}] = rel
	g.rels[edge{to, from}] = rel.Inverse()
}

// setIfNone labels the pair only when it has no relation yet.
func (g *Graph) setIfNone(from, to int, rel Rel) bool {
	if from == to || g.Rel(from, to) != None {
		return false
	}
	g.Set(from, to, rel)
	return true
}

// order sets BEFORE/AFTER from the relative abscissa of the two chords.
func (g *Graph) order(a, b *score.Chord) {
	if a.Box.X < b.Box.X || (a.Box.X == b.Box.X && a.ID < b.ID) {
		g.Set(a.ID, b.ID, Before)
	} else {
		g.Set(a.ID, b.ID, After)
	}
}

// EqualPartners returns the chords EQUAL to id, in graph order.
func (g *Graph) EqualPartners(id int) []int {
	var out []int
	for _, c := range g.chords {
		if g.Rel(id, c.ID) == Equal {
			out = append(out, c.ID)
		}
	}
	return out
}

// Closure is the chord itself plus every chord EQUAL or CLOSE to it.
func (g *Graph) Closure(id int) []int {
	out := []int{id}
	for _, c := range g.chords {
		if r := g.Rel(id, c.ID); r == Equal || r == Close {
			out = append(out, c.ID)
		}
	}
	return out
}

// Compare orders two chords by relation, then by known time offsets.
func (g *Graph) Compare(a, b *score.Chord) int {
	if a == b {
		return 0
	}
	switch g.Rel(a.ID, b.ID) {
	case Before:
		return -1
	case After:
		return 1
	case None:
		return 0
	}
	if a.Time != nil && b.Time != nil {
		return a.Time.Cmp(*b.Time)
	}
	return 0
}

// Sorted sorts the vertices by relation, keeping abscissa order for ties.
func (g *Graph) Sorted() []*score.Chord {
	slices.SortStableFunc(g.chords, g.Compare)
	return g.chords
}

// Pairs returns every labelled ordered pair, for checks and dumps.
func (g *Graph) Pairs() map[[2]int]Rel {
	out := make(map[[2]int]Rel, len(g.rels))
	for e, r := range g.rels {
		out[[2]int{e.from, e.to}] = r
	}
	return out
}

// Dump renders the relation matrix, one row per chord.
func (g *Graph) Dump() string {
	var sb strings.Builder
	sb.WriteString("      ")
	for _, c := range g.chords {
		fmt.Fprintf(&sb, "%5d", c.ID)
	}
	for _, a := range g.chords {
		fmt.Fprintf(&sb, "\n%5d ", a.ID)
		for _, b := range g.chords {
			fmt.Fprintf(&sb, "%5s", g.Rel(a.ID, b.ID))
		}
	}
	return sb.String()
}
