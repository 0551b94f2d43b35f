// Package slots groups the chords of a measure into time slots.
package slots

import (
	"cmp"
	"math"
	"slices"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/relation"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

// Partition cuts the sorted graph chords into maximal runs whose chords are
// all EQUAL or CLOSE to one another.
func Partition(g *relation.Graph) []*score.Slot {
	chords := g.Chords()
	var out []*score.Slot

	start := 0
	for start < len(chords) {
		end := start + 1
	grow:
		for end < len(chords) {
			c2 := chords[end]
			for _, c1 := range chords[start:end] {
				if r := g.Rel(c1.ID, c2.ID); r != relation.Equal && r != relation.Close {
					break grow
				}
			}
			end++
		}
		out = append(out, score.NewSlot(score.IDs(chords[start:end])))
		start = end
	}

	return out
}

// Compound merges narrow slots into the wide ones: each wide slot collects
// the run of narrow slots that intersect it. Compound ids start at 1.
func Compound(m *score.Measure, narrow, wide []*score.Slot) []*score.CompoundSlot {
	var out []*score.CompoundSlot
	add := func(members []*score.Slot) {
		if len(members) == 0 {
			return
		}
		out = append(out, &score.CompoundSlot{
			ID:      len(out) + 1,
			Members: members,
			XOffset: xOffset(m, members),
		})
	}

	start := 0
	for _, w := range wide {
		cut := -1
		for i := start; i < len(narrow); i++ {
			if !narrow[i].Intersects(w.Chords) && i > start {
				cut = i
				break
			}
		}
		if cut < 0 {
			add(narrow[start:])
			start = len(narrow)
			continue
		}
		add(narrow[start:cut])
		start = cut
	}
	add(narrow[start:])

	return out
}

// xOffset is the mean chord centre relative to the measure start.
func xOffset(m *score.Measure, members []*score.Slot) float64 {
	var sum float64
	n := 0
	for _, s := range members {
		for _, c := range m.ChordsOf(s.Chords) {
			sum += c.CenterX()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum/float64(n) - m.Left
}

// Retriever builds both relation graphs of a measure and keeps the narrow
// one for the sibling queries made while mapping voices.
type Retriever struct {
	m      *score.Measure
	narrow *relation.Graph
	wide   *relation.Graph

	NarrowSlots []*score.Slot
	WideSlots   []*score.Slot
}

func NewRetriever(m *score.Measure, tol score.Tolerances) *Retriever {
	return &Retriever{
		m:      m,
		narrow: relation.Build(m, tol, false),
		wide:   relation.Build(m, tol, true),
	}
}

// Retrieve partitions the measure and installs the compound slots on it.
func (r *Retriever) Retrieve() []*score.CompoundSlot {
	r.NarrowSlots = Partition(r.narrow)
	r.WideSlots = Partition(r.wide)

	compounds := Compound(r.m, r.NarrowSlots, r.WideSlots)
	r.m.AssignSlots(compounds)
	return compounds
}

// Rel reads the narrow relation graph.
func (r *Retriever) Rel(from, to int) relation.Rel {
	return r.narrow.Rel(from, to)
}

func (r *Retriever) NarrowGraph() *relation.Graph { return r.narrow }

func (r *Retriever) WideGraph() *relation.Graph { return r.wide }

// OrderedSiblings returns the other chords of the slot, most likely to share
// the rookie time first: EQUAL chords, then by abscissa distance.
func (r *Retriever) OrderedSiblings(rookie *score.Chord, cs *score.CompoundSlot) []*score.Chord {
	var siblings []*score.Chord
	for _, c := range r.m.ChordsOf(cs.Chords()) {
		if c != rookie {
			siblings = append(siblings, c)
		}
	}

	x := rookie.CenterX()
	slices.SortStableFunc(siblings, func(c1, c2 *score.Chord) int {
		e1 := r.Rel(rookie.ID, c1.ID) == relation.Equal
		e2 := r.Rel(rookie.ID, c2.ID) == relation.Equal
		switch {
		case e1 && e2:
			return 0
		case e1:
			return -1
		case e2:
			return 1
		}
		return cmp.Compare(math.Abs(c1.CenterX()-x), math.Abs(c2.CenterX()-x))
	})
	return siblings
}
