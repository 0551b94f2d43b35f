package relation

import (
	"math"
	"slices"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

// params are the tolerances converted to pixels for one measure.
type params struct {
	maxSlotDx          float64
	maxSlotDxLow       float64
	maxAdjacencyXGap   float64
	maxVerticalOverlap float64
}

func newParams(scale score.Scale, tol score.Tolerances, wide bool) params {
	p := params{
		maxSlotDx:          scale.Pixels(tol.MaxSlotDxLow),
		maxSlotDxLow:       scale.Pixels(tol.MaxSlotDxLow),
		maxAdjacencyXGap:   scale.Pixels(tol.MaxAdjacencyXGap),
		maxVerticalOverlap: scale.Pixels(tol.MaxVerticalOverlap),
	}
	if wide {
		p.maxSlotDx = scale.Pixels(tol.MaxSlotDxHigh)
	}
	return p
}

type builder struct {
	m      *score.Measure
	g      *Graph
	p      params
	chords []*score.Chord // standard chords by abscissa
}

// Build labels every pair of standard chords of the measure. The wide flag
// selects the loose offset threshold used for wide slots. The returned graph
// has its chords sorted by relation.
func Build(m *score.Measure, tol score.Tolerances, wide bool) *Graph {
	chords := m.StandardChords()
	b := &builder{
		m:      m,
		g:      NewGraph(chords),
		p:      newParams(m.Scale, tol, wide),
		chords: chords,
	}

	b.inspectSeparations()
	b.inspectTimeJoins(false)
	b.inspectBeams()
	b.inspectMirrors()
	b.inspectRootStems()
	b.inspectTimeJoins(true)
	b.inspectLocations()
	b.inspectDistant()

	b.g.Sorted()
	return b.g
}

// inspectSeparations orders chords that must not share a slot.
func (b *builder) inspectSeparations() {
	for _, l := range b.m.LinksOf(score.SeparateTime) {
		c1, c2 := b.m.Chord(l.From), b.m.Chord(l.To)
		if c1 == nil || c2 == nil || c1.IsMeasureRest() || c2.IsMeasureRest() {
			continue
		}
		b.g.order(c1, c2)
	}
}

// inspectTimeJoins makes explicitly joined chords EQUAL. The second run
// extends EQUAL to unlabelled chords lying between them.
func (b *builder) inspectTimeJoins(extend bool) {
	for _, l := range b.m.LinksOf(score.SameTime) {
		c1, c2 := b.m.Chord(l.From), b.m.Chord(l.To)
		if c1 == nil || c2 == nil {
			continue
		}
		if !extend {
			b.g.setIfNone(c1.ID, c2.ID, Equal)
			continue
		}

		j1, j2 := slices.Index(b.chords, c1), slices.Index(b.chords, c2)
		if j1 < 0 || j2 < 0 {
			continue
		}
		lo, hi := min(j1, j2), max(j1, j2)
		for i := lo; i < hi; i++ {
			for _, other := range b.chords[i+1 : hi+1] {
				b.g.setIfNone(b.chords[i].ID, other.ID, Equal)
			}
		}
	}
}

// inspectBeams orders the chords of each beam group, cue beams excluded.
// Pairs already joined or separated by an explicit link keep their label.
func (b *builder) inspectBeams() {
	seen := make(map[int]bool)
	for _, c := range b.chords {
		if c.Beam == 0 || c.CueBeam || seen[c.Beam] {
			continue
		}
		seen[c.Beam] = true

		group := b.m.BeamChords(c.Beam)
		for i, c1 := range group {
			for _, c2 := range group[i+1:] {
				if !c2.IsMeasureRest() {
					b.g.setIfNone(c1.ID, c2.ID, Before)
				}
			}
		}
	}
}

func (b *builder) headChords() []*score.Chord {
	var out []*score.Chord
	for _, c := range b.chords {
		if c.Kind == score.HeadChord {
			out = append(out, c)
		}
	}
	return out
}

func haveCommonHead(c1, c2 *score.Chord) bool {
	for _, h := range c1.Heads {
		if slices.Contains(c2.Heads, h) {
			return true
		}
	}
	return false
}

// inspectMirrors makes chords sharing a head EQUAL.
func (b *builder) inspectMirrors() {
	heads := b.headChords()
	for i, c1 := range heads {
		for _, c2 := range heads[i+1:] {
			if b.g.Rel(c1.ID, c2.ID) != None || !haveCommonHead(c1, c2) {
				continue
			}
			b.propagate(c1, c2)
			b.g.Set(c1.ID, c2.ID, Equal)
		}
	}
}

// inspectRootStems makes chords whose stems are pieces of one stem EQUAL.
func (b *builder) inspectRootStems() {
	heads := b.headChords()
	for i, c1 := range heads {
		if c1.RootStem == 0 || c1.StemID == 0 {
			continue
		}
		for _, c2 := range heads[i+1:] {
			if c2.RootStem != c1.RootStem || c2.StemID == 0 || c2.StemID == c1.StemID {
				continue
			}
			b.propagate(c1, c2)
			b.g.Set(c1.ID, c2.ID, Equal)
		}
	}
}

// propagate copies the known relations of each chord of the pair onto the
// other one, where the other has none yet.
func (b *builder) propagate(one, two *score.Chord) {
	for _, c := range b.chords {
		if c == one || c == two {
			continue
		}
		for _, pair := range [2][2]*score.Chord{{one, two}, {two, one}} {
			if r := b.g.Rel(c.ID, pair[0].ID); r != None && b.g.Rel(c.ID, pair[1].ID) == None {
				b.g.Set(c.ID, pair[1].ID, r)
			}
		}
	}
}

// inspectLocations labels the remaining pairs from geometry: adjacent chords
// become EQUAL, vertically overlapping ones are ordered, the others are CLOSE
// when near enough in abscissa.
func (b *builder) inspectLocations() {
	type pair struct{ one, two *score.Chord }
	var adjacencies []pair

	for i, c1 := range b.chords {
		x1 := c1.Box.X - b.m.Left
		for _, c2 := range b.chords[i+1:] {
			if b.g.Rel(c1.ID, c2.ID) != None {
				continue
			}
			x2 := c2.Box.X - b.m.Left

			if c1.Box.YOverlap(c2.Box) > b.p.maxVerticalOverlap {
				if b.areAdjacent(c1, c2) {
					adjacencies = append(adjacencies, pair{c1, c2})
				} else {
					b.g.order(c1, c2)
				}
				continue
			}

			if math.Abs(x1-x2) <= b.p.maxSlotDx && !b.explicitlySeparate(c1, c2) {
				b.g.Set(c1.ID, c2.ID, Close)
			} else {
				b.g.order(c1, c2)
			}
		}
	}

	// Adjacent chords share a slot, and so do their neighbourhoods.
	for _, adj := range adjacencies {
		b.g.setIfNone(adj.one.ID, adj.two.ID, Equal)
		n1, n2 := b.g.Closure(adj.one.ID), b.g.Closure(adj.two.ID)
		for _, a := range n1 {
			for _, c := range n2 {
				b.g.setIfNone(a, c, Close)
			}
		}
	}
}

// inspectDistant resolves any pair still unlabelled, through an EQUAL
// partner when one is related to the other chord, else by abscissa.
func (b *builder) inspectDistant() {
	for i, c1 := range b.chords {
		for _, c2 := range b.chords[i+1:] {
			if b.g.Rel(c1.ID, c2.ID) != None {
				continue
			}
			resolved := false
			for _, p := range b.g.EqualPartners(c1.ID) {
				if r := b.g.Rel(p, c2.ID); r == Before || r == After {
					b.g.Set(c1.ID, c2.ID, r)
					resolved = true
					break
				}
			}
			if !resolved {
				b.g.order(c1, c2)
			}
		}
	}
}

func (b *builder) explicitlySeparate(c1, c2 *score.Chord) bool {
	return b.m.HasLink(score.SeparateTime, c1.ID, c2.ID)
}
