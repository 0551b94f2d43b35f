// Package tuplet infers tuplet signs that the engraver left implicit.
package tuplet

import (
	"slices"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// Inferencer creates implicit tuplets on the chords of one measure.
type Inferencer struct {
	m *score.Measure
}

func New(m *score.Measure) *Inferencer {
	return &Inferencer{m: m}
}

// Extend closes the group over beam groups, in abscissa order.
func (in *Inferencer) Extend(group []*score.Chord) []*score.Chord {
	var ext []*score.Chord
	for _, c := range group {
		mates := []*score.Chord{c}
		if c.Beam != 0 && !c.CueBeam {
			mates = in.m.BeamChords(c.Beam)
		}
		for _, mate := range mates {
			if !slices.Contains(ext, mate) {
				ext = append(ext, mate)
			}
		}
	}
	slices.SortStableFunc(ext, func(a, b *score.Chord) int {
		switch {
		case a.CenterX() < b.CenterX():
			return -1
		case a.CenterX() > b.CenterX():
			return 1
		}
		return 0
	})
	return ext
}

// Split cuts the extended group at every beam-group change. Unbeamed chords
// stay with the segment they follow.
func Split(ext []*score.Chord) [][]*score.Chord {
	var out [][]*score.Chord
	var cur []*score.Chord
	beam := 0
	for _, c := range ext {
		if c.Beam != 0 && beam != 0 && c.Beam != beam {
			out = append(out, cur)
			cur = nil
		}
		if c.Beam != 0 {
			beam = c.Beam
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// ShapeOf picks TUPLET_SIX when the raw duration holds a multiple of six
// smallest units, TUPLET_THREE otherwise.
func ShapeOf(chords []*score.Chord) score.Shape {
	if len(chords) == 0 {
		return score.TupletThree
	}
	unit := chords[0].DurationSansTuplet()
	raw := rational.Zero
	for _, c := range chords {
		d := c.DurationSansTuplet()
		unit = rational.Min(unit, d)
		raw = raw.Plus(d)
	}
	if unit.IsZero() {
		return score.TupletThree
	}
	n := raw.Divides(unit)
	if n.Den() == 1 && n.Num() >= 6 && n.Num()%6 == 0 {
		return score.TupletSix
	}
	return score.TupletThree
}

// Bounds places the sign one interline away from the chords, above when most
// stems point up.
func Bounds(chords []*score.Chord, scale score.Scale) (score.Rect, bool) {
	var box score.Rect
	ups, downs := 0, 0
	for _, c := range chords {
		box = box.Union(c.Box)
		switch c.Stem {
		case score.StemUp:
			ups++
		case score.StemDown:
			downs++
		}
	}

	il := scale.Pixels(1)
	above := ups >= downs
	if above {
		return score.Rect{X: box.X, Y: box.Y - 1.5*il, W: box.W, H: il}, true
	}
	return score.Rect{X: box.X, Y: box.Bottom() + 0.5*il, W: box.W, H: il}, false
}

// Generate creates implicit tuplets over the group closed on its beam
// groups, one per beam group. Chords already in a tuplet are left alone.
func (in *Inferencer) Generate(group []*score.Chord) (ext []*score.Chord, created []*score.Tuplet) {
	ext = in.Extend(group)

	for _, segment := range Split(ext) {
		var free []*score.Chord
		for _, c := range segment {
			if !c.HasTuplet() {
				free = append(free, c)
			}
		}
		if len(free) == 0 {
			continue
		}

		bounds, above := Bounds(free, in.m.Scale)
		t := &score.Tuplet{
			Shape:    ShapeOf(free),
			Chords:   score.IDs(free),
			Bounds:   bounds,
			Above:    above,
			Implicit: true,
		}
		in.m.AddTuplet(t)
		created = append(created, t)
	}

	return ext, created
}

// FindImplicit looks for voices lasting exactly 3/2 of the room left in the
// measure and shrinks them with implicit tuplets, one per beat-long group
// when the voice splits evenly, else one over the whole voice.
func (in *Inferencer) FindImplicit() []*score.Tuplet {
	if in.m.Expected == nil {
		return nil
	}
	expected := *in.m.Expected

	beat := in.m.BeatUnit
	if beat.IsZero() {
		beat = rational.Quarter
	}
	groupDur := beat.Times(rational.ThreeHalves)

	var created []*score.Tuplet
	for _, v := range in.m.Voices {
		if v.IsMeasureRest() || len(v.Tuplets(in.m)) > 0 {
			continue
		}
		chords := in.m.ChordsOf(v.Chords)
		if len(chords) == 0 || chords[0].Time == nil {
			continue
		}
		start := *chords[0].Time
		end := v.End(in.m)
		room := expected.Minus(start)
		if end == nil || room.Sign() <= 0 {
			continue
		}
		if end.Minus(start).Divides(room) != rational.ThreeHalves {
			continue
		}

		for _, group := range splitByDuration(chords, groupDur) {
			_, ts := in.Generate(group)
			created = append(created, ts...)
		}
	}

	return created
}

// splitByDuration cuts chords into consecutive groups of exactly dur raw
// duration, or returns them as a single group when that is not possible.
func splitByDuration(chords []*score.Chord, dur rational.Rational) [][]*score.Chord {
	var groups [][]*score.Chord
	var cur []*score.Chord
	sum := rational.Zero

	for _, c := range chords {
		cur = append(cur, c)
		sum = sum.Plus(c.DurationSansTuplet())
		switch sum.Cmp(dur) {
		case 0:
			groups = append(groups, cur)
			cur, sum = nil, rational.Zero
		case 1:
			return [][]*score.Chord{chords}
		}
	}
	if len(cur) > 0 {
		return [][]*score.Chord{chords}
	}
	return groups
}
