package relation

import (
	"math"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

const maxAdjacentPitchGap = 2

// areAdjacent tells whether two vertically overlapping chords, slightly
// apart, still start together.
func (b *builder) areAdjacent(c1, c2 *score.Chord) bool {
	if c1.IsRest() || c2.IsRest() {
		return false
	}
	if b.explicitlySeparate(c1, c2) {
		return false
	}

	xGap := c1.Box.XGap(c2.Box)
	if xGap > b.p.maxAdjacencyXGap {
		return false
	}

	if c1.Stem != score.StemNone && c2.Stem != score.StemNone {
		if c1.StemID != 0 && c1.StemID == c2.StemID {
			return true
		}
		if c1.Stem == c2.Stem {
			return false
		}
		// opposite stems with overlapping boxes embrace each other
		if xGap < 0 {
			return true
		}
		// each side has its own beam group
		if c1.Beam != 0 && c2.Beam != 0 {
			return false
		}
		if score.Abs(c1.Pitch-c2.Pitch) <= maxAdjacentPitchGap {
			return !b.separatedNeighbourhoods(c1, c2)
		}
	} else if score.Abs(c1.Pitch-c2.Pitch) <= maxAdjacentPitchGap {
		return true
	}

	return math.Abs(c1.HeadX-c2.HeadX) <= b.p.maxSlotDxLow
}

// separatedNeighbourhoods reports a BEFORE or AFTER relation between any
// chord close to c1 and any chord close to c2.
func (b *builder) separatedNeighbourhoods(c1, c2 *score.Chord) bool {
	for _, a := range b.g.Closure(c1.ID) {
		for _, c := range b.g.Closure(c2.ID) {
			if r := b.g.Rel(a, c); r == Before || r == After {
				return true
			}
		}
	}
	return false
}
