package report

import (
	"slices"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

// Diatonic index (7 per octave, C0 = 0) of each clef's middle line.
const (
	trebleMiddle = 4*7 + 6 // B4
	bassMiddle   = 3*7 + 1 // D3
)

var semitones = [7]int{0, 2, 4, 5, 7, 9, 11}

// KeysOf returns the MIDI keys of a chord. Recognized keys win; otherwise the
// leading head pitch is read in treble clef on the first staff of the part
// and bass clef below. Rests have none.
func KeysOf(m *score.Measure, c *score.Chord) []int {
	if c.IsRest() {
		return nil
	}
	if len(c.Keys) > 0 {
		return append([]int(nil), c.Keys...)
	}
	middle := trebleMiddle
	if i := slices.Index(m.Staves, c.Staff); i > 0 {
		middle = bassMiddle
	}
	return []int{DiatonicKey(middle - c.Pitch)}
}

// DiatonicKey converts a diatonic index to a MIDI key, C4 being 60.
func DiatonicKey(step int) int {
	octave, degree := step/7, step%7
	if degree < 0 {
		octave--
		degree += 7
	}
	return 12*(octave+1) + semitones[degree]
}
