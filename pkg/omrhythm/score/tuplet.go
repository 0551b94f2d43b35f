package score

import (
	"fmt"

	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// Shape of a tuplet sign.
type Shape int

const (
	TupletThree Shape = iota
	TupletSix
)

func (s Shape) String() string {
	if s == TupletSix {
		return "TUPLET_SIX"
	}
	return "TUPLET_THREE"
}

// ParseShape accepts "three", "six" or the String form.
func ParseShape(s string) (Shape, error) {
	switch s {
	case "three", "3", "TUPLET_THREE":
		return TupletThree, nil
	case "six", "6", "TUPLET_SIX":
		return TupletSix, nil
	default:
		return TupletThree, fmt.Errorf("unknown tuplet shape %q", s)
	}
}

// Factor is 2/3 for both shapes: 3 in the time of 2, 6 in the time of 4.
func (s Shape) Factor() rational.Rational {
	return rational.TwoThirds
}

// Tuplet is a tuplet sign linked to its chords, either read from the page or
// inferred from durations.
type Tuplet struct {
	ID       int
	Shape    Shape
	Chords   []int
	Bounds   Rect
	Above    bool
	Implicit bool
}

func (t *Tuplet) String() string {
	kind := "explicit"
	if t.Implicit {
		kind = "implicit"
	}
	return fmt.Sprintf("Tuplet#%d{%s %s %v}", t.ID, kind, t.Shape, t.Chords)
}
