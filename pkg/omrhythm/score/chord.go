package score

import (
	"fmt"

	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// Kind tags the chord variant.
type Kind int

const (
	// HeadChord groups note heads sharing a stem (or a single stemless head).
	HeadChord Kind = iota
	// RestChord is a single rest with a definite value.
	RestChord
	// MeasureRest is a whole or multi-measure rest that fills the measure.
	MeasureRest
)

func (k Kind) String() string {
	switch k {
	case HeadChord:
		return "head"
	case RestChord:
		return "rest"
	case MeasureRest:
		return "measure-rest"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "head", "":
		return HeadChord, nil
	case "rest":
		return RestChord, nil
	case "measure-rest", "whole-rest":
		return MeasureRest, nil
	default:
		return HeadChord, fmt.Errorf("unknown chord kind %q", s)
	}
}

// StemDir is -1 for up, +1 for down, 0 when there is no stem.
type StemDir int

const (
	StemUp   StemDir = -1
	StemNone StemDir = 0
	StemDown StemDir = 1
)

// Chord is a recognized note or rest group of one measure. Only the rhythm
// fields at the bottom are written by the rhythm engine.
type Chord struct {
	ID       int
	Kind     Kind
	Staff    int // top staff
	Part     int
	Box      Rect
	HeadX    float64 // abscissa of the leading head (rest centre for rests)
	HeadY    float64 // ordinate of the leading head
	Stem     StemDir
	StemID   int   // 0 when stemless
	RootStem int   // id shared by fragments of one aligned stem
	Heads    []int // head ids, shared by mirrored chords
	Beam     int   // beam group id, 0 when not beamed
	CueBeam  bool
	Pitch    int // leading note, staff steps from the middle line, positive downward
	Value    rational.Rational
	Dots     int
	TieTo    int   // chord id of the tied successor in this measure
	Keys     []int // MIDI keys, optional

	Voice        int
	Slot         int // compound slot id
	Time         *rational.Rational
	Tuplet       int
	TupletFactor rational.Rational // zero when no tuplet applies
}

func (c *Chord) IsRest() bool {
	return c.Kind == RestChord || c.Kind == MeasureRest
}

func (c *Chord) IsMeasureRest() bool {
	return c.Kind == MeasureRest
}

func (c *Chord) HasTuplet() bool {
	return c.Tuplet != 0
}

// CenterX is the abscissa used to order chords.
func (c *Chord) CenterX() float64 {
	return c.Box.CenterX()
}

func (c *Chord) CenterY() float64 {
	return c.Box.CenterY()
}

// DurationSansTuplet applies dots to the nominal value.
func (c *Chord) DurationSansTuplet() rational.Rational {
	d := c.Value
	if c.Dots > 0 {
		// n dots multiply by (2^(n+1) - 1) / 2^n
		pow := int64(1) << uint(c.Dots)
		d = d.Times(rational.New(2*pow-1, pow))
	}
	return d
}

func (c *Chord) Duration() rational.Rational {
	d := c.DurationSansTuplet()
	if !c.TupletFactor.IsZero() {
		d = d.Times(c.TupletFactor)
	}
	return d
}

// End returns time + duration, nil when the time is unknown or the chord
// fills the whole measure.
func (c *Chord) End() *rational.Rational {
	if c.Time == nil || c.IsMeasureRest() {
		return nil
	}
	return c.Time.Plus(c.Duration()).Ptr()
}

func (c *Chord) resetTiming() {
	c.Voice = 0
	c.Slot = 0
	c.Time = nil
}

func (c *Chord) String() string {
	return fmt.Sprintf("Ch#%d", c.ID)
}

// IDs lists chord ids, mostly for logs.
func IDs(chords []*Chord) []int {
	ids := make([]int, len(chords))
	for i, c := range chords {
		ids[i] = c.ID
	}
	return ids
}
