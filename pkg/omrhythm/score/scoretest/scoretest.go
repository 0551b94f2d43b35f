// Package scoretest builds small measures for tests.
package scoretest

import (
	"math"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

const (
	Interline = 20.0
	// StaffGap is the vertical distance between the middle lines of two staves.
	StaffGap = 200.0
	headW    = 12.0
	headH    = 10.0
	stemLen  = 60.0
)

// Builder accumulates chords and links for one measure. Chord ids start at 1.
type Builder struct {
	m      *score.Measure
	nextID int
}

// NewMeasure starts a measure on the given staves (staff 1 when none).
func NewMeasure(staves ...int) *Builder {
	if len(staves) == 0 {
		staves = []int{1}
	}
	return &Builder{
		m: &score.Measure{
			Stack:    1,
			Part:     1,
			Staves:   staves,
			Scale:    score.Scale{Interline: Interline},
			BeatUnit: rational.Quarter,
		},
		nextID: 1,
	}
}

// Option tweaks a chord being added.
type Option func(*score.Chord)

func Up() Option   { return func(c *score.Chord) { c.Stem = score.StemUp } }
func Down() Option { return func(c *score.Chord) { c.Stem = score.StemDown } }

func Beam(id int) Option { return func(c *score.Chord) { c.Beam = id } }

func Dots(n int) Option { return func(c *score.Chord) { c.Dots = n } }

func StemID(id int) Option { return func(c *score.Chord) { c.StemID = id } }

func RootStem(id int) Option { return func(c *score.Chord) { c.RootStem = id } }

func Heads(ids ...int) Option { return func(c *score.Chord) { c.Heads = ids } }

func Keys(keys ...int) Option { return func(c *score.Chord) { c.Keys = keys } }

func Pitch(p int) Option { return func(c *score.Chord) { c.Pitch = p } }

func Part(p int) Option { return func(c *score.Chord) { c.Part = p } }

// Staff moves the chord to another staff, shifting its ordinate accordingly.
func Staff(s int) Option {
	return func(c *score.Chord) { c.Staff = s }
}

// Head adds a note chord whose leading head sits at (x, y) relative to the
// middle line of its staff.
func (b *Builder) Head(x, y float64, value string, opts ...Option) *score.Chord {
	return b.add(score.HeadChord, x, y, value, opts)
}

// Rest adds a rest chord centred at (x, y).
func (b *Builder) Rest(x, y float64, value string, opts ...Option) *score.Chord {
	return b.add(score.RestChord, x, y, value, opts)
}

// MeasureRest adds a measure-long rest.
func (b *Builder) MeasureRest(x, y float64, opts ...Option) *score.Chord {
	return b.add(score.MeasureRest, x, y, "1", opts)
}

func (b *Builder) add(kind score.Kind, x, y float64, value string, opts []Option) *score.Chord {
	c := &score.Chord{
		ID:    b.nextID,
		Kind:  kind,
		Staff: b.m.Staves[0],
		Part:  b.m.Part,
		Value: rational.MustParse(value),
	}
	b.nextID++
	for _, opt := range opts {
		opt(c)
	}

	idx := 0
	for i, s := range b.m.Staves {
		if s == c.Staff {
			idx = i
		}
	}
	absY := y + StaffGap*float64(idx+1)
	c.HeadX, c.HeadY = x, absY
	c.Box = score.Rect{X: x - headW/2, Y: absY - headH/2, W: headW, H: headH}
	switch c.Stem {
	case score.StemUp:
		c.Box.Y -= stemLen
		c.Box.H += stemLen
	case score.StemDown:
		c.Box.H += stemLen
	}
	if c.Stem != score.StemNone && c.StemID == 0 {
		c.StemID = 1000 + c.ID
	}
	if kind == score.HeadChord && c.Pitch == 0 {
		c.Pitch = int(math.Round(y / (Interline / 2)))
	}
	if kind == score.HeadChord && len(c.Heads) == 0 {
		c.Heads = []int{2000 + c.ID}
	}

	b.m.Chords = append(b.m.Chords, c)
	return c
}

// Tie marks to as the tied successor of from.
func (b *Builder) Tie(from, to *score.Chord) *Builder {
	from.TieTo = to.ID
	return b
}

func (b *Builder) Link(from, to *score.Chord, kind score.LinkKind) *Builder {
	b.m.Links = append(b.m.Links, score.Link{From: from.ID, To: to.ID, Kind: kind})
	return b
}

// Expect sets the expected measure duration, "3/4" for instance.
func (b *Builder) Expect(d string) *Builder {
	b.m.Expected = rational.MustParse(d).Ptr()
	return b
}

func (b *Builder) Merged() *Builder {
	b.m.MergedStaves = true
	return b
}

func (b *Builder) Build() *score.Measure {
	return b.m
}
