package score

import (
	"fmt"
	"slices"

	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// Slot is a narrow group of chords believed to start together.
type Slot struct {
	Chords []int
	time   *rational.Rational
}

func NewSlot(chords []int) *Slot {
	return &Slot{Chords: chords}
}

func (s *Slot) Time() *rational.Rational {
	return s.time
}

// SetTime assigns the slot time once. A different value is refused and the
// current one kept; an identical value is accepted.
func (s *Slot) SetTime(t rational.Rational) bool {
	if s.time != nil {
		return *s.time == t
	}
	s.time = t.Ptr()
	return true
}

// Rectify overwrites the time after a tuplet shrink moved the slot chords.
func (s *Slot) Rectify(t rational.Rational) {
	s.time = t.Ptr()
}

func (s *Slot) Contains(chordID int) bool {
	return slices.Contains(s.Chords, chordID)
}

// Intersects reports whether the slot shares at least one chord with ids.
func (s *Slot) Intersects(ids []int) bool {
	for _, id := range ids {
		if s.Contains(id) {
			return true
		}
	}
	return false
}

func (s *Slot) String() string {
	return fmt.Sprintf("{%v @%s}", s.Chords, rational.String(s.time))
}

// CompoundSlot is one wide slot made of consecutive narrow members.
// Suspicious flags a slot whose times or voices had to be forced.
type CompoundSlot struct {
	ID         int
	Members    []*Slot
	XOffset    float64
	Suspicious bool
}

// Chords returns the member chords in member order.
func (cs *CompoundSlot) Chords() []int {
	var ids []int
	for _, m := range cs.Members {
		ids = append(ids, m.Chords...)
	}
	return ids
}

func (cs *CompoundSlot) Contains(chordID int) bool {
	return cs.NarrowOf(chordID) != nil
}

// NarrowOf returns the member holding the chord, or nil.
func (cs *CompoundSlot) NarrowOf(chordID int) *Slot {
	for _, m := range cs.Members {
		if m.Contains(chordID) {
			return m
		}
	}
	return nil
}

// Time is the lowest known member time.
func (cs *CompoundSlot) Time() *rational.Rational {
	var best *rational.Rational
	for _, m := range cs.Members {
		if t := m.Time(); t != nil && (best == nil || t.Less(*best)) {
			best = t
		}
	}
	return best
}

// AddChord appends a chord to the last member.
func (cs *CompoundSlot) AddChord(chordID int) {
	if len(cs.Members) == 0 {
		cs.Members = append(cs.Members, NewSlot(nil))
	}
	last := cs.Members[len(cs.Members)-1]
	last.Chords = append(last.Chords, chordID)
}

func (cs *CompoundSlot) String() string {
	if cs.Suspicious {
		return fmt.Sprintf("Slot#%d%v SUSPICIOUS", cs.ID, cs.Members)
	}
	return fmt.Sprintf("Slot#%d%v", cs.ID, cs.Members)
}
