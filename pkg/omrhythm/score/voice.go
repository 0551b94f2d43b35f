package score

import (
	"fmt"
	"slices"
	"strings"

	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// Family groups voices by vertical role; each family owns a block of ids.
type Family int

const (
	High Family = iota
	Low
	Infra
)

// IDFamilyOffset is the size of each family's id block.
const IDFamilyOffset = 4

func (f Family) Offset() int {
	return int(f) * IDFamilyOffset
}

func (f Family) String() string {
	switch f {
	case High:
		return "HIGH"
	case Low:
		return "LOW"
	case Infra:
		return "INFRA"
	default:
		return "UNKNOWN"
	}
}

// Status of a voice within a slot.
type Status int

const (
	Begin Status = iota
	Continue
)

func (s Status) String() string {
	if s == Continue {
		return "CONTINUE"
	}
	return "BEGIN"
}

// SlotVoice is one entry of the voice timeline.
type SlotVoice struct {
	Chord  int
	Status Status
}

// Voice is one melodic line of a measure: either a single measure-long rest
// or an ordered chord list with its slot timeline.
type Voice struct {
	ID          int
	Family      Family
	StartStaff  int
	Chords      []int
	MeasureRest int // chord id of the measure-long rest, 0 otherwise

	Termination *rational.Rational
	Excess      *rational.Rational

	slots map[int]SlotVoice
}

func (v *Voice) IsMeasureRest() bool {
	return v.MeasureRest != 0
}

func (v *Voice) HasChord(id int) bool {
	return slices.Contains(v.Chords, id) || v.MeasureRest == id
}

// LastChord is the latest chord, the rest itself for measure-rest voices.
func (v *Voice) LastChord(m *Measure) *Chord {
	if v.IsMeasureRest() {
		return m.Chord(v.MeasureRest)
	}
	if len(v.Chords) == 0 {
		return nil
	}
	return m.Chord(v.Chords[len(v.Chords)-1])
}

func (v *Voice) FirstChord(m *Measure) *Chord {
	if v.IsMeasureRest() {
		return m.Chord(v.MeasureRest)
	}
	if len(v.Chords) == 0 {
		return nil
	}
	return m.Chord(v.Chords[0])
}

// ChordAfter returns the chord following id in this voice, or nil.
func (v *Voice) ChordAfter(m *Measure, id int) *Chord {
	i := slices.Index(v.Chords, id)
	if i < 0 || i+1 >= len(v.Chords) {
		return nil
	}
	return m.Chord(v.Chords[i+1])
}

func (v *Voice) LastChordWithTuplet(m *Measure) *Chord {
	for i := len(v.Chords) - 1; i >= 0; i-- {
		if c := m.Chord(v.Chords[i]); c.HasTuplet() {
			return c
		}
	}
	return nil
}

// Tuplets lists the distinct tuplets of the voice chords, in chord order.
func (v *Voice) Tuplets(m *Measure) []*Tuplet {
	var out []*Tuplet
	for _, id := range v.Chords {
		c := m.Chord(id)
		if !c.HasTuplet() {
			continue
		}
		t := m.Tuplet(c.Tuplet)
		if t != nil && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func (v *Voice) HasImplicitTuplet(m *Measure) bool {
	for _, t := range v.Tuplets(m) {
		if t.Implicit {
			return true
		}
	}
	return false
}

// IsFree reports whether the voice has no chord sounding in the slot. It is
// false before the timeline is built and for measure-rest voices.
func (v *Voice) IsFree(slotID int) bool {
	if v.IsMeasureRest() || v.slots == nil {
		return false
	}
	_, ok := v.slots[slotID]
	return !ok
}

// SlotInfo returns the timeline entry for a slot.
func (v *Voice) SlotInfo(slotID int) (SlotVoice, bool) {
	sv, ok := v.slots[slotID]
	return sv, ok
}

// SlotIDs lists the timeline slots in ascending order.
func (v *Voice) SlotIDs() []int {
	ids := make([]int, 0, len(v.slots))
	for id := range v.slots {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ChordBefore returns the latest BEGIN chord located in a slot before slotID.
func (v *Voice) ChordBefore(m *Measure, slotID int) *Chord {
	var best *Chord
	bestSlot := 0
	for _, id := range v.Chords {
		c := m.Chord(id)
		if c.Slot > 0 && c.Slot < slotID && c.Slot > bestSlot {
			best, bestSlot = c, c.Slot
		}
	}
	return best
}

// CompleteSlotTable rebuilds the timeline: a BEGIN entry per chord, then a
// CONTINUE entry wherever the previous chord is still sounding. Two chords
// beginning in the same slot flag the measure abnormal.
func (v *Voice) CompleteSlotTable(m *Measure) {
	v.slots = make(map[int]SlotVoice)
	if v.IsMeasureRest() {
		return
	}

	for _, id := range v.Chords {
		c := m.Chord(id)
		if c.Slot == 0 {
			continue
		}
		if prev, ok := v.slots[c.Slot]; ok && prev.Chord != id {
			m.SetAbnormal(true)
			continue
		}
		v.slots[c.Slot] = SlotVoice{Chord: id, Status: Begin}
	}

	for _, slot := range m.Slots {
		if _, ok := v.slots[slot.ID]; ok {
			continue
		}
		slotTime := slot.Time()
		prev := v.ChordBefore(m, slot.ID)
		if prev == nil || slotTime == nil {
			continue
		}
		if end := prev.End(); end != nil && end.Cmp(*slotTime) > 0 {
			v.slots[slot.ID] = SlotVoice{Chord: prev.ID, Status: Continue}
		}
	}
}

// End is the end time of the last chord, nil when unknown.
func (v *Voice) End(m *Measure) *rational.Rational {
	last := v.LastChord(m)
	if last == nil {
		return nil
	}
	return last.End()
}

// Duration is the latest end of the chords beginning in the timeline, read
// from their narrow slot times. Nil for measure-rest voices or when a slot
// time is still unknown.
func (v *Voice) Duration(m *Measure) *rational.Rational {
	if v.IsMeasureRest() {
		return nil
	}
	dur := rational.Zero
	for _, slotID := range v.SlotIDs() {
		info := v.slots[slotID]
		if info.Status != Begin {
			continue
		}
		c := m.Chord(info.Chord)
		narrow := m.NarrowSlotOf(c)
		if narrow == nil || narrow.Time() == nil {
			return nil
		}
		if end := narrow.Time().Plus(c.Duration()); dur.Less(end) {
			dur = end
		}
	}
	return &dur
}

// DurationSansTuplet sums the chord durations as if no tuplet applied.
func (v *Voice) DurationSansTuplet(m *Measure) *rational.Rational {
	if v.IsMeasureRest() {
		return nil
	}
	dur := rational.Zero
	for _, c := range m.ChordsOf(v.Chords) {
		dur = dur.Plus(c.DurationSansTuplet())
	}
	return &dur
}

// Forward is a hole in a voice: nothing sounds from Start for Duration.
// After is the chord preceding the hole, 0 at the measure start.
type Forward struct {
	After    int
	Start    rational.Rational
	Duration rational.Rational
}

// Forwards lists the holes of the voice in time order, the tail up to
// expected included when known. The scan stops at the first untimed chord.
func (v *Voice) Forwards(m *Measure, expected *rational.Rational) []Forward {
	if v.IsMeasureRest() {
		return nil
	}
	var out []Forward
	cursor := rational.Zero
	after := 0
	for _, c := range m.ChordsOf(v.Chords) {
		if c.Time == nil {
			return out
		}
		if cursor.Less(*c.Time) {
			out = insertForward(out, Forward{After: after, Start: cursor, Duration: c.Time.Minus(cursor)})
		}
		if end := c.End(); end != nil && cursor.Less(*end) {
			cursor = *end
		}
		after = c.ID
	}
	if expected != nil && cursor.Less(*expected) {
		out = insertForward(out, Forward{After: after, Start: cursor, Duration: expected.Minus(cursor)})
	}
	return out
}

// insertForward appends f, extending the previous hole when f starts where
// it ends.
func insertForward(out []Forward, f Forward) []Forward {
	if n := len(out); n > 0 {
		last := &out[n-1]
		if last.Start.Plus(last.Duration) == f.Start {
			last.Duration = last.Duration.Plus(f.Duration)
			return out
		}
	}
	return append(out, f)
}

// Strip renders the life of the voice across the measure slots: the chord
// id where a chord begins, '=' while it lasts, dots where the voice is free
// and question marks before CompleteSlotTable ran. The voice duration closes
// the line.
func (v *Voice) Strip(m *Measure) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "V%2d ", v.ID)

	if v.IsMeasureRest() {
		fmt.Fprintf(&sb, "|Ch#%-5d", v.MeasureRest)
		for range max(len(m.Slots)-1, 0) {
			sb.WriteString("=========")
		}
		sb.WriteString("|M")
		return sb.String()
	}

	for _, cs := range m.Slots {
		info, ok := v.slots[cs.ID]
		switch {
		case v.IsFree(cs.ID):
			sb.WriteString("|........")
		case !ok:
			sb.WriteString("|????????")
		case info.Status == Begin:
			fmt.Fprintf(&sb, "|Ch#%-5d", info.Chord)
		default:
			sb.WriteString("=========")
		}
	}
	sb.WriteString("|")
	sb.WriteString(rational.String(v.Duration(m)))
	return sb.String()
}

// CheckDuration computes the termination against the expected duration.
// Measure-rest voices and unknown expectations give a nil termination;
// a voice whose last chord has no time flags the measure abnormal.
func (v *Voice) CheckDuration(m *Measure, expected *rational.Rational) {
	v.Termination = nil
	v.Excess = nil

	if v.IsMeasureRest() {
		return
	}

	end := v.End(m)
	if end == nil {
		m.SetAbnormal(true)
		return
	}
	if expected == nil {
		return
	}

	delta := end.Minus(*expected)
	v.Termination = delta.Ptr()
	if delta.Sign() > 0 {
		v.Excess = delta.Ptr()
		m.SetAbnormal(true)
	}
}

// InferredTimeSignature guesses a time signature from a regular pattern of
// group durations (beam groups or isolated chords). The voice must start at
// time zero and end exactly on the expected duration.
func (v *Voice) InferredTimeSignature(m *Measure) *TimeSignature {
	if v.IsMeasureRest() || v.Termination == nil || !v.Termination.IsZero() {
		return nil
	}

	var durations []rational.Rational
	var start *rational.Rational
	var groupLast *rational.Rational

	for _, slotID := range v.SlotIDs() {
		info := v.slots[slotID]
		if info.Status != Begin {
			continue
		}
		c := m.Chord(info.Chord)
		if c.Time == nil {
			return nil
		}
		if groupLast != nil && c.Time.Cmp(*groupLast) <= 0 {
			continue
		}

		if c.Beam == 0 {
			durations = append(durations, c.Duration())
		} else {
			d := m.BeamDuration(c.Beam)
			if d != nil {
				durations = append(durations, *d)
				last := m.BeamChords(c.Beam)
				groupLast = last[len(last)-1].Time
			}
		}

		if start == nil {
			if s := m.SlotByID(slotID); s != nil {
				start = s.Time()
			}
		}
	}

	if start == nil || !start.IsZero() || len(durations) == 0 {
		return nil
	}

	common := durations[0]
	for _, d := range durations[1:] {
		if d != common {
			return nil
		}
	}
	return timeSigOf(len(durations), common)
}

func timeSigOf(count int, common rational.Rational) *TimeSignature {
	num := int64(count) * common.Num()
	den := common.Den()

	g := rational.GCD(int64(count), num)
	num, den = (int64(count)/g)*num, (int64(count)/g)*den

	if num == 1 {
		num, den = 2, 2*den
	}
	if rational.New(num, den) == rational.Half {
		num, den = 2, 4
	}
	return &TimeSignature{Num: int(num), Den: int(den)}
}

func (v *Voice) String() string {
	return fmt.Sprintf("V%d", v.ID)
}
