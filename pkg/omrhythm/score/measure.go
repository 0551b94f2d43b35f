package score

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// LinkKind is the flavour of an explicit relation supplied by the recognizer.
type LinkKind int

const (
	// SameVoice links a chord to its successor in the same voice.
	SameVoice LinkKind = iota
	// SeparateVoice forbids two chords from sharing a voice.
	SeparateVoice
	// SameTime forces two chords into the same slot.
	SameTime
	// SeparateTime forbids two chords from sharing a slot.
	SeparateTime
)

func (k LinkKind) String() string {
	switch k {
	case SameVoice:
		return "same-voice"
	case SeparateVoice:
		return "separate-voice"
	case SameTime:
		return "same-time"
	case SeparateTime:
		return "separate-time"
	default:
		return "unknown"
	}
}

func ParseLinkKind(s string) (LinkKind, error) {
	for k := SameVoice; k <= SeparateTime; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return SameVoice, fmt.Errorf("unknown link kind %q", s)
}

// Link is an explicit relation between two chords of a measure.
type Link struct {
	From int
	To   int
	Kind LinkKind
}

// Measure is the arena holding one part's chords within a stack, plus the
// rhythm results computed for them.
type Measure struct {
	Stack        int
	Part         int
	Left         float64 // abscissa of the left barline
	Staves       []int
	MergedStaves bool
	Scale        Scale

	Chords   []*Chord
	Links    []Link
	Tuplets  []*Tuplet
	Expected *rational.Rational
	BeatUnit rational.Rational

	Slots  []*CompoundSlot
	Voices []*Voice

	abnormal bool
	index    map[int]*Chord
}

func (m *Measure) reindex() {
	m.index = make(map[int]*Chord, len(m.Chords))
	for _, c := range m.Chords {
		m.index[c.ID] = c
	}
}

// Chord returns the chord with the given id, or nil.
func (m *Measure) Chord(id int) *Chord {
	if m.index == nil || len(m.index) != len(m.Chords) {
		m.reindex()
	}
	return m.index[id]
}

func (m *Measure) ChordsOf(ids []int) []*Chord {
	out := make([]*Chord, 0, len(ids))
	for _, id := range ids {
		if c := m.Chord(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func byAbscissa(a, b *Chord) int {
	if c := cmp.Compare(a.CenterX(), b.CenterX()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// StandardChords are the chords that take part in slots, sorted by abscissa.
func (m *Measure) StandardChords() []*Chord {
	var out []*Chord
	for _, c := range m.Chords {
		if !c.IsMeasureRest() {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, byAbscissa)
	return out
}

func (m *Measure) MeasureRestChords() []*Chord {
	var out []*Chord
	for _, c := range m.Chords {
		if c.IsMeasureRest() {
			out = append(out, c)
		}
	}
	return out
}

// BeamChords returns the members of a beam group sorted by abscissa.
func (m *Measure) BeamChords(beam int) []*Chord {
	if beam == 0 {
		return nil
	}
	var out []*Chord
	for _, c := range m.Chords {
		if c.Beam == beam {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, byAbscissa)
	return out
}

// BeamDuration spans from the first member onset to the last member end.
func (m *Measure) BeamDuration(beam int) *rational.Rational {
	chords := m.BeamChords(beam)
	if len(chords) == 0 {
		return nil
	}
	first, last := chords[0], chords[len(chords)-1]
	if first.Time == nil || last.Time == nil {
		return nil
	}
	d := last.Time.Minus(*first.Time).Plus(last.Duration())
	return &d
}

// HasLink reports a link of the kind between a and b, in either direction.
func (m *Measure) HasLink(kind LinkKind, a, b int) bool {
	for _, l := range m.Links {
		if l.Kind == kind && ((l.From == a && l.To == b) || (l.From == b && l.To == a)) {
			return true
		}
	}
	return false
}

func (m *Measure) LinksOf(kind LinkKind) []Link {
	var out []Link
	for _, l := range m.Links {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

// NextInVoice returns the chords a same-voice link declares as successors.
func (m *Measure) NextInVoice(id int) []int {
	var out []int
	for _, l := range m.Links {
		if l.Kind == SameVoice && l.From == id {
			out = append(out, l.To)
		}
	}
	return out
}

// PrevInVoice returns the declared predecessor of a chord, 0 if none.
func (m *Measure) PrevInVoice(id int) int {
	for _, l := range m.Links {
		if l.Kind == SameVoice && l.To == id {
			return l.From
		}
	}
	return 0
}

func (m *Measure) Voice(id int) *Voice {
	for _, v := range m.Voices {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func (m *Measure) VoiceOf(c *Chord) *Voice {
	if c == nil || c.Voice == 0 {
		return nil
	}
	return m.Voice(c.Voice)
}

// SetVoice assigns the voice and propagates it along the beam group and the
// tie chain to chords that have none yet.
func (m *Measure) SetVoice(c *Chord, voiceID int) {
	c.Voice = voiceID
	if v := m.Voice(voiceID); v != nil {
		if c.IsMeasureRest() {
			v.MeasureRest = c.ID
		} else {
			m.insertVoiceChord(v, c)
		}
	}

	for _, mate := range m.BeamChords(c.Beam) {
		if mate.Voice == 0 {
			m.SetVoice(mate, voiceID)
		}
	}
	if c.TieTo != 0 {
		if next := m.Chord(c.TieTo); next != nil && next.Voice == 0 {
			m.SetVoice(next, voiceID)
		}
	}
}

func (m *Measure) insertVoiceChord(v *Voice, c *Chord) {
	if v.HasChord(c.ID) {
		return
	}
	i := len(v.Chords)
	for i > 0 && byAbscissa(c, m.Chord(v.Chords[i-1])) < 0 {
		i--
	}
	v.Chords = slices.Insert(v.Chords, i, c.ID)
}

// SetAndPushTime sets the chord time, then pushes end times onto the
// following beam mates and onto a tied successor that has no time yet.
func (m *Measure) SetAndPushTime(c *Chord, t rational.Rational) {
	c.Time = t.Ptr()

	if c.Beam != 0 && !c.CueBeam {
		mates := m.BeamChords(c.Beam)
		prev := c
		for _, next := range mates[slices.Index(mates, c)+1:] {
			end := prev.End()
			if end == nil {
				break
			}
			next.Time = end
			m.pushTie(next)
			prev = next
		}
	}
	m.pushTie(c)
}

func (m *Measure) pushTie(c *Chord) {
	if c.TieTo == 0 {
		return
	}
	next := m.Chord(c.TieTo)
	end := c.End()
	if next == nil || next.Time != nil || end == nil {
		return
	}
	m.SetAndPushTime(next, *end)
}

// SetSlotTime assigns a narrow slot time; a refused reassignment flags the
// measure abnormal.
func (m *Measure) SetSlotTime(s *Slot, t rational.Rational) bool {
	if !s.SetTime(t) {
		m.abnormal = true
		return false
	}
	return true
}

// ResetRhythm clears every rhythm result so a new pass starts from scratch.
func (m *Measure) ResetRhythm() {
	for _, c := range m.Chords {
		c.resetTiming()
	}
	m.Slots = nil
	m.Voices = nil
	m.abnormal = false
}

func (m *Measure) SetAbnormal(b bool) { m.abnormal = b }

func (m *Measure) IsAbnormal() bool { return m.abnormal }

func (m *Measure) SlotByID(id int) *CompoundSlot {
	if id < 1 || id > len(m.Slots) {
		return nil
	}
	return m.Slots[id-1]
}

func (m *Measure) SlotOf(c *Chord) *CompoundSlot {
	return m.SlotByID(c.Slot)
}

// NarrowSlotOf returns the narrow member holding the chord.
func (m *Measure) NarrowSlotOf(c *Chord) *Slot {
	if cs := m.SlotOf(c); cs != nil {
		return cs.NarrowOf(c.ID)
	}
	return nil
}

// AssignSlots installs compound slots, numbering them from 1.
func (m *Measure) AssignSlots(slots []*CompoundSlot) {
	m.Slots = slots
	m.renumberSlots()
}

// RemoveSlot drops a compound slot and renumbers the following ones.
func (m *Measure) RemoveSlot(cs *CompoundSlot) {
	i := slices.Index(m.Slots, cs)
	if i < 0 {
		return
	}
	m.Slots = slices.Delete(m.Slots, i, i+1)
	m.renumberSlots()
}

func (m *Measure) renumberSlots() {
	for i, cs := range m.Slots {
		cs.ID = i + 1
		for _, id := range cs.Chords() {
			if c := m.Chord(id); c != nil {
				c.Slot = cs.ID
			}
		}
	}
}

// InferVoiceFamily derives the family from the staff index within the part,
// or from the stem direction when the staves are merged.
func (m *Measure) InferVoiceFamily(c *Chord) Family {
	if m.MergedStaves {
		if c.Stem == StemDown {
			return Low
		}
		return High
	}
	switch slices.Index(m.Staves, c.Staff) {
	case 0, -1:
		return High
	case 1:
		return Low
	default:
		return Infra
	}
}

// GenerateVoiceID returns the first free id of the family block.
func (m *Measure) GenerateVoiceID(f Family) int {
	for id := f.Offset() + 1; ; id++ {
		if m.Voice(id) == nil {
			return id
		}
	}
}

// NewVoice starts a voice with the given chord.
func (m *Measure) NewVoice(c *Chord) *Voice {
	f := m.InferVoiceFamily(c)
	v := &Voice{
		ID:         m.GenerateVoiceID(f),
		Family:     f,
		StartStaff: c.Staff,
	}
	m.Voices = append(m.Voices, v)
	m.SetVoice(c, v.ID)
	return v
}

// RenumberVoices sorts voices by family, first slot and ordinate, then gives
// them consecutive ids within each family block.
func (m *Measure) RenumberVoices() {
	firstSlot := func(v *Voice) int {
		if v.IsMeasureRest() {
			return 0
		}
		best := 0
		for _, id := range v.Chords {
			if s := m.Chord(id).Slot; s > 0 && (best == 0 || s < best) {
				best = s
			}
		}
		return best
	}
	ordinate := func(v *Voice) float64 {
		if c := v.FirstChord(m); c != nil {
			return c.CenterY()
		}
		return 0
	}

	slices.SortStableFunc(m.Voices, func(a, b *Voice) int {
		return cmp.Or(
			cmp.Compare(a.Family, b.Family),
			cmp.Compare(firstSlot(a), firstSlot(b)),
			cmp.Compare(ordinate(a), ordinate(b)),
		)
	})

	renamed := make(map[int]int, len(m.Voices))
	counts := make(map[Family]int)
	for _, v := range m.Voices {
		counts[v.Family]++
		renamed[v.ID] = v.Family.Offset() + counts[v.Family]
	}
	for _, c := range m.Chords {
		if id, ok := renamed[c.Voice]; ok {
			c.Voice = id
		}
	}
	for _, v := range m.Voices {
		v.ID = renamed[v.ID]
	}
}

func (m *Measure) Tuplet(id int) *Tuplet {
	for _, t := range m.Tuplets {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// AddTuplet registers the tuplet and links its chords to it.
func (m *Measure) AddTuplet(t *Tuplet) {
	if t.ID == 0 {
		for _, o := range m.Tuplets {
			t.ID = max(t.ID, o.ID)
		}
		t.ID++
	}
	m.Tuplets = append(m.Tuplets, t)
	for _, c := range m.ChordsOf(t.Chords) {
		c.Tuplet = t.ID
		c.TupletFactor = t.Shape.Factor()
	}
}

// RemoveTuplet unlinks the tuplet from its chords and forgets it.
func (m *Measure) RemoveTuplet(t *Tuplet) {
	for _, c := range m.ChordsOf(t.Chords) {
		if c.Tuplet == t.ID {
			c.Tuplet = 0
			c.TupletFactor = rational.Zero
		}
	}
	m.Tuplets = slices.DeleteFunc(m.Tuplets, func(o *Tuplet) bool { return o == t })
}

func (m *Measure) ImplicitTuplets() []*Tuplet {
	var out []*Tuplet
	for _, t := range m.Tuplets {
		if t.Implicit {
			out = append(out, t)
		}
	}
	return out
}

// EmptyStaves lists the staves of the measure holding no chord at all.
func (m *Measure) EmptyStaves() []int {
	var out []int
	for _, s := range m.Staves {
		if !slices.ContainsFunc(m.Chords, func(c *Chord) bool { return c.Staff == s }) {
			out = append(out, s)
		}
	}
	return out
}

// ActualDuration is the latest voice end, the expected duration standing for
// measure-rest voices. Nil when no voice end is known.
func (m *Measure) ActualDuration() *rational.Rational {
	var best *rational.Rational
	for _, v := range m.Voices {
		end := v.End(m)
		if v.IsMeasureRest() {
			end = m.Expected
		}
		if end != nil && (best == nil || best.Less(*end)) {
			best = end
		}
	}
	return best
}

func (m *Measure) String() string {
	return fmt.Sprintf("S%d P%d", m.Stack, m.Part)
}
