package rhythm

import (
	"cmp"
	"slices"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/mapper"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/slots"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/tuplet"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// MeasureRhythm computes slots, voices and time offsets for one measure.
type MeasureRhythm struct {
	m      *score.Measure
	opts   Options
	log    Logger
	metric mapper.Metric

	retriever *slots.Retriever
	tuplets   *tuplet.Inferencer
	extinct   map[int]bool // voice ids
	pass      int
	debug     bool
}

func NewMeasureRhythm(m *score.Measure, opts Options) *MeasureRhythm {
	log := opts.measureLogger(m)
	return &MeasureRhythm{
		m:       m,
		opts:    opts,
		log:     log,
		metric:  mapper.NewMetric(m.MergedStaves, opts.Weights, m.Scale),
		tuplets: tuplet.New(m),
		debug:   debugEnabled(log),
	}
}

// Process runs the rhythm passes and reports whether every chord got a voice
// and a time, with voice durations matching the expected one when known.
func (mr *MeasureRhythm) Process() bool {
	m := mr.m
	mr.removeImplicitTuplets()

	for mr.pass = 1; ; mr.pass++ {
		mr.log.Debugf("pass #%d", mr.pass)
		m.ResetRhythm()
		mr.extinct = make(map[int]bool)

		mr.retriever = slots.NewRetriever(m, mr.opts.Tolerances)
		mr.retriever.Retrieve()
		if mr.debug {
			mr.log.Debugf("narrow relations:\n%s", mr.retriever.NarrowGraph().Dump())
			mr.log.Debugf("wide relations:\n%s", mr.retriever.WideGraph().Dump())
		}

		mr.processStartingChords()

		for i := 0; i < len(m.Slots); i++ {
			cs := m.Slots[i]
			if removed := mr.newSlotMapper(cs).mapChords(); removed {
				i--
				continue
			}
			mr.purgeExtinctVoices(cs)
		}

		if mr.opts.ImplicitTuplets {
			mr.inspectVoicesEnd()
			mr.mergeTuplets()

			if mr.pass == 1 && m.Expected != nil {
				old := m.ImplicitTuplets()
				if created := mr.tuplets.FindImplicit(); len(created) > 0 {
					mr.log.Debugf("implicit tuplets %v", created)
					for _, t := range old {
						m.RemoveTuplet(t)
					}
					continue
				}
			}
		}

		break
	}

	m.RenumberVoices()
	return mr.finalCheck()
}

func (mr *MeasureRhythm) removeImplicitTuplets() {
	for _, t := range mr.m.ImplicitTuplets() {
		mr.m.RemoveTuplet(t)
	}
}

// processStartingChords gives a voice to each measure rest and each chord of
// the first slot, top down, all starting at zero.
func (mr *MeasureRhythm) processStartingChords() {
	m := mr.m
	starters := m.MeasureRestChords()
	if len(m.Slots) > 0 {
		starters = append(starters, m.ChordsOf(m.Slots[0].Chords())...)
	}
	slices.SortStableFunc(starters, func(a, b *score.Chord) int {
		return cmp.Compare(a.CenterY(), b.CenterY())
	})

	for _, c := range starters {
		if c.Voice == 0 {
			m.NewVoice(c)
		}
		m.SetAndPushTime(c, rational.Zero)
	}
}

// purgeExtinctVoices marks the voices whose last chord ended before the slot
// starts, unless a same-voice link points to a later chord of theirs.
func (mr *MeasureRhythm) purgeExtinctVoices(cs *score.CompoundSlot) {
	m := mr.m
	if len(cs.Members) == 0 {
		return
	}
	firstTime := cs.Members[0].Time()
	if firstTime == nil {
		return
	}

	for _, v := range m.Voices {
		if v.IsMeasureRest() || mr.extinct[v.ID] {
			continue
		}
		last := v.LastChord(m)
		if last == nil {
			continue
		}
		end := last.End()
		if end == nil {
			m.SetAbnormal(true)
			continue
		}
		if !end.Less(*firstTime) {
			continue
		}
		if !mr.hasLaterSuccessor(last, cs.ID) {
			mr.log.Debugf("%v extinct at %v", v, cs)
			mr.extinct[v.ID] = true
		}
	}
}

func (mr *MeasureRhythm) hasLaterSuccessor(c *score.Chord, slotID int) bool {
	seen := map[int]bool{c.ID: true}
	queue := mr.m.NextInVoice(c.ID)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		next := mr.m.Chord(id)
		if next == nil {
			continue
		}
		if next.Slot >= slotID {
			return true
		}
		queue = append(queue, mr.m.NextInVoice(id)...)
	}
	return false
}

// inspectVoicesEnd shrinks the chords following the last tuplet of a voice
// when they overrun the measure by exactly one half.
func (mr *MeasureRhythm) inspectVoicesEnd() {
	m := mr.m
	for _, v := range m.Voices {
		if v.IsMeasureRest() || !v.HasImplicitTuplet(m) {
			continue
		}
		last := v.LastChordWithTuplet(m)
		if last == nil {
			continue
		}
		first := v.ChordAfter(m, last.ID)
		if first == nil || first.Time == nil {
			continue
		}
		start := *first.Time

		if m.Expected != nil {
			end := v.End(m)
			if end == nil {
				continue
			}
			normal := m.Expected.Minus(start)
			if normal.IsZero() {
				continue
			}
			if end.Minus(start).Divides(normal) != rational.ThreeHalves {
				continue
			}
		}

		mr.log.Debugf("%v end shrunk from %s", v, start)
		mr.shrinkVoice(nil, v, &start)
	}
}

// mergeTuplets fuses consecutive implicit tuplets of a voice that cut one
// beam group in two.
func (mr *MeasureRhythm) mergeTuplets() {
	m := mr.m
	for _, v := range m.Voices {
		if !v.HasImplicitTuplet(m) {
			continue
		}

		var prev *score.Tuplet
		for _, t := range v.Tuplets(m) {
			if prev != nil && prev.Implicit && t.Implicit {
				prevLast := m.Chord(prev.Chords[len(prev.Chords)-1])
				first := m.Chord(t.Chords[0])
				if prevLast != nil && first != nil && prevLast.Beam != 0 && prevLast.Beam == first.Beam {
					mr.log.Debugf("merge %v with %v", prev, t)
					group := m.ChordsOf(append(slices.Clone(prev.Chords), t.Chords...))
					m.RemoveTuplet(prev)
					m.RemoveTuplet(t)
					mr.tuplets.Generate(group)
					prev = nil
					continue
				}
			}
			prev = t
		}
	}
}

// shrinkVoice puts implicit tuplets on the voice chords from the last synchro
// time up to stop (excluded), then re-times them and pushes the new end onto
// stop unless the beam closure already took stop in. The voice defaults to
// the voice of stop.
func (mr *MeasureRhythm) shrinkVoice(stop *score.Chord, v *score.Voice, lastSync *rational.Rational) {
	m := mr.m
	if v == nil && stop != nil {
		v = m.VoiceOf(stop)
	}
	if v == nil {
		return
	}

	chords := m.ChordsOf(v.Chords)
	iFirst := 0
	for i, c := range chords {
		if c.Time != nil && lastSync != nil && *c.Time == *lastSync {
			iFirst = i
			break
		}
	}
	iBreak := len(chords)
	if stop != nil {
		if i := slices.Index(chords, stop); i >= 0 {
			iBreak = i
		}
	}
	if iFirst >= iBreak {
		return
	}
	group := chords[iFirst:iBreak]
	mr.log.Debugf("shrink %v %v since %s", v, score.IDs(group), rational.String(lastSync))

	ext, _ := mr.tuplets.Generate(group)

	var prev *score.Chord
	for _, c := range ext {
		if prev != nil {
			mr.retime(c, prev.End())
		}
		prev = c
	}

	if prev != nil && stop != nil && !slices.Contains(ext, stop) {
		mr.retime(stop, prev.End())
	}
}

// retime moves the chord onto t and rectifies its narrow slot accordingly.
func (mr *MeasureRhythm) retime(c *score.Chord, t *rational.Rational) {
	if t == nil {
		return
	}
	if c.Time == nil || *c.Time != *t {
		mr.m.SetAndPushTime(c, *t)
	}
	if narrow := mr.m.NarrowSlotOf(c); narrow != nil {
		narrow.Rectify(*t)
	}
}

// timesUntil lists the onsets of the untupleted chords of the chord voice,
// up to the chord itself. The voice is found through the chord, its mapped
// active, or its declared predecessor.
func (mr *MeasureRhythm) timesUntil(c *score.Chord, mp *mapper.Mapping) []rational.Rational {
	m := mr.m
	v := m.VoiceOf(c)
	if v == nil {
		if mp != nil {
			v = m.VoiceOf(m.Chord(mp.Ref(c.ID)))
		} else {
			v = m.VoiceOf(m.Chord(m.PrevInVoice(c.ID)))
		}
	}
	if v == nil {
		return nil
	}

	var times []rational.Rational
	for _, ch := range m.ChordsOf(v.Chords) {
		if ch.Time != nil && !ch.HasTuplet() {
			times = append(times, *ch.Time)
		}
		if ch == c {
			break
		}
	}
	return times
}

// lastSynchro is the latest onset shared by both chord histories, else the
// first onset of c1, nil when c1 has none.
func (mr *MeasureRhythm) lastSynchro(c1, c2 *score.Chord, mp *mapper.Mapping) *rational.Rational {
	l1 := mr.timesUntil(c1, mp)
	l2 := mr.timesUntil(c2, mp)

	var last *rational.Rational
	for _, t := range l1 {
		if slices.Contains(l2, t) {
			last = t.Ptr()
		}
	}
	if last != nil {
		return last
	}
	if len(l1) > 0 {
		return l1[0].Ptr()
	}
	return nil
}

// deltaRatio compares the distances of t1 and t2 to the last synchro of
// both chords. It returns zero when t2 is the synchro itself, nil when there
// is no synchro.
func (mr *MeasureRhythm) deltaRatio(c1 *score.Chord, t1 rational.Rational, c2 *score.Chord, t2 rational.Rational, mp *mapper.Mapping) *rational.Rational {
	ls := mr.lastSynchro(c1, c2, mp)
	if ls == nil {
		return nil
	}
	d1 := t1.Minus(*ls)
	d2 := t2.Minus(*ls)
	if d2.IsZero() {
		return rational.Zero.Ptr()
	}
	return d1.Divides(d2).Ptr()
}

// finalCheck verifies every chord is placed, builds the voice timelines and
// checks the voice durations.
func (mr *MeasureRhythm) finalCheck() bool {
	m := mr.m
	for _, c := range m.StandardChords() {
		if c.Voice == 0 {
			mr.log.Warnf("%v without voice", c)
			return false
		}
		if c.Time == nil {
			mr.log.Warnf("%v without time", c)
			return false
		}
	}

	for _, v := range m.Voices {
		v.CompleteSlotTable(m)
		v.CheckDuration(m, m.Expected)
		if mr.debug {
			mr.log.Debugf("%s", v.Strip(m))
		}
	}

	if m.Expected == nil {
		return true
	}
	return !m.IsAbnormal()
}
