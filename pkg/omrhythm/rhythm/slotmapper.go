package rhythm

import (
	"slices"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/mapper"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/relation"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

// outcome of one mapping round.
type outcome int

const (
	accepted outcome = iota
	retry
	exhausted
)

func (o outcome) String() string {
	switch o {
	case accepted:
		return "accepted"
	case retry:
		return "retry"
	default:
		return "exhausted"
	}
}

// slotMapper assigns voices and times to the rookies of one compound slot.
type slotMapper struct {
	mr   *MeasureRhythm
	m    *score.Measure
	slot *score.CompoundSlot

	rookies   []*score.Chord
	blackList mapper.PairSet
	nextList  mapper.PairSet
	mapping   *mapper.Mapping
}

func (mr *MeasureRhythm) newSlotMapper(cs *score.CompoundSlot) *slotMapper {
	sm := &slotMapper{
		mr:        mr,
		m:         mr.m,
		slot:      cs,
		rookies:   mr.m.ChordsOf(cs.Chords()),
		blackList: mapper.NewPairSet(),
		nextList:  mapper.NewPairSet(),
	}

	for _, r := range sm.rookies {
		for _, l := range sm.m.Links {
			var other int
			switch r.ID {
			case l.From:
				other = l.To
			case l.To:
				other = l.From
			default:
				continue
			}
			pair := mapper.ChordPair{Rookie: r.ID, Active: other}
			switch l.Kind {
			case score.SeparateVoice, score.SeparateTime:
				sm.blackList.Add(pair)
			case score.SameVoice:
				sm.nextList.Add(pair)
			}
		}
	}
	return sm
}

// mapChords processes the slot and reports whether the slot was merged into
// the previous one and removed from the measure.
func (sm *slotMapper) mapChords() (removed bool) {
	for _, narrow := range sm.slot.Members {
		groups := sm.readSlotTimes(narrow)
		switch {
		case len(groups) == 1:
			sm.setSlotTime(narrow, groups[0].time)
		case len(groups) > 1:
			sm.mr.log.Infof("Time inconsistency in %v", groups)
			sm.analyzeTimes(groups)
			sm.settleSlotTime(narrow)
		}
	}

	sm.purgeRookies()
	if len(sm.rookies) == 0 {
		return false
	}

	sm.mapRookies()
	if len(sm.rookies) == 0 {
		return false
	}

	return sm.createNewVoices()
}

// timeGroup gathers the chords of a narrow slot sharing one time.
type timeGroup struct {
	time   rational.Rational
	chords []*score.Chord
}

func (g timeGroup) String() string {
	return g.time.String() + ":" + idsString(g.chords)
}

func idsString(chords []*score.Chord) string {
	s := "["
	for i, c := range chords {
		if i > 0 {
			s += " "
		}
		s += c.String()
	}
	return s + "]"
}

// groupByTime sorts chord times ascending.
func groupByTime(timed map[rational.Rational][]*score.Chord) []timeGroup {
	groups := make([]timeGroup, 0, len(timed))
	for t, chords := range timed {
		groups = append(groups, timeGroup{time: t, chords: chords})
	}
	slices.SortFunc(groups, func(a, b timeGroup) int { return a.time.Cmp(b.time) })
	return groups
}

// readSlotTimes collects the times already known on the narrow slot chords.
func (sm *slotMapper) readSlotTimes(narrow *score.Slot) []timeGroup {
	timed := make(map[rational.Rational][]*score.Chord)
	for _, c := range sm.m.ChordsOf(narrow.Chords) {
		if c.Time != nil {
			timed[*c.Time] = append(timed[*c.Time], c)
		}
	}
	return groupByTime(timed)
}

// inferSlotTimes collects the times the current mapping would give to the
// narrow slot chords.
func (sm *slotMapper) inferSlotTimes(narrow *score.Slot) []timeGroup {
	timed := make(map[rational.Rational][]*score.Chord)
	for _, c := range sm.m.ChordsOf(narrow.Chords) {
		act := sm.m.Chord(sm.mapping.Ref(c.ID))
		if act == nil {
			continue
		}
		end := act.End()
		if end == nil {
			sm.m.SetAbnormal(true)
			continue
		}
		timed[*end] = append(timed[*end], c)
	}
	return groupByTime(timed)
}

// setSlotTime assigns the narrow time. A refused reassignment is logged and
// flags the slot.
func (sm *slotMapper) setSlotTime(narrow *score.Slot, t rational.Rational) {
	if sm.m.SetSlotTime(narrow, t) {
		return
	}
	sm.mr.log.Warnf("Reassigning time of %v to %s refused in %v", narrow, t, sm.m)
	sm.slot.Suspicious = true
}

// settleSlotTime sets the narrow time once conflicting chord times have been
// analyzed. Times still in conflict keep the lowest one and flag the slot.
func (sm *slotMapper) settleSlotTime(narrow *score.Slot) {
	groups := sm.readSlotTimes(narrow)
	if len(groups) == 0 {
		return
	}
	if len(groups) > 1 {
		sm.mr.log.Warnf("%v still holds times %v", sm.slot, groups)
		sm.slot.Suspicious = true
	}
	sm.setSlotTime(narrow, groups[0].time)
}

func (sm *slotMapper) purgeRookies() {
	sm.rookies = slices.DeleteFunc(sm.rookies, func(c *score.Chord) bool { return c.Voice != 0 })
}

func (sm *slotMapper) ref(c *score.Chord) *score.Chord {
	if sm.mapping == nil {
		return nil
	}
	return sm.m.Chord(sm.mapping.Ref(c.ID))
}

// analyzeTimes handles several times within one narrow slot. A 3/2 ratio
// since the last synchro is read as a missing tuplet and shrinks the late
// voice; any other difference rejects the mapping that produced it.
func (sm *slotMapper) analyzeTimes(groups []timeGroup) bool {
	mr := sm.mr
	best := groups[0]
	ok := true

	for _, b := range best.chords {
		for _, g := range groups[1:] {
			for _, ch := range g.chords {
				if mr.opts.ImplicitTuplets {
					ratio := mr.deltaRatio(ch, g.time, b, best.time, sm.mapping)
					if ratio == nil || ratio.IsZero() {
						continue
					}
					if *ratio == rational.ThreeHalves {
						lastSync := mr.lastSynchro(b, ch, sm.mapping)
						var v *score.Voice
						if sm.mapping != nil {
							v = sm.m.VoiceOf(sm.ref(ch))
						} else {
							v = sm.m.VoiceOf(ch)
						}
						if v != nil {
							mr.shrinkVoice(ch, v, lastSync)
							continue
						}
					}
				}

				if act := sm.ref(ch); act != nil {
					pair := mapper.ChordPair{Rookie: ch.ID, Active: act.ID}
					mr.log.Debugf("blacklisting %v", pair)
					sm.blackList.Add(pair)
				}
				ok = false
			}
		}
	}

	return ok
}

// retrieveActives returns the last chord of every voice still able to
// continue in this slot.
func (sm *slotMapper) retrieveActives() (actives []*score.Chord, extinct map[int]bool) {
	m := sm.m
	extinct = make(map[int]bool)

	for _, v := range m.Voices {
		if v.IsMeasureRest() {
			continue
		}
		last := v.LastChord(m)
		if last == nil {
			continue
		}

		if m.Expected != nil {
			if end := last.End(); end != nil && end.Cmp(*m.Expected) >= 0 {
				if !sm.mr.opts.ImplicitTuplets || len(v.Chords) == 1 {
					continue
				}
			}
		}

		if last.Slot >= sm.slot.ID {
			continue
		}

		if !sm.mr.extinct[v.ID] {
			actives = append(actives, last)
			continue
		}
		for p := range sm.nextList {
			if p.Active == last.ID && slices.ContainsFunc(sm.rookies, func(r *score.Chord) bool { return r.ID == p.Rookie }) {
				actives = append(actives, last)
				extinct[last.ID] = true
				break
			}
		}
	}

	return actives, extinct
}

// mapRookies runs mapping rounds until one is accepted or no new rejection
// can be made.
func (sm *slotMapper) mapRookies() {
	actives, extinct := sm.retrieveActives()
	if len(actives) == 0 {
		return
	}

	for {
		cm := &mapper.ChordsMapper{
			Measure:   sm.m,
			Rookies:   sm.rookies,
			Actives:   actives,
			Metric:    sm.mr.metric,
			BlackList: sm.blackList,
			WhiteList: sm.nextList,
			Extinct:   extinct,
		}
		if sm.mr.debug {
			sm.mr.log.Debugf("rookies map:%s", cm.Dump())
		}

		mp := cm.Process()
		sm.mapping = &mp
		sm.mr.log.Debugf("%v", mp)
		if mp.IsEmpty() {
			return
		}

		before := len(sm.blackList)
		out := sm.checkMapping()
		if out == accepted && !sm.checkSlotTime() {
			out = retry
		}
		if out == retry && len(sm.blackList) == before {
			out = exhausted
		}

		switch out {
		case accepted:
			sm.applyMapping()
			return
		case exhausted:
			sm.mr.log.Debugf("mapping exhausted in %v", sm.slot)
			sm.slot.Suspicious = true
			return
		}
	}
}

// checkMapping verifies the mapped ends against the narrow slot times.
func (sm *slotMapper) checkMapping() outcome {
	m := sm.m
	mr := sm.mr
	mp := sm.mapping

	for _, narrow := range sm.slot.Members {
		if narrow.Time() == nil {
			continue
		}

		var setChords []*score.Chord
		for _, c := range m.ChordsOf(narrow.Chords) {
			if c.Time != nil {
				setChords = append(setChords, c)
			}
		}

		for _, pair := range mp.PairsOf(narrow.Chords) {
			ch := m.Chord(pair.Rookie)
			act := m.Chord(pair.Active)
			actEnd := act.End()
			if actEnd == nil {
				return exhausted
			}

			if m.Expected != nil && actEnd.Plus(ch.Duration()).Cmp(*m.Expected) > 0 {
				mr.log.Debugf("too late ending for %v plus %v", act, ch)
				if !sm.nextList.Contains(pair) && sm.blackList.Add(pair) {
					return retry
				}
			}

			slotTime := narrow.Time()
			if *actEnd == *slotTime {
				continue
			}
			mr.log.Debugf("%v slotTime:%s end:%s", sm.slot, slotTime, actEnd)

			if !mr.opts.ImplicitTuplets || !sm.rectify(narrow, setChords, act, *actEnd) {
				return sm.reject(pair)
			}
		}
	}

	return accepted
}

// rectify explains an active end differing from the narrow slot time by a
// missing tuplet. A 3/2 ratio since the last synchro shrinks the voices of
// the timed chords, a 2/3 ratio shrinks the voice of the active through its
// end. It reports whether the active now ends on the slot time.
func (sm *slotMapper) rectify(narrow *score.Slot, setChords []*score.Chord, act *score.Chord, actEnd rational.Rational) bool {
	m := sm.m
	mr := sm.mr
	mp := sm.mapping
	slotTime := *narrow.Time()

	for _, setCh := range setChords {
		if setCh.Time == nil || *setCh.Time != slotTime {
			continue
		}
		ratio := mr.deltaRatio(setCh, slotTime, act, actEnd, mp)
		switch {
		case ratio == nil || ratio.IsZero():
			continue
		case *ratio == rational.ThreeHalves:
			v := m.VoiceOf(setCh)
			if v == nil {
				return false
			}
			mr.shrinkVoice(setCh, v, mr.lastSynchro(setCh, act, mp))
		case *ratio == rational.TwoThirds:
			mr.shrinkVoice(nil, m.VoiceOf(act), mr.lastSynchro(act, setCh, mp))
			return endsOn(act, narrow)
		default:
			return false
		}
	}

	return endsOn(act, narrow)
}

func endsOn(c *score.Chord, narrow *score.Slot) bool {
	end, t := c.End(), narrow.Time()
	return end != nil && t != nil && *end == *t
}

// reject blacklists the pair, or gives up when it was already rejected.
func (sm *slotMapper) reject(pair mapper.ChordPair) outcome {
	if !sm.blackList.Add(pair) {
		return exhausted
	}
	return retry
}

// checkSlotTime infers the time of untimed narrow slots from the mapping.
// Conflicting values keep the lowest and reject the others.
func (sm *slotMapper) checkSlotTime() bool {
	ok := true
	for _, narrow := range sm.slot.Members {
		if narrow.Time() != nil {
			continue
		}
		groups := sm.inferSlotTimes(narrow)
		switch len(groups) {
		case 0:
			sm.mr.log.Debugf("no times for %v", narrow)
		case 1:
			sm.setSlotTime(narrow, groups[0].time)
		default:
			sm.mr.log.Debugf("times %v", groups)
			ok = sm.analyzeTimes(groups) && ok
			sm.setSlotTime(narrow, groups[0].time)
		}
	}
	return ok
}

// applyMapping gives each mapped rookie the voice of its active and the
// active end as time.
func (sm *slotMapper) applyMapping() {
	for _, pair := range sm.mapping.Pairs {
		ch := sm.m.Chord(pair.Rookie)
		act := sm.m.Chord(pair.Active)
		sm.m.SetVoice(ch, act.Voice)

		if end := act.End(); end != nil {
			sm.m.SetAndPushTime(ch, *end)
		} else {
			sm.m.SetAbnormal(true)
		}
		sm.rookies = slices.DeleteFunc(sm.rookies, func(c *score.Chord) bool { return c == ch })
	}
}

// createNewVoices starts a voice for each rookie left. It reports whether the
// slot was merged into the previous one.
func (sm *slotMapper) createNewVoices() bool {
	for _, ch := range slices.Clone(sm.rookies) {
		if ch.Voice != 0 {
			continue
		}
		sm.m.NewVoice(ch)
		if ch.Time != nil {
			continue
		}

		siblings := sm.mr.retriever.OrderedSiblings(ch, sm.slot)
		for _, sib := range siblings {
			if sib.Time != nil {
				sm.m.SetAndPushTime(ch, *sib.Time)
				break
			}
		}
		if ch.Time != nil {
			continue
		}

		if len(siblings) == 0 && sm.mergeWithPreviousSlot(ch) {
			return true
		}
		sm.mr.log.Infof("No timeOffset for %v", ch)
	}
	return false
}

// mergeWithPreviousSlot moves a lone rookie into the previous slot when it
// is EQUAL to a timed chord there, within the merge distance.
func (sm *slotMapper) mergeWithPreviousSlot(rookie *score.Chord) bool {
	prev := sm.m.SlotByID(sm.slot.ID - 1)
	if prev == nil {
		return false
	}
	maxDx := sm.m.Scale.Pixels(sm.mr.opts.Tolerances.MaxMergeDx)

	for _, c := range sm.m.ChordsOf(prev.Chords()) {
		if sm.mr.retriever.Rel(c.ID, rookie.ID) != relation.Equal || c.Time == nil {
			continue
		}
		if score.Abs(c.CenterX()-rookie.CenterX()) > maxDx {
			sm.mr.log.Debugf("%v too far from %v to merge", rookie, c)
			continue
		}
		sm.mr.log.Debugf("%v joins %v", rookie, prev)
		prev.AddChord(rookie.ID)
		prev.Suspicious = true
		sm.m.SetAndPushTime(rookie, *c.Time)
		sm.m.RemoveSlot(sm.slot)
		return true
	}
	return false
}
