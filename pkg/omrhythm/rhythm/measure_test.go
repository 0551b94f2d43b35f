package rhythm_test

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/rhythm"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score/scoretest"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

func testOptions(t *testing.T, implicit bool) rhythm.Options {
	t.Helper()
	opts := rhythm.DefaultOptions()
	opts.ImplicitTuplets = implicit
	opts.Logger = logger.New(logger.Config{Level: logger.DEBUG, Output: io.Discard})
	return opts
}

func timeOf(t *testing.T, c *score.Chord) string {
	t.Helper()
	require.NotNil(t, c.Time, "%v has no time", c)
	return c.Time.String()
}

func TestAdjacentPairStartsTwoVoices(t *testing.T) {
	b := scoretest.NewMeasure()
	top := b.Head(20, -10, "1/4", scoretest.Up())
	bottom := b.Head(20, 20, "1/4", scoretest.Down())
	m := b.Build()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	require.Len(t, m.Slots, 1)
	assert.Equal(t, 1, top.Voice)
	assert.Equal(t, 2, bottom.Voice)
	assert.Equal(t, "0", timeOf(t, top))
	assert.Equal(t, "0", timeOf(t, bottom))
	assert.Equal(t, "0", m.Slots[0].Time().String())
}

func TestBeamedTripletGetsImplicitTuplet(t *testing.T) {
	b := scoretest.NewMeasure().Expect("1/4")
	var chords []*score.Chord
	for i := 0; i < 3; i++ {
		chords = append(chords, b.Head(20+30*float64(i), 0, "1/8", scoretest.Up(), scoretest.Beam(1)))
	}
	m := b.Build()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	tuplets := m.ImplicitTuplets()
	require.Len(t, tuplets, 1)
	assert.Equal(t, score.TupletThree, tuplets[0].Shape)
	assert.Equal(t, score.IDs(chords), tuplets[0].Chords)

	assert.Equal(t, "0", timeOf(t, chords[0]))
	assert.Equal(t, "1/12", timeOf(t, chords[1]))
	assert.Equal(t, "1/6", timeOf(t, chords[2]))

	require.Len(t, m.Voices, 1)
	v := m.Voices[0]
	require.NotNil(t, v.Termination)
	assert.True(t, v.Termination.IsZero())
	assert.False(t, m.IsAbnormal())
}

func TestBeamedTripletWithoutInference(t *testing.T) {
	b := scoretest.NewMeasure().Expect("1/4")
	for i := 0; i < 3; i++ {
		b.Head(20+30*float64(i), 0, "1/8", scoretest.Beam(1))
	}
	m := b.Build()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, false)).Process()

	assert.False(t, ok)
	assert.Empty(t, m.Tuplets)
	require.Len(t, m.Voices, 1)
	assert.Equal(t, "1/8", m.Voices[0].Excess.String())
	assert.True(t, m.IsAbnormal())
}

func TestSeparateTimeForcesNewVoice(t *testing.T) {
	b := scoretest.NewMeasure()
	first := b.Head(20, 0, "1/4")
	rookie := b.Head(80, 0, "1/4")
	other := b.Head(80, 30, "1/4")
	b.Link(first, rookie, score.SeparateTime)
	m := b.Build()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	require.Len(t, m.Slots, 2)
	assert.Equal(t, first.Voice, other.Voice)
	assert.NotEqual(t, first.Voice, rookie.Voice)
	assert.NotZero(t, rookie.Voice)
	assert.Equal(t, "1/4", timeOf(t, rookie))
	assert.Equal(t, "1/4", timeOf(t, other))
}

// twoVoices builds an upper and a lower voice of two quarters each.
func twoVoices() (*score.Measure, []*score.Chord, []*score.Chord) {
	b := scoretest.NewMeasure().Expect("1/2")
	up := []*score.Chord{
		b.Head(20, -20, "1/4", scoretest.Up()),
		b.Head(80, -20, "1/4", scoretest.Up()),
	}
	down := []*score.Chord{
		b.Head(20, 30, "1/4", scoretest.Down()),
		b.Head(80, 30, "1/4", scoretest.Down()),
	}
	return b.Build(), up, down
}

func TestVoicesFollowProximity(t *testing.T) {
	m, up, down := twoVoices()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	require.Len(t, m.Slots, 2)
	require.Len(t, m.Voices, 2)
	assert.Equal(t, up[0].Voice, up[1].Voice)
	assert.Equal(t, down[0].Voice, down[1].Voice)
	assert.Equal(t, 1, up[0].Voice)
	assert.Equal(t, 2, down[0].Voice)
	assert.Equal(t, "1/4", timeOf(t, up[1]))
	assert.Equal(t, "1/4", timeOf(t, down[1]))

	for _, v := range m.Voices {
		require.NotNil(t, v.Termination)
		assert.True(t, v.Termination.IsZero())
		ts := v.InferredTimeSignature(m)
		require.NotNil(t, ts)
		assert.Equal(t, "2/4", ts.String())
	}
}

func TestVoiceExclusivityPerSlot(t *testing.T) {
	m, _, _ := twoVoices()
	require.True(t, rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process())

	for _, cs := range m.Slots {
		seen := make(map[int]bool)
		for _, c := range m.ChordsOf(cs.Chords()) {
			assert.False(t, seen[c.Voice], "voice %d twice in %v", c.Voice, cs)
			seen[c.Voice] = true
		}
	}
	for _, v := range m.Voices {
		for _, id := range v.SlotIDs() {
			info, ok := v.SlotInfo(id)
			require.True(t, ok)
			assert.Equal(t, score.Begin, info.Status)
		}
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	b := scoretest.NewMeasure().Expect("1/4")
	for i := 0; i < 3; i++ {
		b.Head(20+30*float64(i), 0, "1/8", scoretest.Up(), scoretest.Beam(1))
	}
	m := b.Build()
	mr := rhythm.NewMeasureRhythm(m, testOptions(t, true))

	snapshot := func() []string {
		var out []string
		for _, c := range m.Chords {
			out = append(out, fmt.Sprintf("%v v%d @%s", c, c.Voice, rational.String(c.Time)))
		}
		return out
	}

	require.True(t, mr.Process())
	first := snapshot()
	tuplets := len(m.Tuplets)

	require.True(t, mr.Process())
	assert.Equal(t, first, snapshot())
	assert.Equal(t, tuplets, len(m.Tuplets))
}

func TestMeasureRestVoice(t *testing.T) {
	b := scoretest.NewMeasure(1, 2).Expect("3/4")
	rest := b.MeasureRest(60, 0)
	q := []*score.Chord{
		b.Head(20, 0, "1/4", scoretest.Staff(2)),
		b.Head(60, 0, "1/4", scoretest.Staff(2)),
		b.Head(100, 0, "1/4", scoretest.Staff(2)),
	}
	m := b.Build()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	require.Len(t, m.Voices, 2)
	rv := m.VoiceOf(rest)
	require.NotNil(t, rv)
	assert.True(t, rv.IsMeasureRest())
	assert.Nil(t, rv.Termination)
	assert.Equal(t, "0", timeOf(t, rest))

	lv := m.VoiceOf(q[0])
	require.NotNil(t, lv)
	assert.Equal(t, score.Low, lv.Family)
	assert.Equal(t, score.Low.Offset()+1, lv.ID)
	assert.Equal(t, "1/2", timeOf(t, q[2]))
	assert.True(t, lv.Termination.IsZero())
}

func TestTieCarriesVoice(t *testing.T) {
	b := scoretest.NewMeasure().Expect("1/2")
	a := b.Head(20, 0, "1/4")
	c := b.Head(80, 0, "1/4")
	b.Tie(a, c)
	m := b.Build()

	require.True(t, rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process())

	assert.Equal(t, a.Voice, c.Voice)
	assert.Equal(t, "1/4", timeOf(t, c))
	assert.Len(t, m.Voices, 1)
}

// requireSlotTimesAgree checks every timed chord sits on its narrow slot time.
func requireSlotTimesAgree(t *testing.T, m *score.Measure) {
	t.Helper()

	for _, cs := range m.Slots {
		for _, narrow := range cs.Members {
			for _, c := range m.ChordsOf(narrow.Chords) {
				if c.Time == nil || narrow.Time() == nil {
					continue
				}
				require.Equal(t, narrow.Time().String(), c.Time.String(), "%v in %v", c, cs)
			}
		}
	}
}

func TestRookieSkipsVoiceAlreadyInSlot(t *testing.T) {
	b := scoretest.NewMeasure()
	a1 := b.Head(20, 0, "1/8", scoretest.Up(), scoretest.Beam(1))
	a2 := b.Head(80, 0, "1/8", scoretest.Up(), scoretest.Beam(1))
	rookie := b.Head(95, 40, "1/4", scoretest.Down())
	m := b.Build()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	require.Len(t, m.Slots, 2)
	require.Len(t, m.Slots[1].Members, 2, "same wide slot, distinct narrow slots")
	assert.Equal(t, a1.Voice, a2.Voice)
	assert.NotEqual(t, a2.Voice, rookie.Voice)
	assert.Equal(t, "1/8", timeOf(t, rookie))
	assert.False(t, m.IsAbnormal())
}

func TestLateTimedChordShrinksItsVoice(t *testing.T) {
	b := scoretest.NewMeasure().Expect("1/2")
	var eighths []*score.Chord
	for i := 0; i < 3; i++ {
		eighths = append(eighths, b.Head(20+30*float64(i), -20, "1/8", scoretest.Up(), scoretest.Beam(1)))
	}
	q1 := b.Head(110, -20, "1/4", scoretest.Up())
	b.Tie(eighths[2], q1)
	d1 := b.Head(20, 30, "1/4", scoretest.Down())
	d2 := b.Head(110, 30, "1/4", scoretest.Down())
	m := b.Build()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	assert.Equal(t, "1/4", timeOf(t, q1))
	assert.Equal(t, "1/4", timeOf(t, d2))
	assert.Equal(t, d1.Voice, d2.Voice)
	assert.NotEqual(t, q1.Voice, d2.Voice)

	tuplets := m.ImplicitTuplets()
	require.Len(t, tuplets, 1)
	assert.Equal(t, score.IDs(eighths), tuplets[0].Chords)
	requireSlotTimesAgree(t, m)
}

func TestLateActiveShrinksItsVoice(t *testing.T) {
	b := scoretest.NewMeasure().Expect("3/4")
	u1 := b.Head(20, -20, "1/4", scoretest.Up())
	u2 := b.Head(110, -20, "1/4", scoretest.Up())
	b.Tie(u1, u2)
	ae := b.Head(20, 30, "1/8", scoretest.Down())
	aq := b.Head(65, 30, "1/4", scoretest.Down())
	rookie := b.Head(110, 30, "1/4", scoretest.Down())
	m := b.Build()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	assert.Equal(t, aq.Voice, rookie.Voice)
	assert.Equal(t, "1/12", timeOf(t, aq))
	assert.Equal(t, "1/4", timeOf(t, rookie))
	assert.Equal(t, "1/4", timeOf(t, u2))

	tuplets := m.ImplicitTuplets()
	require.Len(t, tuplets, 1)
	assert.Equal(t, []int{ae.ID, aq.ID}, tuplets[0].Chords)
	requireSlotTimesAgree(t, m)
}

// tiedConflict builds two voices whose ties push different times into the
// narrow slot at x=110: 3/8 from an eighth and a quarter, 1/4 from a quarter.
func tiedConflict() (m *score.Measure, aq, q1, d2 *score.Chord) {
	b := scoretest.NewMeasure().Expect("1/2")
	b.Head(20, -20, "1/8", scoretest.Up())
	aq = b.Head(65, -20, "1/4", scoretest.Up())
	q1 = b.Head(110, -20, "1/4", scoretest.Up())
	b.Tie(aq, q1)
	d1 := b.Head(20, 30, "1/4", scoretest.Down())
	d2 = b.Head(110, 30, "1/4", scoretest.Down())
	b.Tie(d1, d2)
	return b.Build(), aq, q1, d2
}

func TestConflictingSlotTimesResolvedByTuplet(t *testing.T) {
	m, aq, q1, d2 := tiedConflict()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	assert.Equal(t, "1/12", timeOf(t, aq))
	assert.Equal(t, "1/4", timeOf(t, q1))
	assert.Equal(t, "1/4", timeOf(t, d2))
	require.Len(t, m.ImplicitTuplets(), 1)

	cs := m.SlotOf(q1)
	require.NotNil(t, cs)
	assert.Same(t, cs, m.SlotOf(d2))
	assert.Equal(t, "1/4", cs.Time().String())
	assert.False(t, cs.Suspicious)
	requireSlotTimesAgree(t, m)
}

func TestConflictingSlotTimesFlagSlot(t *testing.T) {
	m, _, q1, d2 := tiedConflict()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, false)).Process()

	assert.False(t, ok)
	assert.Empty(t, m.Tuplets)
	assert.Equal(t, "3/8", timeOf(t, q1))
	assert.Equal(t, "1/4", timeOf(t, d2))

	cs := m.SlotOf(q1)
	require.NotNil(t, cs)
	assert.True(t, cs.Suspicious)
	assert.Equal(t, "1/4", cs.Time().String(), "lowest time kept")
}

func TestVoiceEndShrunkAfterTuplet(t *testing.T) {
	b := scoretest.NewMeasure().Expect("1/2")
	var upper []*score.Chord
	for i := 0; i < 6; i++ {
		upper = append(upper, b.Head(20+30*float64(i), -20, "1/8", scoretest.Up(), scoretest.Beam(1+i/3)))
	}
	b.Head(20, 30, "1/4", scoretest.Down())
	d2 := b.Head(110, 30, "1/4", scoretest.Down())
	m := b.Build()

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	tuplets := m.ImplicitTuplets()
	require.Len(t, tuplets, 2)
	assert.Equal(t, score.IDs(upper[:3]), tuplets[0].Chords)
	assert.Equal(t, score.IDs(upper[3:]), tuplets[1].Chords)

	want := []string{"0", "1/12", "1/6", "1/4", "1/3", "5/12"}
	for i, c := range upper {
		assert.Equal(t, want[i], timeOf(t, c), "%v", c)
	}
	assert.Equal(t, "1/4", timeOf(t, d2))

	v := m.VoiceOf(upper[0])
	require.NotNil(t, v)
	require.NotNil(t, v.Termination)
	assert.True(t, v.Termination.IsZero())
	requireSlotTimesAgree(t, m)
}

// loneRookie puts a rookie EQUAL to the top chord of the first slot but
// separated from the bottom one, and forbidden to continue either voice.
func loneRookie(x float64) (m *score.Measure, top, rookie *score.Chord) {
	b := scoretest.NewMeasure()
	top = b.Head(20, -20, "1/4", scoretest.Up())
	bottom := b.Head(20, 30, "1/4", scoretest.Down())
	rookie = b.Head(x, 80, "1/4", scoretest.Down())
	b.Link(top, rookie, score.SameTime)
	b.Link(top, rookie, score.SeparateVoice)
	b.Link(bottom, rookie, score.SeparateTime)
	return b.Build(), top, rookie
}

func TestLoneRookieJoinsPreviousSlot(t *testing.T) {
	m, top, rookie := loneRookie(35)

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	require.True(t, ok)
	require.Len(t, m.Slots, 1)
	assert.True(t, m.Slots[0].Contains(rookie.ID))
	assert.True(t, m.Slots[0].Suspicious)
	assert.Equal(t, 1, rookie.Slot)
	assert.Equal(t, "0", timeOf(t, rookie))
	assert.NotEqual(t, top.Voice, rookie.Voice)
}

func TestLoneRookieTooFarToJoin(t *testing.T) {
	m, _, rookie := loneRookie(80)

	ok := rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()

	assert.False(t, ok)
	require.Len(t, m.Slots, 2)
	assert.Nil(t, rookie.Time)
	assert.False(t, m.Slots[0].Suspicious)
}

func TestSameVoiceLinkRevivesExtinctVoice(t *testing.T) {
	build := func(linked bool) (*score.Measure, *score.Chord, *score.Chord) {
		b := scoretest.NewMeasure()
		a1 := b.Head(20, -20, "1/8", scoretest.Up())
		b.Head(20, 30, "1/4", scoretest.Down())
		b.Head(80, 30, "1/4", scoretest.Down())
		rookie := b.Head(140, -20, "1/4", scoretest.Up())
		if linked {
			b.Link(rookie, a1, score.SameVoice)
		}
		return b.Build(), a1, rookie
	}

	t.Run("linked", func(t *testing.T) {
		m, a1, rookie := build(true)

		require.True(t, rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process())
		assert.Equal(t, a1.Voice, rookie.Voice)
		assert.Equal(t, "1/8", timeOf(t, rookie))
	})

	t.Run("unlinked", func(t *testing.T) {
		m, a1, rookie := build(false)

		rhythm.NewMeasureRhythm(m, testOptions(t, true)).Process()
		assert.NotZero(t, rookie.Voice)
		assert.NotEqual(t, a1.Voice, rookie.Voice)
	})
}
