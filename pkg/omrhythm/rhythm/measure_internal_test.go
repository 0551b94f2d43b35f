package rhythm

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score/scoretest"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Logger = logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
	return opts
}

// splitTriplets puts six beamed eighths in one voice, covered by two
// implicit triplets. The second half uses beam2.
func splitTriplets(beam2 int) (*score.Measure, []*score.Chord) {
	b := scoretest.NewMeasure()
	var chords []*score.Chord
	for i := 0; i < 6; i++ {
		beam := 1
		if i >= 3 {
			beam = beam2
		}
		chords = append(chords, b.Head(20+30*float64(i), 0, "1/8", scoretest.Up(), scoretest.Beam(beam)))
	}
	m := b.Build()

	m.NewVoice(chords[0])
	if beam2 != 1 {
		m.SetVoice(chords[3], chords[0].Voice)
	}
	m.AddTuplet(&score.Tuplet{Shape: score.TupletThree, Chords: score.IDs(chords[:3]), Implicit: true})
	m.AddTuplet(&score.Tuplet{Shape: score.TupletThree, Chords: score.IDs(chords[3:]), Implicit: true})
	return m, chords
}

func TestMergeTupletsWithinBeam(t *testing.T) {
	m, chords := splitTriplets(1)
	mr := NewMeasureRhythm(m, quietOptions())

	mr.mergeTuplets()

	tuplets := m.ImplicitTuplets()
	require.Len(t, tuplets, 1)
	assert.Equal(t, score.TupletSix, tuplets[0].Shape)
	assert.Equal(t, score.IDs(chords), tuplets[0].Chords)
	for _, c := range chords {
		assert.Equal(t, tuplets[0].ID, c.Tuplet)
	}
}

func TestMergeTupletsKeepsBeamBoundary(t *testing.T) {
	m, chords := splitTriplets(2)
	mr := NewMeasureRhythm(m, quietOptions())

	mr.mergeTuplets()

	tuplets := m.ImplicitTuplets()
	require.Len(t, tuplets, 2)
	assert.Equal(t, score.IDs(chords[:3]), tuplets[0].Chords)
	assert.Equal(t, score.IDs(chords[3:]), tuplets[1].Chords)
}

type plainLogger struct{}

func (plainLogger) Infof(string, ...any)  {}
func (plainLogger) Warnf(string, ...any)  {}
func (plainLogger) Errorf(string, ...any) {}
func (plainLogger) Debugf(string, ...any) {}

func TestDebugEnabled(t *testing.T) {
	assert.True(t, debugEnabled(logger.New(logger.Config{Level: logger.DEBUG, Output: io.Discard})))
	assert.False(t, debugEnabled(logger.New(logger.Config{Level: logger.INFO, Output: io.Discard})))
	assert.True(t, debugEnabled(plainLogger{}), "unknown level counts as verbose")

	m := scoretest.NewMeasure().Build()
	assert.False(t, NewMeasureRhythm(m, quietOptions()).debug)
}

func recordingMapper(t *testing.T, buf *bytes.Buffer) (*slotMapper, *score.Slot, *score.Chord, *score.Chord) {
	t.Helper()

	b := scoretest.NewMeasure()
	c1 := b.Head(20, -20, "1/4", scoretest.Up())
	c2 := b.Head(20, 30, "1/4", scoretest.Down())
	m := b.Build()
	narrow := score.NewSlot([]int{c1.ID, c2.ID})
	m.AssignSlots([]*score.CompoundSlot{{Members: []*score.Slot{narrow}}})

	opts := DefaultOptions()
	opts.Logger = logger.New(logger.Config{Level: logger.WARN, Output: buf})
	mr := NewMeasureRhythm(m, opts)
	return mr.newSlotMapper(m.Slots[0]), narrow, c1, c2
}

func TestRefusedSlotTimeIsLoggedAndFlagged(t *testing.T) {
	var buf bytes.Buffer
	sm, narrow, _, _ := recordingMapper(t, &buf)

	sm.setSlotTime(narrow, rational.Zero)
	sm.setSlotTime(narrow, rational.Zero)
	assert.Empty(t, buf.String())
	assert.False(t, sm.slot.Suspicious)

	sm.setSlotTime(narrow, rational.Quarter)

	assert.Contains(t, buf.String(), "refused")
	assert.True(t, sm.slot.Suspicious)
	assert.True(t, sm.m.IsAbnormal())
	assert.Equal(t, "0", narrow.Time().String())
}

func TestSettleSlotTimeKeepsLowest(t *testing.T) {
	var buf bytes.Buffer
	sm, narrow, c1, c2 := recordingMapper(t, &buf)
	sm.m.SetAndPushTime(c1, rational.Quarter)
	sm.m.SetAndPushTime(c2, rational.Zero)

	sm.settleSlotTime(narrow)

	assert.Contains(t, buf.String(), "still holds times")
	assert.True(t, sm.slot.Suspicious)
	assert.Equal(t, "0", narrow.Time().String())
}
