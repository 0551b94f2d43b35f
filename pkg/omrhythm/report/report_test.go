package report

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/rhythm"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score/scoretest"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

func processed(t *testing.T) *score.System {
	t.Helper()
	b := scoretest.NewMeasure().Expect("1/4")
	for i := 0; i < 3; i++ {
		b.Head(20+30*float64(i), 0, "1/8", scoretest.Up(), scoretest.Beam(1))
	}
	sys := &score.System{
		Name:      "triplet",
		Interline: scoretest.Interline,
		Stacks: []*score.Stack{
			{Index: 1, TimeSig: &score.TimeSignature{Num: 1, Den: 4}, Measures: []*score.Measure{b.Build()}},
		},
	}
	opts := rhythm.DefaultOptions()
	opts.Logger = logger.New(logger.Config{Output: io.Discard})
	report := rhythm.NewSystemRhythm(sys, opts).Process()
	require.True(t, report.OK())
	return sys
}

func TestFromSystem(t *testing.T) {
	a := FromSystem(processed(t), "", "triplet.yaml")

	assert.Equal(t, "triplet", a.Name)
	assert.Equal(t, "triplet.yaml", a.Source)
	assert.False(t, a.Abnormal)
	require.Len(t, a.Stacks, 1)

	st := a.Stacks[0]
	assert.Equal(t, "1/4", st.TimeSignature)
	assert.Equal(t, "1/4", st.Expected)
	assert.Equal(t, "1/4", st.Actual)
	assert.Empty(t, st.Excess)

	require.Len(t, a.Measures(), 1)
	m := a.Measures()[0]
	require.Len(t, m.Tuplets, 1)
	assert.Equal(t, "TUPLET_THREE", m.Tuplets[0].Shape)
	assert.True(t, m.Tuplets[0].Implicit)
	assert.Equal(t, []int{1, 2, 3}, m.Tuplets[0].Chords)

	require.Len(t, m.Chords, 3)
	times := []string{"0", "1/12", "1/6"}
	for i, c := range m.Chords {
		assert.Equal(t, times[i], c.Time)
		assert.Equal(t, "1/12", c.Duration)
		assert.Equal(t, 1, c.Voice)
		assert.Equal(t, m.Tuplets[0].ID, c.Tuplet)
		assert.Equal(t, []int{71}, c.Keys)
	}

	require.Len(t, m.Voices, 1)
	assert.Equal(t, "HIGH", m.Voices[0].Family)
	assert.Equal(t, "0", m.Voices[0].Termination)
	assert.Equal(t, "1/4", m.Voices[0].Duration)
	assert.Equal(t, "3/8", m.Voices[0].DurationSansTuplet)
	assert.Empty(t, m.Voices[0].Forwards)
	assert.Equal(t, "V 1 |Ch#1    |Ch#2    |Ch#3    |1/4", m.Voices[0].Strip)
	assert.Len(t, m.Slots, 3)
	for _, s := range m.Slots {
		assert.False(t, s.Suspicious)
	}
}

func TestFromMeasureForwardsAndSuspiciousSlots(t *testing.T) {
	m := processed(t).Stacks[0].Measures[0]
	m.Expected = rational.Half.Ptr()
	m.Slots[1].Suspicious = true

	mr := FromMeasure(m)

	require.Len(t, mr.Slots, 3)
	assert.False(t, mr.Slots[0].Suspicious)
	assert.True(t, mr.Slots[1].Suspicious)

	require.Len(t, mr.Voices, 1)
	require.Len(t, mr.Voices[0].Forwards, 1)
	assert.Equal(t, models.Forward{After: 3, Start: "1/4", Duration: "1/4"}, mr.Voices[0].Forwards[0])
}

func TestKeysOf(t *testing.T) {
	b := scoretest.NewMeasure(1, 2)
	given := b.Head(20, 0, "1/4", scoretest.Keys(60, 64))
	c5 := b.Head(40, -10, "1/4") // first space above the middle line
	bass := b.Head(60, 0, "1/4", scoretest.Staff(2))
	rest := b.Rest(80, 0, "1/4")
	m := b.Build()

	assert.Equal(t, []int{60, 64}, KeysOf(m, given))
	assert.Equal(t, []int{72}, KeysOf(m, c5))
	assert.Equal(t, []int{50}, KeysOf(m, bass))
	assert.Nil(t, KeysOf(m, rest))
}

func TestDiatonicKey(t *testing.T) {
	tests := []struct {
		step int
		want int
	}{
		{4 * 7, 60},
		{4*7 + 5, 69},
		{-1, 11},
		{0, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DiatonicKey(tt.step), "step %d", tt.step)
	}
}
