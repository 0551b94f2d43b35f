package rhythm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/rhythm"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score/scoretest"
)

// quarters builds a measure of n quarters on staff 1, with extra staves
// left empty.
func quarters(n int, staves ...int) *score.Measure {
	b := scoretest.NewMeasure(append([]int{1}, staves...)...)
	for i := 0; i < n; i++ {
		b.Head(20+40*float64(i), 0, "1/4")
	}
	return b.Build()
}

func quarterThenHalf() *score.Measure {
	b := scoretest.NewMeasure()
	b.Head(20, 0, "1/4")
	b.Head(60, 0, "1/2")
	return b.Build()
}

func TestStackUsesTimeSignature(t *testing.T) {
	st := &score.Stack{
		Index:    1,
		TimeSig:  &score.TimeSignature{Num: 3, Den: 4},
		Measures: []*score.Measure{quarters(3)},
	}

	ok := rhythm.NewStackRhythm(st, testOptions(t, true)).Process()

	require.True(t, ok)
	assert.Equal(t, "3/4", st.Expected.String())
	assert.Equal(t, "3/4", st.Actual.String())
	assert.Nil(t, st.Excess)
	assert.Empty(t, st.EmptyStaves)
	assert.Equal(t, "3/4", st.Measures[0].Expected.String())
}

func TestStackReportsExcess(t *testing.T) {
	st := &score.Stack{
		Index:    2,
		TimeSig:  &score.TimeSignature{Num: 2, Den: 4},
		Measures: []*score.Measure{quarterThenHalf()},
	}

	ok := rhythm.NewStackRhythm(st, testOptions(t, false)).Process()

	assert.False(t, ok)
	assert.True(t, st.IsAbnormal())
	require.NotNil(t, st.Excess)
	assert.Equal(t, "1/4", st.Excess.String())
}

func TestStackReportsEmptyStaff(t *testing.T) {
	st := &score.Stack{
		Index:    3,
		TimeSig:  &score.TimeSignature{Num: 2, Den: 4},
		Measures: []*score.Measure{quarters(2, 2)},
	}

	ok := rhythm.NewStackRhythm(st, testOptions(t, true)).Process()

	assert.False(t, ok)
	assert.Equal(t, []score.EmptyStaff{{Part: 1, Staff: 2}}, st.EmptyStaves)
	assert.False(t, st.Measures[0].IsAbnormal())
}

func TestSystemCarriesTimeSignature(t *testing.T) {
	sys := &score.System{
		Name:      "sys-1",
		Interline: scoretest.Interline,
		Stacks: []*score.Stack{
			{Index: 1, TimeSig: &score.TimeSignature{Num: 2, Den: 4}, Measures: []*score.Measure{quarters(2)}},
			{Index: 2, Measures: []*score.Measure{quarters(2)}},
			{Index: 3, Measures: []*score.Measure{quarters(3)}},
		},
	}

	report := rhythm.NewSystemRhythm(sys, testOptions(t, false)).Process()

	assert.Equal(t, 3, report.Stacks)
	assert.Equal(t, 3, report.Measures)
	assert.Equal(t, []int{3}, report.Abnormal)
	assert.False(t, report.OK())

	require.NotNil(t, sys.Stacks[1].TimeSig)
	assert.Equal(t, "2/4", sys.Stacks[1].TimeSig.String())
	assert.Equal(t, 2, sys.Stacks[1].Measures[0].Stack)
}
