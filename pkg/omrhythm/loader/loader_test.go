package loader

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/rhythm"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

func quietOptions() rhythm.Options {
	opts := rhythm.DefaultOptions()
	opts.Logger = logger.New(logger.Config{Output: io.Discard})
	return opts
}

func TestLoadYAML(t *testing.T) {
	sys, err := Load(filepath.Join("testdata", "triplet.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "triplet", sys.Name)
	require.Len(t, sys.Stacks, 2)
	require.NotNil(t, sys.Stacks[0].TimeSig)
	assert.Equal(t, "1/4", sys.Stacks[0].TimeSig.String())
	assert.Nil(t, sys.Stacks[1].TimeSig)

	m := sys.Stacks[0].Measures[0]
	require.Len(t, m.Chords, 3)
	c := m.Chord(2)
	require.NotNil(t, c)
	assert.Equal(t, score.StemUp, c.Stem)
	assert.Equal(t, 1, c.Beam)
	assert.Equal(t, 1, c.Part)
	assert.Equal(t, "1/8", c.Value.String())
	assert.Equal(t, 20.0, m.Scale.Interline)

	report := rhythm.NewSystemRhythm(sys, quietOptions()).Process()
	assert.True(t, report.OK())
	require.Len(t, m.ImplicitTuplets(), 1)
	assert.Equal(t, "1/12", c.Time.String())
	assert.Equal(t, "1/4", sys.Stacks[1].TimeSig.String())
}

func TestLoadJSON(t *testing.T) {
	sys, err := Load(filepath.Join("testdata", "tied.json"))
	require.NoError(t, err)

	m := sys.Stacks[0].Measures[0]
	require.Len(t, m.Links, 1)
	assert.Equal(t, score.SameVoice, m.Links[0].Kind)
	assert.Equal(t, 2, m.Chord(1).TieTo)
	assert.Equal(t, []int{67}, m.Chord(2).Keys)
	assert.Equal(t, score.StemNone, m.Chord(1).Stem)

	report := rhythm.NewSystemRhythm(sys, quietOptions()).Process()
	assert.True(t, report.OK())
	assert.Equal(t, m.Chord(1).Voice, m.Chord(2).Voice)
	assert.Equal(t, "1/4", m.Chord(2).Time.String())
}

func TestExplicitTuplet(t *testing.T) {
	doc := `
name: explicit
stacks:
  - index: 1
    measures:
      - part: 1
        staves: [1]
        chords:
          - {id: 1, staff: 1, value: "1/8", box: {x: 14, y: 195, w: 12, h: 10}}
          - {id: 2, staff: 1, value: "1/8", box: {x: 44, y: 195, w: 12, h: 10}}
          - {id: 3, staff: 1, value: "1/8", box: {x: 74, y: 195, w: 12, h: 10}}
        tuplets:
          - {shape: three, chords: [1, 2, 3]}
`
	sys, err := Parse([]byte(doc), FormatYAML)
	require.NoError(t, err)

	m := sys.Stacks[0].Measures[0]
	require.Len(t, m.Tuplets, 1)
	assert.False(t, m.Tuplets[0].Implicit)
	assert.Equal(t, 1, m.Tuplets[0].ID)
	assert.Equal(t, "1/12", m.Chord(3).Duration().String())
	// missing head position falls back to the box centre
	assert.Equal(t, 50.0, m.Chord(2).HeadX)
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"missing name", `stacks: [{index: 1, measures: [{part: 1, staves: [1]}]}]`},
		{"no stacks", `name: x`},
		{"unknown field", `{name: x, tempo: 120, stacks: [{index: 1, measures: [{part: 1, staves: [1]}]}]}`},
		{"bad value", `{name: x, stacks: [{index: 1, measures: [{part: 1, staves: [1], chords: [{id: 1, staff: 1, value: "1/0"}]}]}]}`},
		{"bad time signature", `{name: x, stacks: [{index: 1, timeSignature: "3", measures: [{part: 1, staves: [1]}]}]}`},
		{"duplicate chord ids", `{name: x, stacks: [{index: 1, measures: [{part: 1, staves: [1], chords: [{id: 1, staff: 1, value: "1/4"}, {id: 1, staff: 1, value: "1/4"}]}]}]}`},
		{"unknown staff", `{name: x, stacks: [{index: 1, measures: [{part: 1, staves: [1], chords: [{id: 1, staff: 2, value: "1/4"}]}]}]}`},
		{"dangling link", `{name: x, stacks: [{index: 1, measures: [{part: 1, staves: [1], chords: [{id: 1, staff: 1, value: "1/4"}], links: [{from: 1, to: 9, kind: same-voice}]}]}]}`},
		{"bad link kind", `{name: x, stacks: [{index: 1, measures: [{part: 1, staves: [1], chords: [{id: 1, staff: 1, value: "1/4"}, {id: 2, staff: 1, value: "1/4"}], links: [{from: 1, to: 2, kind: later}]}]}]}`},
		{"bad tuplet shape", `{name: x, stacks: [{index: 1, measures: [{part: 1, staves: [1], chords: [{id: 1, staff: 1, value: "1/8"}, {id: 2, staff: 1, value: "1/8"}], tuplets: [{shape: five, chords: [1, 2]}]}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatYAML)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSystem), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidSystem))
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatOf("a/b.JSON"))
	assert.Equal(t, FormatYAML, FormatOf("a/b.yml"))
	assert.Equal(t, FormatYAML, FormatOf("a/b"))
}
