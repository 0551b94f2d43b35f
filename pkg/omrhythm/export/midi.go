package export

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
	"github.com/himanishpuri/omrhythm/pkg/rational"
)

type MIDIOptions struct {
	Ticks    uint16  // per quarter note
	Tempo    float64 // quarter notes per minute
	Velocity uint8
}

func DefaultMIDIOptions() MIDIOptions {
	return MIDIOptions{Ticks: 960, Tempo: 120, Velocity: 80}
}

func (o MIDIOptions) withDefaults() MIDIOptions {
	def := DefaultMIDIOptions()
	if o.Ticks == 0 {
		o.Ticks = def.Ticks
	}
	if o.Tempo <= 0 {
		o.Tempo = def.Tempo
	}
	if o.Velocity == 0 {
		o.Velocity = def.Velocity
	}
	return o
}

type trackKey struct{ part, voice int }

type noteEvent struct {
	tick int64
	on   bool
	key  uint8
}

// BuildSMF builds a format 1 file: a conductor track with name, meter and
// tempo, then one track per part and voice.
func BuildSMF(a *models.Analysis, opts MIDIOptions) (*smf.SMF, error) {
	opts = opts.withDefaults()
	notes, _, err := Timeline(a)
	if err != nil {
		return nil, err
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(opts.Ticks)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTrackSequenceName(a.Name))
	if num, den, ok := firstMeter(a); ok {
		conductor.Add(0, smf.MetaMeter(num, den))
	}
	conductor.Add(0, smf.MetaTempo(opts.Tempo))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return nil, fmt.Errorf("adding conductor track: %w", err)
	}

	wholeTicks := int64(opts.Ticks) * 4
	tracks := make(map[trackKey][]noteEvent)
	for _, n := range notes {
		k := trackKey{n.Part, n.Voice}
		start := toTicks(n.Start, wholeTicks)
		end := toTicks(n.End(), wholeTicks)
		key := uint8(max(0, min(127, n.Key)))
		tracks[k] = append(tracks[k], noteEvent{start, true, key}, noteEvent{end, false, key})
	}

	keys := make([]trackKey, 0, len(tracks))
	for k := range tracks {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b trackKey) int {
		if c := cmp.Compare(a.part, b.part); c != 0 {
			return c
		}
		return cmp.Compare(a.voice, b.voice)
	})

	for _, k := range keys {
		events := tracks[k]
		slices.SortStableFunc(events, func(a, b noteEvent) int {
			if c := cmp.Compare(a.tick, b.tick); c != 0 {
				return c
			}
			// release before the next strike on the same tick
			if a.on == b.on {
				return 0
			}
			if !a.on {
				return -1
			}
			return 1
		})

		ch := channelOf(k.part)
		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("P%d V%d", k.part, k.voice)))
		var last int64
		for _, ev := range events {
			delta := uint32(ev.tick - last)
			last = ev.tick
			if ev.on {
				tr.Add(delta, midi.NoteOn(ch, ev.key, opts.Velocity))
			} else {
				tr.Add(delta, midi.NoteOff(ch, ev.key))
			}
		}
		tr.Close(0)
		if err := s.Add(tr); err != nil {
			return nil, fmt.Errorf("adding track %v: %w", k, err)
		}
	}
	return s, nil
}

// WriteMIDI writes the analysis as a standard MIDI file.
func WriteMIDI(w io.Writer, a *models.Analysis, opts MIDIOptions) error {
	s, err := BuildSMF(a, opts)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi: %w", err)
	}
	return nil
}

func toTicks(r rational.Rational, whole int64) int64 {
	return int64(math.Round(r.TimesInt(whole).Float64()))
}

// channelOf maps parts to channels, leaving out the percussion channel 10.
func channelOf(part int) uint8 {
	ch := (max(part, 1) - 1) % 15
	if ch >= 9 {
		ch++
	}
	return uint8(ch)
}

func firstMeter(a *models.Analysis) (num, den uint8, ok bool) {
	for _, st := range a.Stacks {
		if st.TimeSignature == "" {
			continue
		}
		ts, err := score.ParseTimeSignature(st.TimeSignature)
		if err != nil || ts.Num > 255 || ts.Den > 255 {
			return 0, 0, false
		}
		return uint8(ts.Num), uint8(ts.Den), true
	}
	return 0, 0, false
}
